// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package firmware brings up the SBI implementation for a platform: it
// installs the platform's providers, registers the extensions and creates
// the harts that trap into them.
package firmware

import (
	"fmt"

	"gvisor.dev/sbi/pkg/hart"
	"gvisor.dev/sbi/pkg/log"
	"gvisor.dev/sbi/pkg/metric"
	"gvisor.dev/sbi/pkg/platform"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/pkg/sbi/pmu"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
)

// Implemented SBI specification version.
const (
	SpecMajor = 0
	SpecMinor = 3
)

// Config configures Boot.
type Config struct {
	// Platform is the name of the platform to boot.
	Platform string

	// Options are passed to the platform constructor.
	Options platform.Options

	// ImplID and ImplVersion are reported by the base extension.
	ImplID      int64
	ImplVersion int64

	// Metrics, if not nil, receives call counters.
	Metrics *metric.Set
}

// Firmware is a booted SBI implementation.
type Firmware struct {
	platform   platform.Platform
	dispatcher *sbicore.Dispatcher
	pmu        *pmu.Registry
	calls      *metric.CallMetrics
	xlen       int
}

// Boot creates the platform named by conf and brings up the firmware. It
// must complete before any hart is run.
func Boot(conf Config) (*Firmware, error) {
	if x := conf.Options.XLEN; x != 32 && x != 64 {
		return nil, fmt.Errorf("invalid XLEN %d, must be 32 or 64", x)
	}
	p, err := platform.New(conf.Platform, conf.Options)
	if err != nil {
		return nil, err
	}
	log.Infof("Booting platform %q, XLEN %d", p.Name(), conf.Options.XLEN)

	regs := &platform.Registries{PMU: pmu.NewRegistry()}
	p.Install(regs)

	machine := p.Describe()
	machine.SpecMajor = SpecMajor
	machine.SpecMinor = SpecMinor
	machine.ImplID = conf.ImplID
	machine.ImplVersion = conf.ImplVersion

	d := sbicore.NewDispatcher(machine)
	d.Register(pmu.NewExtension(regs.PMU, conf.Options.XLEN))

	var calls *metric.CallMetrics
	if conf.Metrics != nil {
		calls, err = metric.NewCallMetrics(conf.Metrics, d.Extensions())
		if err != nil {
			return nil, fmt.Errorf("creating call metrics: %w", err)
		}
		d.AddObserver(calls)
	}

	for _, ext := range d.Extensions() {
		log.Infof("Extension %v (%s): probe %d", ext.ID(), ext.Name(), ext.Probe())
	}
	return &Firmware{
		platform:   p,
		dispatcher: d,
		pmu:        regs.PMU,
		calls:      calls,
		xlen:       conf.Options.XLEN,
	}, nil
}

// Platform returns the booted platform.
func (f *Firmware) Platform() platform.Platform {
	return f.platform
}

// Dispatcher returns the top-level dispatcher.
func (f *Firmware) Dispatcher() *sbicore.Dispatcher {
	return f.dispatcher
}

// PMU returns the PMU registry.
func (f *Firmware) PMU() *pmu.Registry {
	return f.pmu
}

// Calls returns the call counters, or nil if metrics are disabled.
func (f *Firmware) Calls() *metric.CallMetrics {
	return f.calls
}

// Harts returns n harts with IDs 0 to n-1, all trapping into f.
func (f *Firmware) Harts(n int) []*hart.Hart {
	harts := make([]*hart.Hart, n)
	for i := range harts {
		harts[i] = hart.New(uint64(i), f.xlen, f.dispatcher)
	}
	return harts
}

// RecordFirmwareEvent reports a firmware event to the platform PMU, if it
// counts them.
func (f *Firmware) RecordFirmwareEvent(code uint64) {
	if r, ok := f.platform.(platform.EventRecorder); ok {
		r.RecordFirmwareEvent(code)
	}
}

// Counters returns the state of the platform's PMU counters, or nil if the
// platform cannot report it.
func (f *Firmware) Counters() []swpmu.CounterState {
	if i, ok := f.platform.(platform.CounterInspector); ok {
		return i.Counters()
	}
	return nil
}
