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

package platform

import (
	"gvisor.dev/sbi/pkg/log"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
)

// Virt is the name of the virtual reference board.
const Virt = "virt"

func init() {
	Register(Virt, newVirt)
}

// virt is a virtual board with a software PMU.
type virt struct {
	opts Options
	pmu  *swpmu.PMU
}

func newVirt(opts Options) (Platform, error) {
	conf := opts.PMU
	conf.XLEN = opts.XLEN
	p, err := swpmu.New(conf)
	if err != nil {
		return nil, err
	}
	return &virt{opts: opts, pmu: p}, nil
}

// Name implements Platform.Name.
func (*virt) Name() string { return Virt }

// Describe implements Platform.Describe.
func (v *virt) Describe() sbicore.Machine {
	return sbicore.Machine{
		MVendorID: v.opts.MVendorID,
		MArchID:   v.opts.MArchID,
		MImpID:    v.opts.MImpID,
	}
}

// Install implements Platform.Install.
func (v *virt) Install(r *Registries) {
	conf := v.pmu.Config()
	log.Infof("Platform %s: PMU with %d hardware and %d firmware counters", Virt, conf.HardwareCounters, conf.FirmwareCounters)
	r.PMU.Install(v.pmu)
}

// RecordFirmwareEvent implements EventRecorder.
func (v *virt) RecordFirmwareEvent(code uint64) {
	v.pmu.RecordFirmwareEvent(code)
}

// Counters implements CounterInspector.
func (v *virt) Counters() []swpmu.CounterState {
	return v.pmu.Snapshot()
}

// PMU returns the board's PMU.
func (v *virt) PMU() *swpmu.PMU {
	return v.pmu
}
