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

// Package platform describes the boards the firmware can run on and the
// extension providers each one installs at boot.
package platform

import (
	"fmt"
	"sort"
	"sync"

	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/pkg/sbi/pmu"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
)

// Options configures a platform instance.
type Options struct {
	// XLEN is the register width of the harts.
	XLEN int

	// PMU configures the software PMU, on platforms that have one.
	PMU swpmu.Config

	// MVendorID, MArchID and MImpID are reported by the base extension.
	MVendorID int64
	MArchID   int64
	MImpID    int64
}

// Registries are the extension registries a platform installs providers
// into.
type Registries struct {
	PMU *pmu.Registry
}

// Platform is a board.
type Platform interface {
	// Name returns the name the platform was registered under.
	Name() string

	// Describe returns the machine identification reported to the
	// supervisor. The SBI version and implementation fields are filled in
	// by the firmware.
	Describe() sbicore.Machine

	// Install installs the platform's providers. It is called once, before
	// any hart runs.
	Install(r *Registries)
}

// EventRecorder is implemented by platforms that count firmware events.
type EventRecorder interface {
	RecordFirmwareEvent(code uint64)
}

// CounterInspector is implemented by platforms that can report the state of
// their PMU counters.
type CounterInspector interface {
	Counters() []swpmu.CounterState
}

// Constructor creates a platform instance.
type Constructor func(opts Options) (Platform, error)

var (
	mu        sync.Mutex
	platforms = map[string]Constructor{}
)

// Register makes a platform available under name. It panics if name is
// already registered; platforms register from init functions.
func Register(name string, c Constructor) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		panic(fmt.Sprintf("platform %q: nil constructor", name))
	}
	if _, ok := platforms[name]; ok {
		panic(fmt.Sprintf("platform %q registered twice", name))
	}
	platforms[name] = c
}

// Lookup returns the constructor for the named platform.
func Lookup(name string) (Constructor, error) {
	mu.Lock()
	defer mu.Unlock()
	c, ok := platforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %q", name)
	}
	return c, nil
}

// New creates the named platform.
func New(name string, opts Options) (Platform, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	p, err := c(opts)
	if err != nil {
		return nil, fmt.Errorf("creating platform %q: %w", name, err)
	}
	return p, nil
}

// List returns the names of all registered platforms, sorted.
func List() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
