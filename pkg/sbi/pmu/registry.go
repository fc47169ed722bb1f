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

package pmu

import (
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// Registry holds the PMU provider installed by the platform.
//
// The zero value is not usable; use NewRegistry.
type Registry struct {
	slot *sbicore.Slot[Provider]
}

// NewRegistry returns a registry with no provider installed.
func NewRegistry() *Registry {
	return &Registry{slot: sbicore.NewSlot[Provider]("pmu")}
}

// Install installs p. It must be called during platform bring-up, before any
// hart issues PMU calls.
func (r *Registry) Install(p Provider) {
	r.slot.Install(p)
}

// IsInstalled returns true if a provider has been installed.
func (r *Registry) IsInstalled() bool {
	return r.slot.IsInstalled()
}

// with calls fn with the provider under the registry lock.
func (r *Registry) with(fn func(Provider) sbicore.Ret) sbicore.Ret {
	return r.slot.With(fn)
}

// NumCounters calls Provider.NumCounters.
func (r *Registry) NumCounters() sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.NumCounters()
	})
}

// CounterGetInfo calls Provider.CounterGetInfo.
func (r *Registry) CounterGetInfo(counterIdx uint64) sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.CounterGetInfo(counterIdx)
	})
}

// CounterConfigMatching calls Provider.CounterConfigMatching.
func (r *Registry) CounterConfigMatching(base, mask, configFlags, eventIdx, eventData uint64) sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.CounterConfigMatching(base, mask, configFlags, eventIdx, eventData)
	})
}

// CounterStart calls Provider.CounterStart.
func (r *Registry) CounterStart(base, mask, startFlags, initialValue uint64) sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.CounterStart(base, mask, startFlags, initialValue)
	})
}

// CounterStop calls Provider.CounterStop.
func (r *Registry) CounterStop(base, mask, stopFlags uint64) sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.CounterStop(base, mask, stopFlags)
	})
}

// CounterFWRead calls Provider.CounterFWRead.
func (r *Registry) CounterFWRead(counterIdx uint64) sbicore.Ret {
	return r.with(func(p Provider) sbicore.Ret {
		return p.CounterFWRead(counterIdx)
	})
}

// Registry satisfies Provider, so it may be handed to code that accepts a
// provider while keeping calls serialized.
var _ Provider = (*Registry)(nil)

// probe returns the value reported by sbi_probe_extension.
func (r *Registry) probe() int64 {
	if r.IsInstalled() {
		return 1
	}
	return 0
}
