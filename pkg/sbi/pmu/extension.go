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
	"gvisor.dev/sbi/pkg/abi/sbi"
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// fidNames are the names of the PMU functions, indexed by function ID.
var fidNames = [...]string{
	sbi.PMU_NUM_COUNTERS:            "sbi_pmu_num_counters",
	sbi.PMU_COUNTER_GET_INFO:        "sbi_pmu_counter_get_info",
	sbi.PMU_COUNTER_CONFIG_MATCHING: "sbi_pmu_counter_config_matching",
	sbi.PMU_COUNTER_START:           "sbi_pmu_counter_start",
	sbi.PMU_COUNTER_STOP:            "sbi_pmu_counter_stop",
	sbi.PMU_COUNTER_FW_READ:         "sbi_pmu_counter_fw_read",
}

// Extension is the PMU extension. It decodes the argument registers of each
// function and forwards the call to the provider in its Registry. It holds no
// state of its own.
type Extension struct {
	reg  *Registry
	xlen int
}

// NewExtension returns the PMU extension for harts of the given XLEN (32 or
// 64), backed by reg.
func NewExtension(reg *Registry, xlen int) *Extension {
	if xlen != 32 && xlen != 64 {
		panic("pmu: XLEN must be 32 or 64")
	}
	return &Extension{reg: reg, xlen: xlen}
}

// ID implements sbi.Extension.ID.
func (*Extension) ID() sbi.ExtensionID { return sbi.EXT_PMU }

// Name implements sbi.Extension.Name.
func (*Extension) Name() string { return "pmu" }

// Probe implements sbi.Extension.Probe. The extension is only available once
// a provider has been installed.
func (e *Extension) Probe() int64 {
	return e.reg.probe()
}

// Handle implements sbi.Extension.Handle.
//
// Register layout:
//
//	num_counters:           -
//	counter_get_info:       a0=counter_idx
//	counter_config_matching: a0=base a1=mask a2=flags a3=event_idx a4=event_data
//	counter_start:          a0=base a1=mask a2=flags a3=initial_value (RV32: a3 lo, a4 hi)
//	counter_stop:           a0=base a1=mask a2=flags
//	counter_fw_read:        a0=counter_idx
func (e *Extension) Handle(fid uint64, args sbicore.Args) sbicore.Ret {
	switch fid {
	case sbi.PMU_NUM_COUNTERS:
		return e.reg.NumCounters()
	case sbi.PMU_COUNTER_GET_INFO:
		idx := args[0].Uint(e.xlen)
		return e.reg.CounterGetInfo(idx)
	case sbi.PMU_COUNTER_CONFIG_MATCHING:
		var (
			base      = args[0].Uint(e.xlen)
			mask      = args[1].Uint(e.xlen)
			flags     = args[2].Uint(e.xlen)
			eventIdx  = args[3].Uint(e.xlen)
			eventData = args[4].Uint(e.xlen)
		)
		return e.reg.CounterConfigMatching(base, mask, flags, eventIdx, eventData)
	case sbi.PMU_COUNTER_START:
		var (
			base  = args[0].Uint(e.xlen)
			mask  = args[1].Uint(e.xlen)
			flags = args[2].Uint(e.xlen)
			init  = sbicore.Pair(e.xlen, args[3], args[4])
		)
		return e.reg.CounterStart(base, mask, flags, init)
	case sbi.PMU_COUNTER_STOP:
		var (
			base  = args[0].Uint(e.xlen)
			mask  = args[1].Uint(e.xlen)
			flags = args[2].Uint(e.xlen)
		)
		return e.reg.CounterStop(base, mask, flags)
	case sbi.PMU_COUNTER_FW_READ:
		idx := args[0].Uint(e.xlen)
		return e.reg.CounterFWRead(idx)
	default:
		return sbicore.NotSupported()
	}
}

// Functions implements sbi.Extension.Functions.
func (e *Extension) Functions() []sbicore.Function {
	installed := e.reg.IsInstalled()
	fns := make([]sbicore.Function, 0, len(fidNames))
	for fid, name := range fidNames {
		fns = append(fns, sbicore.Function{
			ID:        uint64(fid),
			Name:      name,
			Supported: installed,
		})
	}
	return fns
}

var _ sbicore.Extension = (*Extension)(nil)
