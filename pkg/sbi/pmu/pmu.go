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

// Package pmu implements the SBI Performance Monitoring Unit extension
// (EID 0x504D55).
//
// The extension lets supervisor software discover and configure the per-hart
// hardware and firmware counters that only machine mode may program. Each
// counter has a logical counter_idx. A set of counters is addressed by a base
// index plus a bitmask (CounterSet). Platform code supplies a Provider and
// installs it into a Registry once at boot; Extension routes calls to it.
package pmu

import (
	"math/bits"

	"gvisor.dev/sbi/pkg/abi/sbi"
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// Provider is the platform-specific implementation of the PMU extension.
//
// Calls are serialized by the Registry holding the provider, so
// implementations need not lock against each other. State shared with code
// outside the Registry, such as firmware event tallies, must be synchronized
// by the provider.
type Provider interface {
	// NumCounters returns the number of counters, hardware and firmware.
	NumCounters() sbicore.Ret

	// CounterGetInfo returns the counter_info word describing counterIdx.
	CounterGetInfo(counterIdx uint64) sbicore.Ret

	// CounterConfigMatching finds a counter in the set [base, mask] able to
	// monitor eventIdx, configures it and returns its index.
	CounterConfigMatching(base, mask, configFlags, eventIdx, eventData uint64) sbicore.Ret

	// CounterStart starts the counters in the set [base, mask]. Bit 0 of
	// startFlags requests that the counters first be set to initialValue;
	// the remaining bits are reserved and must be rejected with
	// ERR_INVALID_PARAM. Counters already running yield ERR_ALREADY_STARTED
	// and counters that do not exist ERR_INVALID_PARAM.
	CounterStart(base, mask, startFlags, initialValue uint64) sbicore.Ret

	// CounterStop stops the counters in the set [base, mask]. Bit 0 of
	// stopFlags resets the counter to event mapping. Counters not running
	// yield ERR_ALREADY_STOPPED.
	CounterStop(base, mask, stopFlags uint64) sbicore.Ret

	// CounterFWRead returns the current value of firmware counter
	// counterIdx. It does not modify any state.
	CounterFWRead(counterIdx uint64) sbicore.Ret
}

// CounterSet is a set of counters described by a base index and a bitmask:
// bit i of Mask selects counter Base+i.
type CounterSet struct {
	Base uint64
	Mask uint64
}

// Empty returns true if the set selects no counter.
func (s CounterSet) Empty() bool {
	return s.Mask == 0
}

// Len returns the number of counters in the set.
func (s CounterSet) Len() int {
	return bits.OnesCount64(s.Mask)
}

// ForEach calls fn with each counter index in ascending order, stopping early
// if fn returns false. Iteration ends at the first index past 2^64-1.
func (s CounterSet) ForEach(fn func(idx uint64) bool) {
	for m := s.Mask; m != 0; m &= m - 1 {
		off := uint64(bits.TrailingZeros64(m))
		idx, carry := bits.Add64(s.Base, off, 0)
		if carry != 0 {
			return
		}
		if !fn(idx) {
			return
		}
	}
}

// Indices returns the counter indices in the set in ascending order.
func (s CounterSet) Indices() []uint64 {
	idxs := make([]uint64, 0, s.Len())
	s.ForEach(func(idx uint64) bool {
		idxs = append(idxs, idx)
		return true
	})
	return idxs
}

// Overflows returns true if some index in the set is not representable.
func (s CounterSet) Overflows() bool {
	if s.Mask == 0 {
		return false
	}
	top := uint64(63 - bits.LeadingZeros64(s.Mask))
	_, carry := bits.Add64(s.Base, top, 0)
	return carry != 0
}

// EventIdx is a 20-bit PMU event index: event_idx[19:16] is the event type
// and event_idx[15:0] the event code.
type EventIdx uint64

// MakeEvent returns the event index for the given type and code.
func MakeEvent(typ, code uint64) EventIdx {
	return EventIdx((typ&0xf)<<16 | code&0xffff)
}

// Type returns the event type.
func (e EventIdx) Type() uint64 {
	return uint64(e>>16) & 0xf
}

// Code returns the event code.
func (e EventIdx) Code() uint64 {
	return uint64(e) & 0xffff
}

// Valid returns true if no bit above the 20-bit event index is set.
func (e EventIdx) Valid() bool {
	return e>>20 == 0
}

// IsFirmware returns true for firmware events.
func (e EventIdx) IsFirmware() bool {
	return e.Type() == sbi.PMU_EVENT_TYPE_FW
}

// CounterInfo is the decoded form of the counter_info word.
type CounterInfo struct {
	// Firmware is true for firmware counters, which have no CSR.
	Firmware bool

	// CSR is the CSR number of a hardware counter.
	CSR uint16

	// Width is the number of bits in a hardware counter.
	Width uint8
}

// Encode returns the counter_info word for an XLEN-bit hart.
func (c CounterInfo) Encode(xlen int) uint64 {
	if c.Firmware {
		return 1 << (xlen - 1)
	}
	w := uint64(c.Width-1) & sbi.PMU_COUNTER_INFO_WIDTH_MASK
	return uint64(c.CSR)&sbi.PMU_COUNTER_INFO_CSR_MASK | w<<sbi.PMU_COUNTER_INFO_WIDTH_SHIFT
}

// DecodeCounterInfo decodes a counter_info word returned on an XLEN-bit hart.
func DecodeCounterInfo(xlen int, info uint64) CounterInfo {
	if info&(1<<(xlen-1)) != 0 {
		return CounterInfo{Firmware: true}
	}
	return CounterInfo{
		CSR:   uint16(info & sbi.PMU_COUNTER_INFO_CSR_MASK),
		Width: uint8((info>>sbi.PMU_COUNTER_INFO_WIDTH_SHIFT)&sbi.PMU_COUNTER_INFO_WIDTH_MASK) + 1,
	}
}
