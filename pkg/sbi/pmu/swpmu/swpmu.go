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

// Package swpmu provides a PMU provider backed by software counters.
//
// Hardware counters are laid out as on a real hart: counter 0 is cycle,
// counter 1 is time, counter 2 is instret and the programmable hpmcounters
// follow. Firmware counters come after the hardware counters and count events
// reported with RecordFirmwareEvent.
package swpmu

import (
	"fmt"
	"math/bits"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/log"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/pkg/sbi/pmu"
)

// unknownEvents reports each unknown firmware event code at most once a
// second.
var unknownEvents = log.NewThrottle(nil, time.Second)

// Fixed hardware counters.
const (
	CounterCycle   = 0
	CounterTime    = 1
	CounterInstret = 2

	// firstProgrammable is the index of hpmcounter3.
	firstProgrammable = 3

	// MaxHardwareCounters is the number of counter CSRs.
	MaxHardwareCounters = 32
)

// Config configures a PMU.
type Config struct {
	// HardwareCounters is the number of hardware counters, including the
	// three fixed ones. It must be between 3 and MaxHardwareCounters.
	HardwareCounters int `json:"hardware_counters" toml:"hardware_counters" yaml:"hardware_counters"`

	// FirmwareCounters is the number of firmware counters.
	FirmwareCounters int `json:"firmware_counters" toml:"firmware_counters" yaml:"firmware_counters"`

	// XLEN is the register width of the harts using the PMU.
	XLEN int `json:"xlen" toml:"xlen" yaml:"xlen"`

	// Width is the width in bits of the hardware counters.
	Width int `json:"width" toml:"width" yaml:"width"`
}

// DefaultConfig returns the configuration of the reference platform.
func DefaultConfig() Config {
	return Config{
		HardwareCounters: 8,
		FirmwareCounters: 16,
		XLEN:             64,
		Width:            64,
	}
}

// Validate returns an error if c cannot describe a PMU.
func (c Config) Validate() error {
	if c.HardwareCounters < firstProgrammable || c.HardwareCounters > MaxHardwareCounters {
		return fmt.Errorf("hardware counters must be between %d and %d, got %d", firstProgrammable, MaxHardwareCounters, c.HardwareCounters)
	}
	if c.FirmwareCounters < 0 {
		return fmt.Errorf("firmware counters must not be negative, got %d", c.FirmwareCounters)
	}
	if c.XLEN != 32 && c.XLEN != 64 {
		return fmt.Errorf("xlen must be 32 or 64, got %d", c.XLEN)
	}
	if c.Width < 1 || c.Width > 64 {
		return fmt.Errorf("counter width must be between 1 and 64, got %d", c.Width)
	}
	return nil
}

// counter is the state of one logical counter.
type counter struct {
	started bool
	mapped  bool
	event   pmu.EventIdx

	// value is the counter value when it was last stopped or written.
	value uint64

	// snapshot is the firmware event tally when the counter was started.
	snapshot uint64
}

// PMU is a software PMU. It implements pmu.Provider.
type PMU struct {
	conf Config

	mu sync.Mutex

	// +checklocks:mu
	counters []counter

	// tallies counts firmware events. They are updated without mu.
	tallies [sbi.PMU_FW_MAX]atomic.Uint64
}

// New returns a PMU with all counters stopped and unmapped.
func New(conf Config) (*PMU, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &PMU{
		conf:     conf,
		counters: make([]counter, conf.HardwareCounters+conf.FirmwareCounters),
	}, nil
}

// Config returns the configuration p was created with.
func (p *PMU) Config() Config {
	return p.conf
}

// RecordFirmwareEvent counts one occurrence of firmware event code. Running
// firmware counters mapped to the event observe it. It is safe to call
// concurrently with any other method.
func (p *PMU) RecordFirmwareEvent(code uint64) {
	if code >= sbi.PMU_FW_MAX {
		unknownEvents.Warningf(strconv.FormatUint(code, 10), "swpmu: unknown firmware event %d", code)
		return
	}
	p.tallies[code].Add(1)
}

func (p *PMU) isFirmware(idx uint64) bool {
	return idx >= uint64(p.conf.HardwareCounters)
}

// +checklocks:p.mu
func (p *PMU) exists(idx uint64) bool {
	return idx < uint64(len(p.counters))
}

// read returns the current value of counter c.
//
// +checklocks:p.mu
func (p *PMU) read(c *counter) uint64 {
	if !c.started || !c.mapped || !c.event.IsFirmware() {
		return c.value
	}
	return c.value + p.tallies[c.event.Code()].Load() - c.snapshot
}

// +checklocks:p.mu
func (p *PMU) start(c *counter) {
	c.started = true
	if c.mapped && c.event.IsFirmware() {
		c.snapshot = p.tallies[c.event.Code()].Load()
	}
}

// validSet returns true if s is non-empty and every counter in it exists.
//
// +checklocks:p.mu
func (p *PMU) validSet(s pmu.CounterSet) bool {
	if s.Empty() || s.Overflows() {
		return false
	}
	ok := true
	s.ForEach(func(idx uint64) bool {
		ok = p.exists(idx)
		return ok
	})
	return ok
}

// NumCounters implements pmu.Provider.NumCounters.
func (p *PMU) NumCounters() sbicore.Ret {
	return sbicore.Success(int64(p.conf.HardwareCounters + p.conf.FirmwareCounters))
}

// CounterGetInfo implements pmu.Provider.CounterGetInfo.
func (p *PMU) CounterGetInfo(counterIdx uint64) sbicore.Ret {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists(counterIdx) {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	info := pmu.CounterInfo{Firmware: true}
	if !p.isFirmware(counterIdx) {
		info = pmu.CounterInfo{
			CSR:   uint16(sbi.CSR_CYCLE + counterIdx),
			Width: uint8(p.conf.Width),
		}
	}
	return sbicore.Success(int64(info.Encode(p.conf.XLEN)))
}

// candidates returns the counters able to count e, in preference order.
// It returns ERR_INVALID_PARAM for events that are not defined.
func (p *PMU) candidates(e pmu.EventIdx) ([]uint64, sbi.Errno) {
	hw := uint64(p.conf.HardwareCounters)
	switch e.Type() {
	case sbi.PMU_EVENT_TYPE_FW:
		if e.Code() >= sbi.PMU_FW_MAX {
			return nil, sbi.ERR_INVALID_PARAM
		}
		idxs := make([]uint64, 0, p.conf.FirmwareCounters)
		for i := hw; i < hw+uint64(p.conf.FirmwareCounters); i++ {
			idxs = append(idxs, i)
		}
		return idxs, sbi.SUCCESS
	case sbi.PMU_EVENT_TYPE_HW:
		switch e.Code() {
		case sbi.PMU_HW_NO_EVENT:
			return nil, sbi.ERR_INVALID_PARAM
		case sbi.PMU_HW_CPU_CYCLES:
			return []uint64{CounterCycle}, sbi.SUCCESS
		case sbi.PMU_HW_INSTRUCTIONS:
			return []uint64{CounterInstret}, sbi.SUCCESS
		}
		if e.Code() > sbi.PMU_HW_REF_CPU_CYCLES {
			return nil, sbi.ERR_INVALID_PARAM
		}
		fallthrough
	case sbi.PMU_EVENT_TYPE_HW_CACHE, sbi.PMU_EVENT_TYPE_HW_RAW:
		idxs := make([]uint64, 0, hw-firstProgrammable)
		for i := uint64(firstProgrammable); i < hw; i++ {
			idxs = append(idxs, i)
		}
		return idxs, sbi.SUCCESS
	default:
		return nil, sbi.ERR_INVALID_PARAM
	}
}

// CounterConfigMatching implements pmu.Provider.CounterConfigMatching.
//
// eventData is only meaningful for raw events, which this PMU counts on any
// programmable counter; it is ignored.
func (p *PMU) CounterConfigMatching(base, mask, configFlags, eventIdx, eventData uint64) sbicore.Ret {
	set := pmu.CounterSet{Base: base, Mask: mask}
	event := pmu.EventIdx(eventIdx)
	if configFlags&^uint64(sbi.PMU_CFG_FLAGS_MASK) != 0 || !event.Valid() {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.validSet(set) {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}

	idx, errno := p.match(set, event, configFlags&sbi.PMU_CFG_FLAG_SKIP_MATCH != 0)
	if errno != sbi.SUCCESS {
		return sbicore.Fail(errno)
	}
	c := &p.counters[idx]
	if configFlags&sbi.PMU_CFG_FLAG_SKIP_MATCH == 0 {
		c.mapped = true
		c.event = event
	}
	if configFlags&sbi.PMU_CFG_FLAG_CLEAR_VALUE != 0 {
		c.value = 0
		if c.started {
			p.start(c)
		}
	}
	if configFlags&sbi.PMU_CFG_FLAG_AUTO_START != 0 && !c.started {
		p.start(c)
	}
	log.Debugf("swpmu: event %#x mapped to counter %d", eventIdx, idx)
	return sbicore.Success(int64(idx))
}

// match returns the counter of set to configure for event.
//
// +checklocks:p.mu
func (p *PMU) match(set pmu.CounterSet, event pmu.EventIdx, skip bool) (uint64, sbi.Errno) {
	if skip {
		// The caller has already configured the counter.
		return set.Base + uint64(bits.TrailingZeros64(set.Mask)), sbi.SUCCESS
	}
	cands, errno := p.candidates(event)
	if errno != sbi.SUCCESS {
		return 0, errno
	}
	for _, idx := range cands {
		if idx < set.Base || idx-set.Base >= 64 || set.Mask&(1<<(idx-set.Base)) == 0 {
			continue
		}
		if c := &p.counters[idx]; c.started || (c.mapped && c.event != event) {
			continue
		}
		return idx, sbi.SUCCESS
	}
	return 0, sbi.ERR_NOT_SUPPORTED
}

// CounterStart implements pmu.Provider.CounterStart.
func (p *PMU) CounterStart(base, mask, startFlags, initialValue uint64) sbicore.Ret {
	if startFlags&^uint64(sbi.PMU_START_FLAGS_MASK) != 0 {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	set := pmu.CounterSet{Base: base, Mask: mask}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.validSet(set) {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	errno := sbi.SUCCESS
	set.ForEach(func(idx uint64) bool {
		if p.counters[idx].started {
			errno = sbi.ERR_ALREADY_STARTED
			return false
		}
		return true
	})
	if errno != sbi.SUCCESS {
		return sbicore.Fail(errno)
	}
	set.ForEach(func(idx uint64) bool {
		c := &p.counters[idx]
		if startFlags&sbi.PMU_START_SET_INIT_VALUE != 0 {
			c.value = initialValue
		}
		p.start(c)
		return true
	})
	return sbicore.Success(0)
}

// CounterStop implements pmu.Provider.CounterStop.
func (p *PMU) CounterStop(base, mask, stopFlags uint64) sbicore.Ret {
	if stopFlags&^uint64(sbi.PMU_STOP_FLAGS_MASK) != 0 {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	set := pmu.CounterSet{Base: base, Mask: mask}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.validSet(set) {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	errno := sbi.SUCCESS
	set.ForEach(func(idx uint64) bool {
		if !p.counters[idx].started {
			errno = sbi.ERR_ALREADY_STOPPED
			return false
		}
		return true
	})
	if errno != sbi.SUCCESS {
		return sbicore.Fail(errno)
	}
	set.ForEach(func(idx uint64) bool {
		c := &p.counters[idx]
		c.value = p.read(c)
		c.started = false
		if stopFlags&sbi.PMU_STOP_FLAG_RESET != 0 {
			c.mapped = false
			c.event = 0
		}
		return true
	})
	return sbicore.Success(0)
}

// CounterFWRead implements pmu.Provider.CounterFWRead.
func (p *PMU) CounterFWRead(counterIdx uint64) sbicore.Ret {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists(counterIdx) || !p.isFirmware(counterIdx) {
		return sbicore.Fail(sbi.ERR_INVALID_PARAM)
	}
	v := p.read(&p.counters[counterIdx])
	if p.conf.XLEN == 32 {
		v = uint64(uint32(v))
	}
	return sbicore.Success(int64(v))
}

// CounterState describes one counter for diagnostics.
type CounterState struct {
	Index    uint64 `json:"index"`
	Firmware bool   `json:"firmware"`
	Started  bool   `json:"started"`
	Mapped   bool   `json:"mapped"`
	Event    uint64 `json:"event"`
	Value    uint64 `json:"value"`
}

// Snapshot returns the state of every counter.
func (p *PMU) Snapshot() []CounterState {
	p.mu.Lock()
	defer p.mu.Unlock()
	states := make([]CounterState, len(p.counters))
	for i := range p.counters {
		c := &p.counters[i]
		states[i] = CounterState{
			Index:    uint64(i),
			Firmware: p.isFirmware(uint64(i)),
			Started:  c.started,
			Mapped:   c.mapped,
			Event:    uint64(c.event),
			Value:    p.read(c),
		}
	}
	return states
}

var _ pmu.Provider = (*PMU)(nil)
