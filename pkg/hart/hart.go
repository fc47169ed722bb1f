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

// Package hart provides a simulated RISC-V hart that traps into SBI
// firmware.
//
// Only the supervisor call path is modelled: a Hart holds the integer
// register file and, on ecall, passes a7, a6 and a0-a5 to a Handler and
// writes the result into a0 and a1.
package hart

import (
	"fmt"

	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// Integer register numbers used by the SBI calling convention.
const (
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA3 = 13
	RegA4 = 14
	RegA5 = 15
	RegA6 = 16
	RegA7 = 17

	// NumRegs is the number of integer registers.
	NumRegs = 32

	// ecallSize is the length of the ecall instruction.
	ecallSize = 4
)

// Handler handles a supervisor call. *sbi.Dispatcher implements Handler.
type Handler interface {
	Handle(eid, fid uint64, args sbicore.Args) sbicore.Ret
}

// Hart is a simulated hart. A Hart is not safe for concurrent use; each
// goroutine should drive its own hart.
type Hart struct {
	// ID is the hart ID.
	ID uint64

	// X is the integer register file. X[0] is always zero.
	X [NumRegs]uint64

	// PC is the address of the next instruction.
	PC uint64

	xlen    int
	handler Handler
}

// New returns hart id, trapping into h.
func New(id uint64, xlen int, h Handler) *Hart {
	if xlen != 32 && xlen != 64 {
		panic(fmt.Sprintf("hart %d: XLEN must be 32 or 64, got %d", id, xlen))
	}
	return &Hart{ID: id, xlen: xlen, handler: h}
}

// XLEN returns the register width of the hart.
func (h *Hart) XLEN() int {
	return h.xlen
}

// Set writes v to register r, truncated to XLEN. Writes to x0 are ignored.
func (h *Hart) Set(r int, v uint64) {
	if r == 0 {
		return
	}
	if h.xlen == 32 {
		v = uint64(uint32(v))
	}
	h.X[r] = v
}

// Ecall executes an ecall instruction: the call described by a7, a6 and
// a0-a5 is handled and its result written to a0 (error) and a1 (value). The
// remaining argument registers are preserved. It returns the result.
func (h *Hart) Ecall() sbicore.Ret {
	eid := h.X[RegA7]
	fid := h.X[RegA6]
	var args sbicore.Args
	for i := range args {
		args[i].Value = h.X[RegA0+i]
	}

	ret := h.handler.Handle(eid, fid, args)

	a0, a1 := ret.Regs()
	h.Set(RegA0, a0)
	h.Set(RegA1, a1)
	h.PC += ecallSize
	return ret
}

// Call loads eid, fid and args into the argument registers and executes an
// ecall. Argument registers without a value are zeroed.
func (h *Hart) Call(eid, fid uint64, args ...uint64) sbicore.Ret {
	if len(args) > RegA5-RegA0+1 {
		panic(fmt.Sprintf("hart %d: %d arguments, at most 6 supported", h.ID, len(args)))
	}
	for r := RegA0; r <= RegA5; r++ {
		var v uint64
		if i := r - RegA0; i < len(args) {
			v = args[i]
		}
		h.Set(r, v)
	}
	h.Set(RegA6, fid)
	h.Set(RegA7, eid)
	return h.Ecall()
}

// String implements fmt.Stringer.
func (h *Hart) String() string {
	return fmt.Sprintf("hart%d", h.ID)
}
