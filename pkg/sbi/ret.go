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

// Package sbi implements the extension dispatch framework of a RISC-V
// Supervisor Binary Interface implementation.
//
// A supervisor call arrives as an extension ID, a function ID and up to six
// argument registers. The Dispatcher selects the Extension registered for the
// extension ID; the extension decodes the function ID and arguments and calls
// into a platform provider held by a Slot. Every path produces exactly one Ret,
// which is written back into a0 and a1 of the calling hart.
//
// Lock ordering: Slot.mu is a leaf lock. It is never held while calling back
// into the Dispatcher.
package sbi

import (
	"fmt"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/errors/sbierr"
)

// Ret is the value returned by every SBI call: an error code in a0 and a
// result in a1.
//
// Ret is immutable; it is created fresh per call and passed by value.
type Ret struct {
	// Error is SUCCESS iff the call fully succeeded.
	Error sbi.Errno

	// Value is the call-specific result.
	Value int64
}

// Success returns a successful Ret carrying value.
func Success(value int64) Ret {
	return Ret{Error: sbi.SUCCESS, Value: value}
}

// NotSupported returns the canonical reply for an unimplemented extension or
// function, or for an extension with no installed provider.
func NotSupported() Ret {
	return Ret{Error: sbi.ERR_NOT_SUPPORTED}
}

// Fail returns a Ret with the given error code and a zero value.
//
// Precondition: e.Valid() and e != SUCCESS.
func Fail(e sbi.Errno) Ret {
	if !e.Valid() || e == sbi.SUCCESS {
		panic(fmt.Sprintf("sbi.Fail called with %v", e))
	}
	return Ret{Error: e}
}

// FromError returns Success(value) if err is nil, and the error's code with a
// zero value otherwise. Errors not built from sbierr map to ERR_FAILED.
func FromError(value int64, err error) Ret {
	if err == nil {
		return Success(value)
	}
	return Ret{Error: sbierr.ToErrno(err)}
}

// Ok returns true if the call succeeded.
func (r Ret) Ok() bool {
	return r.Error == sbi.SUCCESS
}

// Err returns the error form of r.Error, or nil on success.
func (r Ret) Err() error {
	if !r.Error.Valid() {
		return sbierr.ErrFailed
	}
	return sbierr.FromErrno(r.Error)
}

// Regs returns the values to write into a0 and a1.
func (r Ret) Regs() (a0, a1 uint64) {
	return uint64(r.Error), uint64(r.Value)
}

// String implements fmt.Stringer.String.
func (r Ret) String() string {
	return fmt.Sprintf("{error: %v, value: %#x}", r.Error, uint64(r.Value))
}
