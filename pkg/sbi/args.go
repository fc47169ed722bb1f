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

package sbi

// Arg is an argument register supplied to an SBI call. Accessors convert the
// raw register to the width the function expects.
type Arg struct {
	// Prefer to use accessor methods instead of 'Value' directly.
	Value uint64
}

// Args are the argument registers a0 through a5.
type Args [6]Arg

// MakeArgs returns Args holding the given values, in order starting at a0.
// Missing values are zero; values past a5 are ignored.
func MakeArgs(vals ...uint64) Args {
	var a Args
	for i := 0; i < len(vals) && i < len(a); i++ {
		a[i].Value = vals[i]
	}
	return a
}

// Uint64 returns the register as an unsigned long.
func (a Arg) Uint64() uint64 {
	return a.Value
}

// Int64 returns the register as a signed long.
func (a Arg) Int64() int64 {
	return int64(a.Value)
}

// Uint32 returns the low 32 bits of the register.
func (a Arg) Uint32() uint32 {
	return uint32(a.Value)
}

// Uint returns the register truncated to the given XLEN.
func (a Arg) Uint(xlen int) uint64 {
	if xlen == 32 {
		return uint64(uint32(a.Value))
	}
	return a.Value
}

// Pair returns the 64-bit value split across a low and high register on
// RV32, or lo unchanged on RV64.
func Pair(xlen int, lo, hi Arg) uint64 {
	if xlen == 32 {
		return uint64(lo.Uint32()) | uint64(hi.Uint32())<<32
	}
	return lo.Value
}
