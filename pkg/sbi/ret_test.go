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

import (
	"fmt"
	"testing"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/errors/sbierr"
)

func TestRetConstructors(t *testing.T) {
	if r := Success(42); !r.Ok() || r.Value != 42 {
		t.Errorf("Success(42) = %v", r)
	}
	if r := NotSupported(); r.Error != sbi.ERR_NOT_SUPPORTED || r.Value != 0 {
		t.Errorf("NotSupported() = %v", r)
	}
	if r := Fail(sbi.ERR_DENIED); r.Error != sbi.ERR_DENIED || r.Value != 0 {
		t.Errorf("Fail(ERR_DENIED) = %v", r)
	}
}

func TestFailRejectsUndefinedCodes(t *testing.T) {
	for _, e := range []sbi.Errno{sbi.SUCCESS, sbi.Errno(-9), sbi.Errno(7)} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Fail(%v) did not panic", e)
				}
			}()
			Fail(e)
		}()
	}
}

func TestFromError(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want Ret
	}{
		{nil, Success(7)},
		{sbierr.ErrAlreadyStopped, Ret{Error: sbi.ERR_ALREADY_STOPPED}},
		{fmt.Errorf("counter 9: %w", sbierr.ErrInvalidParam), Ret{Error: sbi.ERR_INVALID_PARAM}},
		{fmt.Errorf("bad state"), Ret{Error: sbi.ERR_FAILED}},
	} {
		if got := FromError(7, tc.err); got != tc.want {
			t.Errorf("FromError(7, %v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetRegs(t *testing.T) {
	a0, a1 := Fail(sbi.ERR_NOT_SUPPORTED).Regs()
	if a0 != 0xfffffffffffffffe || a1 != 0 {
		t.Errorf("Regs() = %#x, %#x", a0, a1)
	}
	a0, a1 = Success(-1).Regs()
	if a0 != 0 || a1 != 0xffffffffffffffff {
		t.Errorf("Regs() = %#x, %#x", a0, a1)
	}
}

func TestRetErr(t *testing.T) {
	if err := Success(1).Err(); err != nil {
		t.Errorf("Success(1).Err() = %v", err)
	}
	if err := Fail(sbi.ERR_ALREADY_STARTED).Err(); err != sbierr.ErrAlreadyStarted {
		t.Errorf("Err() = %v, want %v", err, sbierr.ErrAlreadyStarted)
	}
	if err := (Ret{Error: sbi.Errno(-77)}).Err(); err != sbierr.ErrFailed {
		t.Errorf("Err() of undefined code = %v, want %v", err, sbierr.ErrFailed)
	}
}

func TestArgs(t *testing.T) {
	a := MakeArgs(1, 2, 0xffffffff00000003)
	if a[0].Uint64() != 1 || a[1].Uint64() != 2 || a[5].Uint64() != 0 {
		t.Errorf("MakeArgs = %v", a)
	}
	if got := a[2].Uint(32); got != 3 {
		t.Errorf("Uint(32) = %#x, want 3", got)
	}
	if got := a[2].Uint(64); got != 0xffffffff00000003 {
		t.Errorf("Uint(64) = %#x", got)
	}
	if got := Pair(32, Arg{0x11111111}, Arg{0x22222222}); got != 0x2222222211111111 {
		t.Errorf("Pair(32) = %#x", got)
	}
	if got := Pair(64, Arg{0x11111111}, Arg{0x22222222}); got != 0x11111111 {
		t.Errorf("Pair(64) = %#x", got)
	}
}
