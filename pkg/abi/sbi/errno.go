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

// Package sbi contains the constants and types of the RISC-V Supervisor
// Binary Interface that cross the machine-mode/supervisor-mode boundary.
//
// Every value in this package is fixed by the SBI specification. Changing one
// is a protocol break, not a refactor.
package sbi

import "fmt"

// Errno is an SBI error code, as returned in register a0.
type Errno int64

// Standard SBI error codes.
const (
	SUCCESS               Errno = 0
	ERR_FAILED            Errno = -1
	ERR_NOT_SUPPORTED     Errno = -2
	ERR_INVALID_PARAM     Errno = -3
	ERR_DENIED            Errno = -4
	ERR_INVALID_ADDRESS   Errno = -5
	ERR_ALREADY_AVAILABLE Errno = -6
	ERR_ALREADY_STARTED   Errno = -7
	ERR_ALREADY_STOPPED   Errno = -8
)

// minErrno is the most negative error code defined by SBI.
const minErrno = ERR_ALREADY_STOPPED

var errnoNames = [...]string{
	-SUCCESS:               "SBI_SUCCESS",
	-ERR_FAILED:            "SBI_ERR_FAILED",
	-ERR_NOT_SUPPORTED:     "SBI_ERR_NOT_SUPPORTED",
	-ERR_INVALID_PARAM:     "SBI_ERR_INVALID_PARAM",
	-ERR_DENIED:            "SBI_ERR_DENIED",
	-ERR_INVALID_ADDRESS:   "SBI_ERR_INVALID_ADDRESS",
	-ERR_ALREADY_AVAILABLE: "SBI_ERR_ALREADY_AVAILABLE",
	-ERR_ALREADY_STARTED:   "SBI_ERR_ALREADY_STARTED",
	-ERR_ALREADY_STOPPED:   "SBI_ERR_ALREADY_STOPPED",
}

// Valid returns true if e is one of the error codes defined above.
func (e Errno) Valid() bool {
	return e <= SUCCESS && e >= minErrno
}

// String implements fmt.Stringer.String.
func (e Errno) String() string {
	if !e.Valid() {
		return fmt.Sprintf("SBI_ERR(%d)", int64(e))
	}
	return errnoNames[-e]
}

// Errnos returns every defined error code, SUCCESS first.
func Errnos() []Errno {
	es := make([]Errno, 0, len(errnoNames))
	for e := SUCCESS; e >= minErrno; e-- {
		es = append(es, e)
	}
	return es
}
