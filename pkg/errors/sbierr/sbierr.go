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

// Package sbierr contains the SBI error codes exported as error interface
// pointers. This allows providers to build results from ordinary Go error
// returns while keeping the set of codes that reach the caller fixed.
package sbierr

import (
	goerrors "errors"
	"fmt"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/errors"
)

// The following errors correspond one to one to the non-zero sbi.Errno
// values. They are the only *errors.Error values that carry an SBI code.
var (
	noError             *errors.Error = nil
	ErrFailed                         = errors.New(sbi.ERR_FAILED, "failed")
	ErrNotSupported                   = errors.New(sbi.ERR_NOT_SUPPORTED, "not supported")
	ErrInvalidParam                   = errors.New(sbi.ERR_INVALID_PARAM, "invalid parameter")
	ErrDenied                         = errors.New(sbi.ERR_DENIED, "denied")
	ErrInvalidAddress                 = errors.New(sbi.ERR_INVALID_ADDRESS, "invalid address")
	ErrAlreadyAvailable               = errors.New(sbi.ERR_ALREADY_AVAILABLE, "already available")
	ErrAlreadyStarted                 = errors.New(sbi.ERR_ALREADY_STARTED, "already started")
	ErrAlreadyStopped                 = errors.New(sbi.ERR_ALREADY_STOPPED, "already stopped")
)

// errorSlice holds errors by negated errno for fast translation.
var errorSlice = []*errors.Error{
	-sbi.SUCCESS:               noError,
	-sbi.ERR_FAILED:            ErrFailed,
	-sbi.ERR_NOT_SUPPORTED:     ErrNotSupported,
	-sbi.ERR_INVALID_PARAM:     ErrInvalidParam,
	-sbi.ERR_DENIED:            ErrDenied,
	-sbi.ERR_INVALID_ADDRESS:   ErrInvalidAddress,
	-sbi.ERR_ALREADY_AVAILABLE: ErrAlreadyAvailable,
	-sbi.ERR_ALREADY_STARTED:   ErrAlreadyStarted,
	-sbi.ERR_ALREADY_STOPPED:   ErrAlreadyStopped,
}

// FromErrno returns the error for the given code, or nil for SUCCESS.
//
// Precondition: e.Valid().
func FromErrno(e sbi.Errno) error {
	if !e.Valid() {
		panic(fmt.Sprintf("invalid SBI error requested: %d", int64(e)))
	}
	if e == sbi.SUCCESS {
		return nil
	}
	return errorSlice[-e]
}

// ToErrno converts err to the code placed in a0.
//
// nil is SUCCESS. An *errors.Error anywhere in err's chain contributes its
// code. Every other error is an unspecified provider failure.
func ToErrno(err error) sbi.Errno {
	if err == nil {
		return sbi.SUCCESS
	}
	var e *errors.Error
	if goerrors.As(err, &e) && e != nil && e.Errno().Valid() {
		return e.Errno()
	}
	return sbi.ERR_FAILED
}
