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

// Package errors holds the standardized error definition for SBI services.
package errors

import (
	"gvisor.dev/sbi/pkg/abi/sbi"
)

// Error represents an SBI error code with a descriptive message.
type Error struct {
	errno   sbi.Errno
	message string
}

// New creates a new *Error.
func New(err sbi.Errno, message string) *Error {
	return &Error{
		errno:   err,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the underlying sbi.Errno value.
func (e *Error) Errno() sbi.Errno { return e.errno }
