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
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/log"
)

// throttle limits warnings about misbehaving providers and extensions to one
// per second for each slot or extension.
var throttle = log.NewThrottle(nil, time.Second)

// Slot holds at most one provider P for an extension.
//
// Providers are installed during single-threaded platform bring-up, before
// any hart may trap into the firmware, and are never removed. After that the
// slot is only read: each call into the provider happens inside With, which
// serializes calls from all harts. The provider is not reachable any other
// way.
type Slot[P any] struct {
	// name identifies the slot in log messages.
	name string

	// installed is set once provider is valid. It is read without mu by
	// IsInstalled.
	installed atomic.Bool

	mu sync.Mutex

	// +checklocks:mu
	provider P
}

// NewSlot returns an empty slot. name is used in log messages only.
func NewSlot[P any](name string) *Slot[P] {
	return &Slot[P]{name: name}
}

// Install stores p in the slot.
//
// Install is intended to be called exactly once. A second call replaces the
// previous provider; this is only tolerated because installation precedes
// concurrent access.
func (s *Slot[P]) Install(p P) {
	if any(p) == nil {
		panic(fmt.Sprintf("%s: cannot install a nil provider", s.name))
	}
	s.mu.Lock()
	if s.installed.Load() {
		log.Warningf("%s: provider %T replaced by %T", s.name, s.provider, p)
	}
	s.provider = p
	s.mu.Unlock()

	// Publish only once the provider is stored.
	s.installed.Store(true)
	log.Infof("%s: provider %T installed", s.name, p)
}

// IsInstalled returns true if a provider has been installed. It does not
// block.
func (s *Slot[P]) IsInstalled() bool {
	return s.installed.Load()
}

// With calls fn with the installed provider while holding the slot lock and
// returns its result. If no provider is installed, fn is not called and With
// returns NotSupported.
//
// fn must not retain the provider, and must not call back into the slot.
// Arguments used by fn must already be decoded into locals.
func (s *Slot[P]) With(fn func(P) Ret) (ret Ret) {
	if !s.installed.Load() {
		return NotSupported()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			throttle.Warningf(s.name, "%s: provider %T panicked: %v\n%s", s.name, s.provider, r, debug.Stack())
			ret = Fail(sbi.ERR_FAILED)
		}
	}()
	return fn(s.provider)
}
