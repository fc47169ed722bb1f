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
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/sbi/pkg/abi/sbi"
)

// echo is an extension that returns its first argument from function 0.
type echo struct {
	id        sbi.ExtensionID
	available bool
}

func (e *echo) ID() sbi.ExtensionID { return e.id }
func (e *echo) Name() string        { return "echo" }

func (e *echo) Probe() int64 {
	if e.available {
		return 1
	}
	return 0
}

func (e *echo) Handle(fid uint64, args Args) Ret {
	if fid != 0 {
		return NotSupported()
	}
	return Success(args[0].Int64())
}

func (e *echo) Functions() []Function {
	return []Function{{ID: 0, Name: "echo", Supported: true}}
}

type recorder struct {
	mu    sync.Mutex
	calls []sbi.ExtensionID
}

func (r *recorder) Observe(eid sbi.ExtensionID, fid uint64, ret Ret) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, eid)
}

var testMachine = Machine{
	SpecMajor:   0,
	SpecMinor:   3,
	ImplID:      sbi.IMPL_RUSTSBI,
	ImplVersion: 0x100,
	MVendorID:   0x489,
	MArchID:     7,
	MImpID:      0x20181004,
}

func TestDispatcherUnknownExtension(t *testing.T) {
	d := NewDispatcher(testMachine)
	for _, eid := range []uint64{0, 0x1, 0x735049, 0xdeadbeef} {
		if ret := d.Handle(eid, 0, Args{}); ret != NotSupported() {
			t.Errorf("Handle(%#x, 0) = %v, want %v", eid, ret, NotSupported())
		}
	}
}

func TestDispatcherRoutes(t *testing.T) {
	d := NewDispatcher(testMachine)
	d.Register(&echo{id: 0x0a000000, available: true})
	if ret := d.Handle(0x0a000000, 0, MakeArgs(99)); ret != Success(99) {
		t.Errorf("Handle() = %v, want %v", ret, Success(99))
	}
	if ret := d.Handle(0x0a000000, 1, MakeArgs(99)); ret != NotSupported() {
		t.Errorf("Handle() unknown fid = %v, want %v", ret, NotSupported())
	}
}

// rogue returns an error code outside the taxonomy.
type rogue struct{ echo }

func (*rogue) Handle(uint64, Args) Ret { return Ret{Error: -42, Value: 7} }

func TestDispatcherUndefinedError(t *testing.T) {
	d := NewDispatcher(testMachine)
	d.Register(&rogue{echo{id: 0x0a000000}})
	if got, want := d.Handle(0x0a000000, 0, Args{}), Fail(sbi.ERR_FAILED); got != want {
		t.Errorf("Handle() = %v, want %v", got, want)
	}
}

func TestDispatcherDuplicateRegister(t *testing.T) {
	d := NewDispatcher(testMachine)
	d.Register(&echo{id: 0x0a000000})
	defer func() {
		if recover() == nil {
			t.Errorf("duplicate Register did not panic")
		}
	}()
	d.Register(&echo{id: 0x0a000000})
}

func TestDispatcherExtensionsOrdered(t *testing.T) {
	d := NewDispatcher(testMachine)
	d.Register(&echo{id: 0x0c000000})
	d.Register(&echo{id: 0x0b000000})
	var got []sbi.ExtensionID
	for _, ext := range d.Extensions() {
		got = append(got, ext.ID())
	}
	want := []sbi.ExtensionID{sbi.EXT_BASE, 0x0b000000, 0x0c000000}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extensions() mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcherObserver(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(testMachine, WithObserver(r))
	d.Handle(uint64(sbi.EXT_BASE), sbi.BASE_GET_SPEC_VERSION, Args{})
	d.Handle(0x12345, 0, Args{})
	want := []sbi.ExtensionID{sbi.EXT_BASE, 0x12345}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("observed calls mismatch (-want +got):\n%s", diff)
	}
}

func TestBaseExtension(t *testing.T) {
	d := NewDispatcher(testMachine)
	d.Register(&echo{id: 0x0a000000, available: true})
	d.Register(&echo{id: 0x0b000000, available: false})

	for _, tc := range []struct {
		name string
		fid  uint64
		args Args
		want Ret
	}{
		{"spec version", sbi.BASE_GET_SPEC_VERSION, Args{}, Success(3)},
		{"impl id", sbi.BASE_GET_IMPL_ID, Args{}, Success(sbi.IMPL_RUSTSBI)},
		{"impl version", sbi.BASE_GET_IMPL_VERSION, Args{}, Success(0x100)},
		{"probe base", sbi.BASE_PROBE_EXTENSION, MakeArgs(uint64(sbi.EXT_BASE)), Success(1)},
		{"probe available", sbi.BASE_PROBE_EXTENSION, MakeArgs(0x0a000000), Success(1)},
		{"probe unavailable", sbi.BASE_PROBE_EXTENSION, MakeArgs(0x0b000000), Success(0)},
		{"probe unknown", sbi.BASE_PROBE_EXTENSION, MakeArgs(0x0c000000), Success(0)},
		{"mvendorid", sbi.BASE_GET_MVENDORID, Args{}, Success(0x489)},
		{"marchid", sbi.BASE_GET_MARCHID, Args{}, Success(7)},
		{"mimpid", sbi.BASE_GET_MIMPID, Args{}, Success(0x20181004)},
		{"unknown", 7, Args{}, NotSupported()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Handle(uint64(sbi.EXT_BASE), tc.fid, tc.args); got != tc.want {
				t.Errorf("Handle(base, %d) = %v, want %v", tc.fid, got, tc.want)
			}
		})
	}
}
