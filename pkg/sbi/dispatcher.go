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

	"github.com/google/btree"
	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/log"
)

// Extension is one SBI extension: a group of functions behind a single
// extension ID.
type Extension interface {
	// ID returns the extension ID, as passed in a7.
	ID() sbi.ExtensionID

	// Name returns a short human readable name.
	Name() string

	// Probe returns the value reported by sbi_probe_extension: zero if the
	// extension is unavailable (for example, no provider is installed),
	// non-zero otherwise.
	Probe() int64

	// Handle executes function fid. It must return NotSupported for any
	// function ID it does not implement, and must never panic on
	// well-typed input.
	Handle(fid uint64, args Args) Ret

	// Functions documents the functions defined for the extension.
	Functions() []Function
}

// Function documents a single function of an extension.
type Function struct {
	// ID is the function ID, as passed in a6.
	ID uint64 `json:"id"`

	// Name is the name used by the SBI specification.
	Name string `json:"name"`

	// Supported reports whether a call can currently succeed.
	Supported bool `json:"supported"`
}

// Observer is notified of every call completed by a Dispatcher.
//
// Observe is called from the trapping hart, outside of any slot lock, and may
// be called concurrently.
type Observer interface {
	Observe(eid sbi.ExtensionID, fid uint64, ret Ret)
}

// Dispatcher routes calls to extensions by extension ID.
//
// Extensions are registered during bring-up. After the first call is
// dispatched the table is read-only, so Handle takes no lock.
type Dispatcher struct {
	table     *btree.BTreeG[Extension]
	observers []Observer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver adds an Observer to the Dispatcher.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		d.AddObserver(o)
	}
}

// AddObserver adds o to the observers notified of each call.
//
// AddObserver must not be called concurrently with Handle.
func (d *Dispatcher) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// NewDispatcher returns a Dispatcher with the base extension registered. The
// base extension reports machine as the identity of the platform.
func NewDispatcher(machine Machine, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		table: btree.NewG(4, func(a, b Extension) bool {
			return a.ID() < b.ID()
		}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Register(&base{machine: machine, d: d})
	return d
}

// Register adds ext to the dispatch table. It panics if another extension is
// already registered with the same ID.
//
// Register must not be called concurrently with Handle.
func (d *Dispatcher) Register(ext Extension) {
	if ext == nil {
		panic("invalid initialization: cannot register a nil extension")
	}
	if old, ok := d.table.Get(key(ext.ID())); ok {
		panic(fmt.Sprintf("invalid initialization: extension %v registered as both %q and %q", ext.ID(), old.Name(), ext.Name()))
	}
	d.table.ReplaceOrInsert(ext)
	log.Infof("SBI extension %s (%#x) registered", ext.Name(), uint64(ext.ID()))
}

// Lookup returns the extension registered for eid, or nil.
func (d *Dispatcher) Lookup(eid sbi.ExtensionID) Extension {
	ext, ok := d.table.Get(key(eid))
	if !ok {
		return nil
	}
	return ext
}

// Extensions returns all registered extensions in ascending ID order.
func (d *Dispatcher) Extensions() []Extension {
	exts := make([]Extension, 0, d.table.Len())
	d.table.Ascend(func(ext Extension) bool {
		exts = append(exts, ext)
		return true
	})
	return exts
}

// Handle dispatches one call. It returns NotSupported for an unknown
// extension, and ERR_FAILED if the extension returned an error code outside
// the SBI taxonomy.
func (d *Dispatcher) Handle(eid, fid uint64, args Args) Ret {
	id := sbi.ExtensionID(eid)
	var ret Ret
	if ext := d.Lookup(id); ext != nil {
		ret = ext.Handle(fid, args)
	} else {
		ret = NotSupported()
	}
	if !ret.Error.Valid() {
		throttle.Warningf(id.String(), "SBI %v fid=%d returned undefined error %v", id, fid, ret.Error)
		ret = Fail(sbi.ERR_FAILED)
	}
	if log.IsLogging(log.Debug) {
		log.Debugf("SBI %v fid=%d args=%#x -> %v", id, fid, args, ret)
	}
	for _, o := range d.observers {
		o.Observe(id, fid, ret)
	}
	return ret
}

// key is a lookup placeholder carrying only an ID.
type key sbi.ExtensionID

// ID implements Extension.ID.
func (k key) ID() sbi.ExtensionID { return sbi.ExtensionID(k) }

// Name implements Extension.Name.
func (key) Name() string { return "" }

// Probe implements Extension.Probe.
func (key) Probe() int64 { return 0 }

// Handle implements Extension.Handle.
func (key) Handle(uint64, Args) Ret { return NotSupported() }

// Functions implements Extension.Functions.
func (key) Functions() []Function { return nil }
