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
	"gvisor.dev/sbi/pkg/abi/sbi"
)

// Machine describes the platform and implementation as reported by the base
// extension.
type Machine struct {
	// SpecMajor and SpecMinor are the implemented SBI specification
	// version.
	SpecMajor uint32
	SpecMinor uint32

	// ImplID and ImplVersion identify the SBI implementation.
	ImplID      int64
	ImplVersion int64

	// MVendorID, MArchID and MImpID are the values of the corresponding
	// machine-mode CSRs.
	MVendorID int64
	MArchID   int64
	MImpID    int64
}

// base is the base extension. It is always present.
type base struct {
	machine Machine
	d       *Dispatcher
}

// ID implements Extension.ID.
func (*base) ID() sbi.ExtensionID { return sbi.EXT_BASE }

// Name implements Extension.Name.
func (*base) Name() string { return "base" }

// Probe implements Extension.Probe.
func (*base) Probe() int64 { return 1 }

// Handle implements Extension.Handle.
func (b *base) Handle(fid uint64, args Args) Ret {
	switch fid {
	case sbi.BASE_GET_SPEC_VERSION:
		return Success(sbi.SpecVersion(b.machine.SpecMajor, b.machine.SpecMinor))
	case sbi.BASE_GET_IMPL_ID:
		return Success(b.machine.ImplID)
	case sbi.BASE_GET_IMPL_VERSION:
		return Success(b.machine.ImplVersion)
	case sbi.BASE_PROBE_EXTENSION:
		ext := b.d.Lookup(sbi.ExtensionID(args[0].Uint64()))
		if ext == nil {
			return Success(0)
		}
		return Success(ext.Probe())
	case sbi.BASE_GET_MVENDORID:
		return Success(b.machine.MVendorID)
	case sbi.BASE_GET_MARCHID:
		return Success(b.machine.MArchID)
	case sbi.BASE_GET_MIMPID:
		return Success(b.machine.MImpID)
	default:
		return NotSupported()
	}
}

// Functions implements Extension.Functions.
func (*base) Functions() []Function {
	return []Function{
		{ID: sbi.BASE_GET_SPEC_VERSION, Name: "sbi_get_spec_version", Supported: true},
		{ID: sbi.BASE_GET_IMPL_ID, Name: "sbi_get_impl_id", Supported: true},
		{ID: sbi.BASE_GET_IMPL_VERSION, Name: "sbi_get_impl_version", Supported: true},
		{ID: sbi.BASE_PROBE_EXTENSION, Name: "sbi_probe_extension", Supported: true},
		{ID: sbi.BASE_GET_MVENDORID, Name: "sbi_get_mvendorid", Supported: true},
		{ID: sbi.BASE_GET_MARCHID, Name: "sbi_get_marchid", Supported: true},
		{ID: sbi.BASE_GET_MIMPID, Name: "sbi_get_mimpid", Supported: true},
	}
}
