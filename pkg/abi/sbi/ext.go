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

import "fmt"

// ExtensionID identifies an SBI extension. It is passed in register a7.
type ExtensionID uint64

// Standard extension IDs. Most are ASCII encodings of a short name.
const (
	EXT_BASE       ExtensionID = 0x10
	EXT_TIME       ExtensionID = 0x54494D45 // "TIME"
	EXT_IPI        ExtensionID = 0x735049   // "sPI"
	EXT_RFNC       ExtensionID = 0x52464E43 // "RFNC"
	EXT_HSM        ExtensionID = 0x48534D   // "HSM"
	EXT_SRST       ExtensionID = 0x53525354 // "SRST"
	EXT_PMU        ExtensionID = 0x504D55   // "PMU"
	EXT_DBCN       ExtensionID = 0x4442434E // "DBCN"
	EXT_SUSP       ExtensionID = 0x53555350 // "SUSP"
	EXT_CPPC       ExtensionID = 0x43505043 // "CPPC"
	EXT_FWFT       ExtensionID = 0x46574654 // "FWFT"
	EXT_LEGACY_MAX ExtensionID = 0x0F
)

var extensionNames = map[ExtensionID]string{
	EXT_BASE: "base",
	EXT_TIME: "time",
	EXT_IPI:  "ipi",
	EXT_RFNC: "rfence",
	EXT_HSM:  "hsm",
	EXT_SRST: "srst",
	EXT_PMU:  "pmu",
	EXT_DBCN: "dbcn",
	EXT_SUSP: "susp",
	EXT_CPPC: "cppc",
	EXT_FWFT: "fwft",
}

// String implements fmt.Stringer.String.
func (e ExtensionID) String() string {
	if name, ok := extensionNames[e]; ok {
		return name
	}
	if e <= EXT_LEGACY_MAX {
		return fmt.Sprintf("legacy(%#x)", uint64(e))
	}
	return fmt.Sprintf("ext(%#x)", uint64(e))
}

// SpecVersion encodes an SBI specification version as returned by
// sbi_get_spec_version: bit 31 must be zero, bits [30:24] hold the major
// number and bits [23:0] the minor number.
func SpecVersion(major, minor uint32) int64 {
	return int64(major&0x7f)<<24 | int64(minor&0xffffff)
}

// Base extension function IDs.
const (
	BASE_GET_SPEC_VERSION = 0
	BASE_GET_IMPL_ID      = 1
	BASE_GET_IMPL_VERSION = 2
	BASE_PROBE_EXTENSION  = 3
	BASE_GET_MVENDORID    = 4
	BASE_GET_MARCHID      = 5
	BASE_GET_MIMPID       = 6
)

// Registered SBI implementation IDs, as returned by sbi_get_impl_id.
const (
	IMPL_BBL     = 0
	IMPL_OPENSBI = 1
	IMPL_XVISOR  = 2
	IMPL_KVM     = 3
	IMPL_RUSTSBI = 4
	IMPL_DIOSIX  = 5
	IMPL_COFFER  = 6
	IMPL_XEN     = 7
)
