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

// PMU extension function IDs.
const (
	PMU_NUM_COUNTERS            = 0
	PMU_COUNTER_GET_INFO        = 1
	PMU_COUNTER_CONFIG_MATCHING = 2
	PMU_COUNTER_START           = 3
	PMU_COUNTER_STOP            = 4
	PMU_COUNTER_FW_READ         = 5
)

// Flags for sbi_pmu_counter_config_matching.
const (
	PMU_CFG_FLAG_SKIP_MATCH  = 1 << 0
	PMU_CFG_FLAG_CLEAR_VALUE = 1 << 1
	PMU_CFG_FLAG_AUTO_START  = 1 << 2
	PMU_CFG_FLAG_SET_VUINH   = 1 << 3
	PMU_CFG_FLAG_SET_VSINH   = 1 << 4
	PMU_CFG_FLAG_SET_UINH    = 1 << 5
	PMU_CFG_FLAG_SET_SINH    = 1 << 6
	PMU_CFG_FLAG_SET_MINH    = 1 << 7

	// PMU_CFG_FLAGS_MASK covers every defined config flag. The remaining
	// bits are reserved.
	PMU_CFG_FLAGS_MASK = 0xff
)

// Flags for sbi_pmu_counter_start. All bits above SET_INIT_VALUE are
// reserved.
const (
	PMU_START_SET_INIT_VALUE = 1 << 0

	PMU_START_FLAGS_MASK = PMU_START_SET_INIT_VALUE
)

// Flags for sbi_pmu_counter_stop. All bits above RESET are reserved.
const (
	PMU_STOP_FLAG_RESET = 1 << 0

	PMU_STOP_FLAGS_MASK = PMU_STOP_FLAG_RESET
)

// PMU event types, event_idx[19:16].
const (
	PMU_EVENT_TYPE_HW       = 0x0
	PMU_EVENT_TYPE_HW_CACHE = 0x1
	PMU_EVENT_TYPE_HW_RAW   = 0x2
	PMU_EVENT_TYPE_FW       = 0xf
)

// Hardware general events (type PMU_EVENT_TYPE_HW).
const (
	PMU_HW_NO_EVENT                = 0
	PMU_HW_CPU_CYCLES              = 1
	PMU_HW_INSTRUCTIONS            = 2
	PMU_HW_CACHE_REFERENCES        = 3
	PMU_HW_CACHE_MISSES            = 4
	PMU_HW_BRANCH_INSTRUCTIONS     = 5
	PMU_HW_BRANCH_MISSES           = 6
	PMU_HW_BUS_CYCLES              = 7
	PMU_HW_STALLED_CYCLES_FRONTEND = 8
	PMU_HW_STALLED_CYCLES_BACKEND  = 9
	PMU_HW_REF_CPU_CYCLES          = 10
)

// Hardware cache IDs, used in event_idx[15:3] of PMU_EVENT_TYPE_HW_CACHE
// events.
const (
	PMU_HW_CACHE_L1D  = 0
	PMU_HW_CACHE_L1I  = 1
	PMU_HW_CACHE_LL   = 2
	PMU_HW_CACHE_DTLB = 3
	PMU_HW_CACHE_ITLB = 4
	PMU_HW_CACHE_BPU  = 5
	PMU_HW_CACHE_NODE = 6
)

// Firmware events (type PMU_EVENT_TYPE_FW).
const (
	PMU_FW_MISALIGNED_LOAD           = 0
	PMU_FW_MISALIGNED_STORE          = 1
	PMU_FW_ACCESS_LOAD               = 2
	PMU_FW_ACCESS_STORE              = 3
	PMU_FW_ILLEGAL_INSN              = 4
	PMU_FW_SET_TIMER                 = 5
	PMU_FW_IPI_SENT                  = 6
	PMU_FW_IPI_RECEIVED              = 7
	PMU_FW_FENCE_I_SENT              = 8
	PMU_FW_FENCE_I_RECEIVED          = 9
	PMU_FW_SFENCE_VMA_SENT           = 10
	PMU_FW_SFENCE_VMA_RECEIVED       = 11
	PMU_FW_SFENCE_VMA_ASID_SENT      = 12
	PMU_FW_SFENCE_VMA_ASID_RECEIVED  = 13
	PMU_FW_HFENCE_GVMA_SENT          = 14
	PMU_FW_HFENCE_GVMA_RECEIVED      = 15
	PMU_FW_HFENCE_GVMA_VMID_SENT     = 16
	PMU_FW_HFENCE_GVMA_VMID_RECEIVED = 17
	PMU_FW_HFENCE_VVMA_SENT          = 18
	PMU_FW_HFENCE_VVMA_RECEIVED      = 19
	PMU_FW_HFENCE_VVMA_ASID_SENT     = 20
	PMU_FW_HFENCE_VVMA_ASID_RECEIVED = 21

	// PMU_FW_MAX is one past the last defined firmware event.
	PMU_FW_MAX = 22
)

// Bit layout of the counter_info word returned by
// sbi_pmu_counter_get_info.
const (
	PMU_COUNTER_INFO_CSR_MASK    = 0xfff
	PMU_COUNTER_INFO_WIDTH_SHIFT = 12
	PMU_COUNTER_INFO_WIDTH_MASK  = 0x3f

	// CSR_CYCLE is the CSR number of the first unprivileged counter. The
	// hardware counter i is accessible as CSR_CYCLE+i.
	CSR_CYCLE = 0xc00
)
