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

package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/hart"
	"gvisor.dev/sbi/pkg/log"
	"gvisor.dev/sbi/pkg/sbi/pmu"
	"gvisor.dev/sbi/runsbi/cmd/util"
	"gvisor.dev/sbi/runsbi/config"
)

// Metrics implements subcommands.Command for the "metrics" command.
type Metrics struct {
	rounds int
}

// Name implements subcommands.Command.Name.
func (*Metrics) Name() string {
	return "metrics"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Metrics) Synopsis() string {
	return "run a sample workload and print call metrics in Prometheus format"
}

// Usage implements subcommands.Command.Usage.
func (*Metrics) Usage() string {
	return `metrics [-rounds=N] - boot the firmware, run a sample supervisor workload on
hart 0 and print the sbi_calls_total counters in Prometheus text format.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Metrics) SetFlags(f *flag.FlagSet) {
	f.IntVar(&m.rounds, "rounds", 1, "number of times the workload is run.")
}

// Execute implements subcommands.Command.Execute.
func (m *Metrics) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)

	fw, set, err := boot(conf, true)
	if err != nil {
		return util.Errorf("%v", err)
	}
	h := fw.Harts(1)[0]
	for i := 0; i < m.rounds; i++ {
		workload(h)
	}
	if err := set.WriteText(os.Stdout); err != nil {
		return util.Errorf("Error writing metrics: %v", err)
	}
	if err := writeMetricsFile(conf, set); err != nil {
		return util.Errorf("Error writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}

// workload issues the calls a supervisor makes to discover and use the PMU,
// including some it is expected to get wrong.
func workload(h *hart.Hart) {
	const (
		base   = uint64(sbi.EXT_BASE)
		pmuEID = uint64(sbi.EXT_PMU)
	)
	h.Call(base, sbi.BASE_GET_SPEC_VERSION)
	h.Call(base, sbi.BASE_GET_IMPL_ID)
	h.Call(base, sbi.BASE_PROBE_EXTENSION, pmuEID)
	h.Call(base, sbi.BASE_PROBE_EXTENSION, uint64(sbi.EXT_HSM))

	num := h.Call(pmuEID, sbi.PMU_NUM_COUNTERS)
	if !num.Ok() {
		log.Infof("PMU not available: %v", num)
		return
	}
	for idx := int64(0); idx < num.Value; idx++ {
		h.Call(pmuEID, sbi.PMU_COUNTER_GET_INFO, uint64(idx))
	}

	cycles := uint64(pmu.MakeEvent(sbi.PMU_EVENT_TYPE_HW, sbi.PMU_HW_CPU_CYCLES))
	ipis := uint64(pmu.MakeEvent(sbi.PMU_EVENT_TYPE_FW, sbi.PMU_FW_IPI_SENT))
	all := uint64(1)<<uint64(num.Value) - 1
	if num.Value >= 64 {
		all = ^uint64(0)
	}

	if c := h.Call(pmuEID, sbi.PMU_COUNTER_CONFIG_MATCHING, 0, all, sbi.PMU_CFG_FLAG_CLEAR_VALUE, cycles); c.Ok() {
		idx := uint64(c.Value)
		h.Call(pmuEID, sbi.PMU_COUNTER_START, idx, 1, sbi.PMU_START_SET_INIT_VALUE, 0)
		h.Call(pmuEID, sbi.PMU_COUNTER_START, idx, 1)
		h.Call(pmuEID, sbi.PMU_COUNTER_STOP, idx, 1, sbi.PMU_STOP_FLAG_RESET)
		h.Call(pmuEID, sbi.PMU_COUNTER_STOP, idx, 1)
	}
	if c := h.Call(pmuEID, sbi.PMU_COUNTER_CONFIG_MATCHING, 0, all, sbi.PMU_CFG_FLAG_AUTO_START, ipis); c.Ok() {
		idx := uint64(c.Value)
		h.Call(pmuEID, sbi.PMU_COUNTER_FW_READ, idx)
		h.Call(pmuEID, sbi.PMU_COUNTER_STOP, idx, 1, sbi.PMU_STOP_FLAG_RESET)
	}

	// Reserved flags and missing counters.
	h.Call(pmuEID, sbi.PMU_COUNTER_START, 0, 1, 0x2)
	h.Call(pmuEID, sbi.PMU_COUNTER_FW_READ, 0)
	h.Call(pmuEID, 0x10)
}
