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
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/firmware"
	"gvisor.dev/sbi/pkg/hart"
	"gvisor.dev/sbi/pkg/log"
	"gvisor.dev/sbi/pkg/sbi/pmu"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
	"gvisor.dev/sbi/runsbi/cmd/util"
	"gvisor.dev/sbi/runsbi/config"
)

// Stress implements subcommands.Command for the "stress" command.
type Stress struct {
	calls int
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "run PMU calls on all harts concurrently and check the results"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return `stress [flags] - boot the firmware and run --harts harts concurrently. Each hart
maps a firmware counter of its own, records firmware events, reads the counter
back and starts and stops its own hardware counter. Every result is checked.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.calls, "calls", 1000, "number of iterations per hart.")
}

// hartReport is the outcome of one stress hart.
type hartReport struct {
	hart     uint64
	fwIdx    int64
	hwIdx    int64
	calls    int
	events   uint64
	final    int64
	duration time.Duration
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	if s.calls < 1 {
		return util.Errorf("--calls must be positive, got %d", s.calls)
	}

	fw, set, err := boot(conf, false)
	if err != nil {
		return util.Errorf("%v", err)
	}
	if !fw.PMU().IsInstalled() {
		return util.Errorf("platform %q has no PMU", conf.Platform)
	}

	reports, err := runStress(ctx, fw, fw.Harts(conf.Harts), s.calls)
	if err != nil {
		return util.Errorf("stress: %v", err)
	}
	if err := printReports(os.Stdout, reports); err != nil {
		return util.Errorf("Error writing output: %v", err)
	}
	if err := writeMetricsFile(conf, set); err != nil {
		return util.Errorf("Error writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}

// runStress runs calls iterations on every hart concurrently. Each hart owns
// one firmware counter and, while enough exist, one programmable hardware
// counter. Only that hart touches them, so every result is predictable
// despite the harts sharing the PMU.
func runStress(ctx context.Context, fw *firmware.Firmware, harts []*hart.Hart, calls int) ([]hartReport, error) {
	h0 := harts[0]
	ret := h0.Call(uint64(sbi.EXT_PMU), sbi.PMU_NUM_COUNTERS)
	if !ret.Ok() {
		return nil, fmt.Errorf("num_counters: %v", ret)
	}
	num := ret.Value

	// Split the counters into hardware and firmware ones.
	var hw, fwc []int64
	for idx := int64(0); idx < num; idx++ {
		ret := h0.Call(uint64(sbi.EXT_PMU), sbi.PMU_COUNTER_GET_INFO, uint64(idx))
		if !ret.Ok() {
			return nil, fmt.Errorf("counter_get_info(%d): %v", idx, ret)
		}
		info := pmu.DecodeCounterInfo(h0.XLEN(), uint64(ret.Value))
		switch {
		case info.Firmware:
			fwc = append(fwc, idx)
		case info.CSR >= sbi.CSR_CYCLE+3:
			hw = append(hw, idx)
		}
	}
	if len(fwc) < len(harts) {
		return nil, fmt.Errorf("%d harts need as many firmware counters, platform has %d", len(harts), len(fwc))
	}
	log.Infof("Stress: %d harts, %d iterations, %d programmable and %d firmware counters", len(harts), calls, len(hw), len(fwc))

	reports := make([]hartReport, len(harts))
	g, ctx := errgroup.WithContext(ctx)
	for i, h := range harts {
		r := &reports[i]
		r.hart = h.ID
		r.fwIdx = fwc[i]
		r.hwIdx = -1
		if i < len(hw) {
			r.hwIdx = hw[i]
		}
		// Each hart counts a different firmware event so that the
		// expected value of its counter depends only on itself.
		code := uint64(i % sbi.PMU_FW_MAX)
		g.Go(func() error {
			return stressHart(ctx, fw, h, r, code, calls, len(harts))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Every hart stops what it started and resets its firmware counter.
	if held := unreleased(fw.Counters()); len(held) > 0 {
		return nil, fmt.Errorf("counters still started or mapped after stress: %v", held)
	}
	return reports, nil
}

// unreleased returns the indices of counters left started or mapped.
func unreleased(states []swpmu.CounterState) []uint64 {
	var held []uint64
	for _, s := range states {
		if s.Started || s.Mapped {
			held = append(held, s.Index)
		}
	}
	return held
}

func stressHart(ctx context.Context, fw *firmware.Firmware, h *hart.Hart, r *hartReport, code uint64, calls, harts int) error {
	const eid = uint64(sbi.EXT_PMU)
	start := time.Now()
	call := func(fid uint64, args ...uint64) (int64, error) {
		r.calls++
		ret := h.Call(eid, fid, args...)
		if !ret.Ok() {
			return 0, fmt.Errorf("%v: fid %d %#x: %v", h, fid, args, ret)
		}
		return ret.Value, nil
	}

	fwIdx := uint64(r.fwIdx)
	event := uint64(pmu.MakeEvent(sbi.PMU_EVENT_TYPE_FW, code))
	idx, err := call(sbi.PMU_COUNTER_CONFIG_MATCHING, fwIdx, 1, sbi.PMU_CFG_FLAG_CLEAR_VALUE|sbi.PMU_CFG_FLAG_AUTO_START, event)
	if err != nil {
		return err
	}
	if idx != r.fwIdx {
		return fmt.Errorf("%v: config_matching mapped counter %d, want %d", h, idx, r.fwIdx)
	}

	last := int64(0)
	for i := 0; i < calls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fw.RecordFirmwareEvent(code)
		r.events++
		v, err := call(sbi.PMU_COUNTER_FW_READ, fwIdx)
		if err != nil {
			return err
		}
		// Harts sharing an event code also see each other's events.
		if v < last || (harts <= sbi.PMU_FW_MAX && uint64(v) != r.events) {
			return fmt.Errorf("%v: counter %d read %d after %d events, previous read %d", h, fwIdx, v, r.events, last)
		}
		last = v

		if r.hwIdx < 0 {
			continue
		}
		if _, err := call(sbi.PMU_COUNTER_START, uint64(r.hwIdx), 1, sbi.PMU_START_SET_INIT_VALUE, uint64(i)); err != nil {
			return err
		}
		if _, err := call(sbi.PMU_COUNTER_STOP, uint64(r.hwIdx), 1); err != nil {
			return err
		}
	}

	if _, err := call(sbi.PMU_COUNTER_STOP, fwIdx, 1, sbi.PMU_STOP_FLAG_RESET); err != nil {
		return err
	}
	r.final = last
	r.duration = time.Since(start)
	return nil
}

func printReports(w io.Writer, reports []hartReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", "HART", "FW COUNTER", "HW COUNTER", "CALLS", "EVENTS", "FINAL", "TIME"); err != nil {
		return err
	}
	total := 0
	for _, r := range reports {
		hw := "-"
		if r.hwIdx >= 0 {
			hw = fmt.Sprint(r.hwIdx)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%d\t%v\n", r.hart, r.fwIdx, hw, r.calls, r.events, r.final, r.duration.Round(time.Microsecond)); err != nil {
			return err
		}
		total += r.calls
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d harts, %d calls, all results consistent, all counters released\n", len(reports), total)
	return err
}
