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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/hart"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/runsbi/cmd/util"
	"gvisor.dev/sbi/runsbi/config"
)

// Ecall implements subcommands.Command for the "ecall" command.
type Ecall struct {
	eid    string
	fid    uint64
	hart   int
	output string
}

// Name implements subcommands.Command.Name.
func (*Ecall) Name() string {
	return "ecall"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Ecall) Synopsis() string {
	return "boot the firmware and issue one SBI call"
}

// Usage implements subcommands.Command.Usage.
func (*Ecall) Usage() string {
	return `ecall [flags] [a0 [a1 ... a5]] - boot the firmware, issue the SBI call described
by -eid, -fid and the argument registers on one hart, and print the result.

Register values may be given in decimal, or in hex, octal or binary with a
0x, 0o or 0b prefix.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Ecall) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.eid, "eid", "base", "extension ID (a7), as a number or a name such as pmu.")
	f.Uint64Var(&e.fid, "fid", 0, "function ID (a6).")
	f.IntVar(&e.hart, "hart", 0, "ID of the hart issuing the call.")
	f.StringVar(&e.output, "o", "text", "Output format (text, json).")
}

// ecallResult is the JSON output of the ecall command.
type ecallResult struct {
	Hart  uint64   `json:"hart"`
	EID   uint64   `json:"eid"`
	FID   uint64   `json:"fid"`
	Args  []uint64 `json:"args"`
	Error string   `json:"error"`
	Value int64    `json:"value"`
	A0    uint64   `json:"a0"`
	A1    uint64   `json:"a1"`
}

// Execute implements subcommands.Command.Execute.
func (e *Ecall) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)

	if f.NArg() > 6 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if e.output != "text" && e.output != "json" {
		return util.Errorf("Unsupported output format %q", e.output)
	}
	eid, err := parseExtension(e.eid)
	if err != nil {
		return util.Errorf("%v", err)
	}
	regs := make([]uint64, 0, f.NArg())
	for _, arg := range f.Args() {
		v, err := parseUint(arg)
		if err != nil {
			return util.Errorf("invalid argument %q: %v", arg, err)
		}
		regs = append(regs, v)
	}
	if e.hart < 0 || e.hart >= conf.Harts {
		return util.Errorf("hart %d out of range, --harts=%d", e.hart, conf.Harts)
	}

	fw, set, err := boot(conf, false)
	if err != nil {
		return util.Errorf("%v", err)
	}
	h := fw.Harts(conf.Harts)[e.hart]
	ret := h.Call(uint64(eid), e.fid, regs...)

	if err := e.print(os.Stdout, h, eid, regs, ret); err != nil {
		return util.Errorf("Error writing output: %v", err)
	}
	if err := writeMetricsFile(conf, set); err != nil {
		return util.Errorf("Error writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}

func (e *Ecall) print(w io.Writer, h *hart.Hart, eid sbi.ExtensionID, regs []uint64, ret sbicore.Ret) error {
	switch e.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ecallResult{
			Hart:  h.ID,
			EID:   uint64(eid),
			FID:   e.fid,
			Args:  regs,
			Error: ret.Error.String(),
			Value: ret.Value,
			A0:    h.X[hart.RegA0],
			A1:    h.X[hart.RegA1],
		})
	case "text":
		_, err := fmt.Fprintf(w, "%v: %v fid=%d -> %v\n", h, eid, e.fid, ret)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", e.output)
	}
}
