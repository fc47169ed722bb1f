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
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/google/subcommands"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/runsbi/cmd/util"
	"gvisor.dev/sbi/runsbi/config"
)

// Extensions implements subcommands.Command for the "extensions" command.
type Extensions struct {
	output string
}

// ExtensionDoc describes an extension and its functions.
type ExtensionDoc struct {
	ID        uint64             `json:"id"`
	Name      string             `json:"name"`
	Probe     int64              `json:"probe"`
	Functions []sbicore.Function `json:"functions"`
}

type extensionsOutputFunc func(io.Writer, []ExtensionDoc) error

// extensionsOutputMap maps output type names to output functions.
var extensionsOutputMap = map[string]extensionsOutputFunc{
	"table": outputTable,
	"json":  outputJSON,
	"csv":   outputCSV,
}

// Name implements subcommands.Command.Name.
func (*Extensions) Name() string {
	return "extensions"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Extensions) Synopsis() string {
	return "Print the SBI extensions and functions implemented for the platform."
}

// Usage implements subcommands.Command.Usage.
func (*Extensions) Usage() string {
	return `extensions [options] - Print the SBI extensions and functions implemented for the platform.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Extensions) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.output, "o", "table", "Output format (table, csv, json).")
}

// Execute implements subcommands.Command.Execute.
func (e *Extensions) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	out, ok := extensionsOutputMap[e.output]
	if !ok {
		return util.Errorf("Unsupported output format %q", e.output)
	}
	conf := args[0].(*config.Config)

	fw, _, err := boot(conf, false)
	if err != nil {
		return util.Errorf("%v", err)
	}
	if err := out(os.Stdout, describe(fw.Dispatcher())); err != nil {
		return util.Errorf("Error writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

// describe documents every extension registered in d, in ID order.
func describe(d *sbicore.Dispatcher) []ExtensionDoc {
	var docs []ExtensionDoc
	for _, ext := range d.Extensions() {
		docs = append(docs, ExtensionDoc{
			ID:        uint64(ext.ID()),
			Name:      ext.Name(),
			Probe:     ext.Probe(),
			Functions: ext.Functions(),
		})
	}
	return docs
}

func supportString(supported bool) string {
	if supported {
		return "supported"
	}
	return "not supported"
}

// outputTable outputs the extensions in tabular format.
func outputTable(w io.Writer, docs []ExtensionDoc) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, doc := range docs {
		if _, err := fmt.Fprintf(tw, "%s (%#x), probe %d:\n\n", doc.Name, doc.ID, doc.Probe); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", "FID", "NAME", "SUPPORT"); err != nil {
			return err
		}
		for _, fn := range doc.Functions {
			if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\n", fn.ID, fn.Name, supportString(fn.Supported)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(tw); err != nil {
			return err
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// outputJSON outputs the extensions in JSON format.
func outputJSON(w io.Writer, docs []ExtensionDoc) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(docs)
}

// outputCSV outputs the extensions in CSV format, one row per function.
func outputCSV(w io.Writer, docs []ExtensionDoc) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"EID", "Extension", "Probe", "FID", "Name", "Support"}); err != nil {
		return err
	}
	for _, doc := range docs {
		for _, fn := range doc.Functions {
			err := csvWriter.Write([]string{
				fmt.Sprintf("%#x", doc.ID),
				doc.Name,
				strconv.FormatInt(doc.Probe, 10),
				strconv.FormatUint(fn.ID, 10),
				fn.Name,
				supportString(fn.Supported),
			})
			if err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
