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
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/firmware"
	"gvisor.dev/sbi/pkg/platform"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
	"gvisor.dev/sbi/runsbi/config"
)

func testConfig(t *testing.T, flags ...string) *config.Config {
	t.Helper()
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(testFlags)
	if err := testFlags.Parse(flags); err != nil {
		t.Fatalf("Parse(%v): %v", flags, err)
	}
	conf, err := config.NewFromFlags(testFlags)
	if err != nil {
		t.Fatalf("NewFromFlags: %v", err)
	}
	return conf
}

func bootTest(t *testing.T, conf *config.Config) *firmware.Firmware {
	t.Helper()
	fw, _, err := boot(conf, false)
	if err != nil {
		t.Fatal(err)
	}
	return fw
}

func TestParseUint(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint64
	}{
		{"0", 0},
		{"42", 42},
		{"0x504d55", 0x504d55},
		{"0b101", 5},
		{"-1", ^uint64(0)},
		{"18446744073709551615", ^uint64(0)},
	} {
		got, err := parseUint(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("parseUint(%q) = %#x, %v, want %#x", tc.in, got, err, tc.want)
		}
	}
	for _, in := range []string{"", "x", "0x", "18446744073709551616"} {
		if _, err := parseUint(in); err == nil {
			t.Errorf("parseUint(%q) succeeded", in)
		}
	}
}

func TestParseExtension(t *testing.T) {
	for in, want := range map[string]sbi.ExtensionID{
		"pmu":      sbi.EXT_PMU,
		"PMU":      sbi.EXT_PMU,
		"base":     sbi.EXT_BASE,
		"0x504D55": sbi.EXT_PMU,
		"16":       sbi.EXT_BASE,
	} {
		got, err := parseExtension(in)
		if err != nil || got != want {
			t.Errorf("parseExtension(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := parseExtension("warp"); err == nil {
		t.Errorf("parseExtension(warp) succeeded")
	}
}

func TestDescribe(t *testing.T) {
	for _, tc := range []struct {
		platform  string
		probe     int64
		supported bool
	}{
		{platform.Virt, 1, true},
		{platform.NoPMU, 0, false},
	} {
		t.Run(tc.platform, func(t *testing.T) {
			docs := describe(bootTest(t, testConfig(t, "--platform="+tc.platform)).Dispatcher())
			if len(docs) != 2 {
				t.Fatalf("got %d extensions, want 2: %+v", len(docs), docs)
			}
			if docs[0].Name != "base" || docs[1].Name != "pmu" {
				t.Errorf("extensions = %s, %s, want base, pmu", docs[0].Name, docs[1].Name)
			}
			if docs[1].Probe != tc.probe {
				t.Errorf("pmu probe = %d, want %d", docs[1].Probe, tc.probe)
			}
			for _, fn := range docs[1].Functions {
				if fn.Supported != tc.supported {
					t.Errorf("%s supported = %t, want %t", fn.Name, fn.Supported, tc.supported)
				}
			}
		})
	}
}

func TestExtensionsOutput(t *testing.T) {
	docs := describe(bootTest(t, testConfig(t)).Dispatcher())

	var buf bytes.Buffer
	if err := outputJSON(&buf, docs); err != nil {
		t.Fatalf("outputJSON: %v", err)
	}
	var decoded []ExtensionDoc
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
	if diff := cmp.Diff(docs, decoded); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := outputCSV(&buf, docs); err != nil {
		t.Fatalf("outputCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	// Header, 7 base functions and 6 PMU functions.
	if len(rows) != 14 {
		t.Errorf("got %d CSV rows, want 14", len(rows))
	}
	if want := []string{"0x504d55", "pmu", "1", "3", "sbi_pmu_counter_start", "supported"}; !cmp.Equal(rows[len(rows)-3], want) {
		t.Errorf("CSV row = %v, want %v", rows[len(rows)-3], want)
	}

	buf.Reset()
	if err := outputTable(&buf, docs); err != nil {
		t.Fatalf("outputTable: %v", err)
	}
	for _, want := range []string{"base (0x10), probe 1:", "pmu (0x504d55), probe 1:", "sbi_pmu_counter_fw_read"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunStress(t *testing.T) {
	for _, tc := range []struct {
		name  string
		flags []string
	}{
		{name: "default"},
		{name: "rv32", flags: []string{"--xlen=32", "--harts=3"}},
		{name: "more harts than hardware counters", flags: []string{"--harts=8", "--hardware-counters=5"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(t, tc.flags...)
			fw := bootTest(t, conf)
			reports, err := runStress(context.Background(), fw, fw.Harts(conf.Harts), 50)
			if err != nil {
				t.Fatalf("runStress: %v", err)
			}
			if len(reports) != conf.Harts {
				t.Fatalf("got %d reports, want %d", len(reports), conf.Harts)
			}
			for _, r := range reports {
				if r.final != 50 || r.events != 50 {
					t.Errorf("hart %d: final %d after %d events, want 50", r.hart, r.final, r.events)
				}
			}
			var buf bytes.Buffer
			if err := printReports(&buf, reports); err != nil {
				t.Fatalf("printReports: %v", err)
			}
			if !strings.Contains(buf.String(), "all counters released") {
				t.Errorf("report missing summary:\n%s", buf.String())
			}
		})
	}
}

func TestRunStressTooFewCounters(t *testing.T) {
	conf := testConfig(t, "--harts=4", "--firmware-counters=2")
	fw := bootTest(t, conf)
	if _, err := runStress(context.Background(), fw, fw.Harts(conf.Harts), 1); err == nil {
		t.Errorf("runStress with 4 harts and 2 firmware counters succeeded")
	}
}

func TestRunStressCounterLeftRunning(t *testing.T) {
	conf := testConfig(t)
	fw := bootTest(t, conf)
	harts := fw.Harts(conf.Harts)
	// The cycle counter is not used by the stress harts.
	if ret := harts[0].Call(uint64(sbi.EXT_PMU), sbi.PMU_COUNTER_START, 0, 1, 0); !ret.Ok() {
		t.Fatalf("counter_start(0) = %v", ret)
	}
	_, err := runStress(context.Background(), fw, harts, 5)
	if err == nil || !strings.Contains(err.Error(), "[0]") {
		t.Errorf("runStress error = %v, want counter 0 reported", err)
	}
}

func TestUnreleased(t *testing.T) {
	states := []swpmu.CounterState{
		{Index: 0},
		{Index: 1, Started: true},
		{Index: 2, Mapped: true, Event: 0xf0000},
		{Index: 3, Value: 12},
	}
	if diff := cmp.Diff([]uint64{1, 2}, unreleased(states)); diff != "" {
		t.Errorf("unreleased mismatch (-want +got):\n%s", diff)
	}
	if got := unreleased(nil); got != nil {
		t.Errorf("unreleased(nil) = %v, want nil", got)
	}
}

func TestWorkloadMetrics(t *testing.T) {
	conf := testConfig(t)
	fw, set, err := boot(conf, true)
	if err != nil {
		t.Fatal(err)
	}
	workload(fw.Harts(1)[0])

	calls := fw.Calls()
	for _, tc := range []struct {
		fid    uint64
		result sbi.Errno
		want   uint64
	}{
		{sbi.PMU_COUNTER_GET_INFO, sbi.SUCCESS, 24},
		{sbi.PMU_COUNTER_START, sbi.SUCCESS, 1},
		{sbi.PMU_COUNTER_START, sbi.ERR_ALREADY_STARTED, 1},
		{sbi.PMU_COUNTER_START, sbi.ERR_INVALID_PARAM, 1},
		{sbi.PMU_COUNTER_STOP, sbi.SUCCESS, 2},
		{sbi.PMU_COUNTER_STOP, sbi.ERR_ALREADY_STOPPED, 1},
		{sbi.PMU_COUNTER_FW_READ, sbi.SUCCESS, 1},
		{sbi.PMU_COUNTER_FW_READ, sbi.ERR_INVALID_PARAM, 1},
		{0x10, sbi.ERR_NOT_SUPPORTED, 1},
	} {
		if got := calls.Calls(sbi.EXT_PMU, tc.fid, tc.result); got != tc.want {
			t.Errorf("calls(fid %d, %v) = %d, want %d", tc.fid, tc.result, got, tc.want)
		}
	}

	var buf bytes.Buffer
	if err := set.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if want := `sbi_calls_total{extension="pmu",function="3",result="SBI_ERR_ALREADY_STARTED"} 1`; !strings.Contains(buf.String(), want) {
		t.Errorf("metrics missing %q:\n%s", want, buf.String())
	}
}
