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

package firmware

import (
	"testing"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/metric"
	"gvisor.dev/sbi/pkg/platform"
	sbicore "gvisor.dev/sbi/pkg/sbi"
	"gvisor.dev/sbi/pkg/sbi/pmu"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
)

func testConfig(name string) Config {
	return Config{
		Platform: name,
		Options: platform.Options{
			XLEN:      64,
			PMU:       swpmu.DefaultConfig(),
			MVendorID: 0x489,
		},
		ImplID:      sbi.IMPL_RUSTSBI,
		ImplVersion: 0x10,
	}
}

func boot(t *testing.T, conf Config) *Firmware {
	t.Helper()
	f, err := Boot(conf)
	if err != nil {
		t.Fatalf("Boot(%+v): %v", conf, err)
	}
	return f
}

func TestBootUnknownPlatform(t *testing.T) {
	if _, err := Boot(testConfig("sifive")); err == nil {
		t.Errorf("Boot(sifive) succeeded")
	}
}

func TestBootBadOptions(t *testing.T) {
	conf := testConfig(platform.Virt)
	conf.Options.XLEN = 16
	if _, err := Boot(conf); err == nil {
		t.Errorf("Boot with XLEN 16 succeeded")
	}
}

func TestBase(t *testing.T) {
	h := boot(t, testConfig(platform.Virt)).Harts(1)[0]
	base := uint64(sbi.EXT_BASE)
	for _, tc := range []struct {
		name string
		fid  uint64
		args []uint64
		want sbicore.Ret
	}{
		{name: "spec version", fid: sbi.BASE_GET_SPEC_VERSION, want: sbicore.Success(sbi.SpecVersion(SpecMajor, SpecMinor))},
		{name: "impl id", fid: sbi.BASE_GET_IMPL_ID, want: sbicore.Success(sbi.IMPL_RUSTSBI)},
		{name: "impl version", fid: sbi.BASE_GET_IMPL_VERSION, want: sbicore.Success(0x10)},
		{name: "mvendorid", fid: sbi.BASE_GET_MVENDORID, want: sbicore.Success(0x489)},
		{name: "probe pmu", fid: sbi.BASE_PROBE_EXTENSION, args: []uint64{uint64(sbi.EXT_PMU)}, want: sbicore.Success(1)},
		{name: "probe hsm", fid: sbi.BASE_PROBE_EXTENSION, args: []uint64{uint64(sbi.EXT_HSM)}, want: sbicore.Success(0)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.Call(base, tc.fid, tc.args...); got != tc.want {
				t.Errorf("Call = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNoPMU(t *testing.T) {
	f := boot(t, testConfig(platform.NoPMU))
	if f.PMU().IsInstalled() {
		t.Errorf("PMU installed on %s", platform.NoPMU)
	}
	h := f.Harts(1)[0]
	if got, want := h.Call(uint64(sbi.EXT_BASE), sbi.BASE_PROBE_EXTENSION, uint64(sbi.EXT_PMU)), sbicore.Success(0); got != want {
		t.Errorf("probe PMU = %v, want %v", got, want)
	}
	for fid := uint64(0); fid <= 6; fid++ {
		if got, want := h.Call(uint64(sbi.EXT_PMU), fid, 0, 1), sbicore.NotSupported(); got != want {
			t.Errorf("PMU fid %d = %v, want %v", fid, got, want)
		}
	}
	// No PMU counts the event; it is dropped.
	f.RecordFirmwareEvent(sbi.PMU_FW_SET_TIMER)
}

func TestFirmwareEvents(t *testing.T) {
	f := boot(t, testConfig(platform.Virt))
	h := f.Harts(1)[0]
	const pmuEID = uint64(sbi.EXT_PMU)

	ev := uint64(pmu.MakeEvent(sbi.PMU_EVENT_TYPE_FW, sbi.PMU_FW_SET_TIMER))
	ret := h.Call(pmuEID, sbi.PMU_COUNTER_CONFIG_MATCHING, 8, 0xff, sbi.PMU_CFG_FLAG_AUTO_START, ev)
	if !ret.Ok() {
		t.Fatalf("config_matching = %v", ret)
	}
	idx := uint64(ret.Value)
	for i := 0; i < 4; i++ {
		f.RecordFirmwareEvent(sbi.PMU_FW_SET_TIMER)
	}
	if got, want := h.Call(pmuEID, sbi.PMU_COUNTER_FW_READ, idx), sbicore.Success(4); got != want {
		t.Errorf("fw_read = %v, want %v", got, want)
	}
}

func TestCounters(t *testing.T) {
	f := boot(t, testConfig(platform.Virt))
	h := f.Harts(1)[0]
	if got := h.Call(uint64(sbi.EXT_PMU), sbi.PMU_COUNTER_START, 2, 1, 0); !got.Ok() {
		t.Fatalf("counter_start = %v", got)
	}
	states := f.Counters()
	if got, want := len(states), 24; got != want {
		t.Fatalf("got %d counters, want %d", got, want)
	}
	var started []uint64
	for _, s := range states {
		if s.Started {
			started = append(started, s.Index)
		}
	}
	if len(started) != 1 || started[0] != 2 {
		t.Errorf("started counters = %v, want [2]", started)
	}

	if got := boot(t, testConfig(platform.NoPMU)).Counters(); got != nil {
		t.Errorf("nopmu Counters() = %v, want nil", got)
	}
}

func TestHarts(t *testing.T) {
	harts := boot(t, testConfig(platform.Virt)).Harts(4)
	for i, h := range harts {
		if h.ID != uint64(i) || h.XLEN() != 64 {
			t.Errorf("hart %d: ID %d XLEN %d", i, h.ID, h.XLEN())
		}
	}
}

func TestMetrics(t *testing.T) {
	conf := testConfig(platform.Virt)
	conf.Metrics = metric.NewSet()
	f := boot(t, conf)
	h := f.Harts(1)[0]
	h.Call(uint64(sbi.EXT_PMU), sbi.PMU_COUNTER_STOP, 0, 1)
	h.Call(uint64(sbi.EXT_PMU), sbi.PMU_COUNTER_STOP, 0, 1)
	if got := f.Calls().Calls(sbi.EXT_PMU, sbi.PMU_COUNTER_STOP, sbi.ERR_ALREADY_STOPPED); got != 2 {
		t.Errorf("stop calls = %d, want 2", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	if f := boot(t, testConfig(platform.Virt)); f.Calls() != nil {
		t.Errorf("Calls = %v, want nil", f.Calls())
	}
}
