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

package metric

import (
	"bytes"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/common/expfmt"
	"gvisor.dev/sbi/pkg/abi/sbi"
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

func TestFieldMapper(t *testing.T) {
	m, err := newFieldMapper(
		NewField("a", []string{"x", "y"}),
		NewField("b", []string{"1", "2", "3"}),
	)
	if err != nil {
		t.Fatalf("newFieldMapper: %v", err)
	}
	if m.numKeys() != 6 {
		t.Errorf("numKeys = %d, want 6", m.numKeys())
	}
	seen := make(map[int]bool)
	for _, a := range []string{"x", "y"} {
		for _, b := range []string{"1", "2", "3"} {
			key := m.lookup(a, b)
			if seen[key] {
				t.Errorf("lookup(%s, %s) = %d, already used", a, b, key)
			}
			seen[key] = true
			if diff := cmp.Diff([]string{a, b}, m.keyToMultiField(key)); diff != "" {
				t.Errorf("keyToMultiField(%d) mismatch (-want +got):\n%s", key, diff)
			}
		}
	}
}

func TestFieldMapperErrors(t *testing.T) {
	if _, err := newFieldMapper(NewField("empty", nil)); err != ErrFieldHasNoAllowedValues {
		t.Errorf("newFieldMapper(empty) = %v, want %v", err, ErrFieldHasNoAllowedValues)
	}
	m, err := newFieldMapper(NewField("a", []string{"x"}))
	if err != nil {
		t.Fatalf("newFieldMapper: %v", err)
	}
	for _, vals := range [][]string{{"z"}, {"x", "x"}, nil} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("lookup(%q) did not panic", vals)
				}
			}()
			m.lookup(vals...)
		}()
	}
}

func TestSetNameInUse(t *testing.T) {
	s := NewSet()
	if _, err := s.NewUint64Metric("calls", ""); err != nil {
		t.Fatalf("NewUint64Metric: %v", err)
	}
	if _, err := s.NewUint64Metric("calls", ""); err != ErrNameInUse {
		t.Errorf("NewUint64Metric = %v, want %v", err, ErrNameInUse)
	}
}

func TestUint64Metric(t *testing.T) {
	s := NewSet()
	m, err := s.NewUint64Metric("events", "Events.", NewField("kind", []string{"a", "b"}))
	if err != nil {
		t.Fatalf("NewUint64Metric: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Increment("a")
			}
			m.Increment("b")
		}()
	}
	wg.Wait()

	if got := m.Value("a"); got != 1000 {
		t.Errorf("Value(a) = %d, want 1000", got)
	}
	if got := m.Value("b"); got != 10 {
		t.Errorf("Value(b) = %d, want 10", got)
	}
}

// ext is an extension with a fixed ID and name.
type ext struct {
	id   sbi.ExtensionID
	name string
}

func (e ext) ID() sbi.ExtensionID                   { return e.id }
func (e ext) Name() string                          { return e.name }
func (ext) Probe() int64                            { return 1 }
func (ext) Handle(uint64, sbicore.Args) sbicore.Ret { return sbicore.Success(0) }
func (ext) Functions() []sbicore.Function           { return nil }

func TestCallMetrics(t *testing.T) {
	s := NewSet()
	c, err := NewCallMetrics(s, []sbicore.Extension{
		ext{id: sbi.EXT_BASE, name: "base"},
		ext{id: sbi.EXT_PMU, name: "pmu"},
	})
	if err != nil {
		t.Fatalf("NewCallMetrics: %v", err)
	}

	c.Observe(sbi.EXT_PMU, sbi.PMU_COUNTER_START, sbicore.Success(0))
	c.Observe(sbi.EXT_PMU, sbi.PMU_COUNTER_START, sbicore.Fail(sbi.ERR_ALREADY_STARTED))
	c.Observe(sbi.EXT_PMU, sbi.PMU_COUNTER_START, sbicore.Fail(sbi.ERR_ALREADY_STARTED))
	c.Observe(sbi.EXT_TIME, 0, sbicore.NotSupported())
	c.Observe(sbi.EXT_BASE, 1000, sbicore.NotSupported())
	c.Observe(sbi.EXT_BASE, 0, sbicore.Ret{Error: -99})

	for _, tc := range []struct {
		eid    sbi.ExtensionID
		fid    uint64
		result sbi.Errno
		want   uint64
	}{
		{sbi.EXT_PMU, sbi.PMU_COUNTER_START, sbi.SUCCESS, 1},
		{sbi.EXT_PMU, sbi.PMU_COUNTER_START, sbi.ERR_ALREADY_STARTED, 2},
		{sbi.EXT_PMU, sbi.PMU_COUNTER_STOP, sbi.SUCCESS, 0},
		{sbi.EXT_HSM, 0, sbi.ERR_NOT_SUPPORTED, 1},
		{sbi.EXT_BASE, 16, sbi.ERR_NOT_SUPPORTED, 1},
		{sbi.EXT_BASE, 0, sbi.ERR_FAILED, 1},
	} {
		if got := c.Calls(tc.eid, tc.fid, tc.result); got != tc.want {
			t.Errorf("Calls(%v, %d, %v) = %d, want %d", tc.eid, tc.fid, tc.result, got, tc.want)
		}
	}

	var buf bytes.Buffer
	if err := s.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	fams, err := (&expfmt.TextParser{}).TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("parsing exported metrics: %v\n%s", err, buf.String())
	}
	fam, ok := fams["sbi_calls_total"]
	if !ok {
		t.Fatalf("sbi_calls_total not exported: %v", fams)
	}
	got := make(map[string]float64)
	for _, m := range fam.GetMetric() {
		labels := ""
		for _, l := range m.GetLabel() {
			labels += l.GetName() + "=" + l.GetValue() + ","
		}
		got[labels] = m.GetCounter().GetValue()
	}
	want := map[string]float64{
		"extension=pmu,function=3,result=SBI_SUCCESS,":                1,
		"extension=pmu,function=3,result=SBI_ERR_ALREADY_STARTED,":    2,
		"extension=other,function=0,result=SBI_ERR_NOT_SUPPORTED,":    1,
		"extension=base,function=other,result=SBI_ERR_NOT_SUPPORTED,": 1,
		"extension=base,function=0,result=SBI_ERR_FAILED,":            1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("exported counters mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTextSkipsEmpty(t *testing.T) {
	s := NewSet()
	if _, err := s.NewUint64Metric("labelled", "", NewField("k", []string{"v"})); err != nil {
		t.Fatalf("NewUint64Metric: %v", err)
	}
	var buf bytes.Buffer
	if err := s.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteText wrote %q for metrics never incremented", buf.String())
	}
}
