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
	"strconv"

	"gvisor.dev/sbi/pkg/abi/sbi"
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// Field values used for calls outside the known extensions and functions.
const (
	otherExtension = "other"
	otherFunction  = "other"
)

// maxFunctionField is the highest function ID recorded individually.
const maxFunctionField = 15

// CallMetrics counts dispatched SBI calls by extension, function and result.
// It implements sbi.Observer.
type CallMetrics struct {
	calls *Uint64Metric
	names map[sbi.ExtensionID]string
}

// NewCallMetrics creates the sbi_calls_total counter in s, broken down by the
// given extensions.
func NewCallMetrics(s *Set, exts []sbicore.Extension) (*CallMetrics, error) {
	names := make(map[sbi.ExtensionID]string, len(exts))
	extValues := make([]string, 0, len(exts)+1)
	for _, ext := range exts {
		names[ext.ID()] = ext.Name()
		extValues = append(extValues, ext.Name())
	}
	extValues = append(extValues, otherExtension)

	fnValues := make([]string, 0, maxFunctionField+2)
	for fid := 0; fid <= maxFunctionField; fid++ {
		fnValues = append(fnValues, strconv.Itoa(fid))
	}
	fnValues = append(fnValues, otherFunction)

	var errValues []string
	for _, e := range sbi.Errnos() {
		errValues = append(errValues, e.String())
	}

	calls, err := s.NewUint64Metric("sbi_calls_total", "SBI calls handled, by extension, function ID and result.",
		NewField("extension", extValues),
		NewField("function", fnValues),
		NewField("result", errValues))
	if err != nil {
		return nil, err
	}
	return &CallMetrics{calls: calls, names: names}, nil
}

// Observe implements sbi.Observer.Observe.
func (c *CallMetrics) Observe(eid sbi.ExtensionID, fid uint64, ret sbicore.Ret) {
	c.calls.Increment(c.fields(eid, fid, ret.Error)...)
}

// Calls returns the number of calls observed with the given result.
func (c *CallMetrics) Calls(eid sbi.ExtensionID, fid uint64, result sbi.Errno) uint64 {
	return c.calls.Value(c.fields(eid, fid, result)...)
}

func (c *CallMetrics) fields(eid sbi.ExtensionID, fid uint64, result sbi.Errno) []string {
	ext, ok := c.names[eid]
	if !ok {
		ext = otherExtension
	}
	if !result.Valid() {
		result = sbi.ERR_FAILED
	}
	fn := otherFunction
	if fid <= maxFunctionField {
		fn = strconv.FormatUint(fid, 10)
	}
	return []string{ext, fn, result.String()}
}

var _ sbicore.Observer = (*CallMetrics)(nil)
