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

// Package metric provides counters of firmware activity and exports them in
// the Prometheus text exposition format.
package metric

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrFieldHasNoAllowedValues indicates that the field needs to define
	// some allowed values to be a valid and useful field.
	ErrFieldHasNoAllowedValues = errors.New("metric field does not define any allowed values")

	// ErrTooManyFieldCombinations indicates that the number of unique
	// combinations of fields is too large to support.
	ErrTooManyFieldCombinations = errors.New("metric has too many combinations of allowed field values")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues []string) Field {
	return Field{
		name:          name,
		allowedValues: allowedValues,
	}
}

// fieldMapper maps multi-dimensional fields to a single unique integer key.
type fieldMapper struct {
	fields []Field

	// numFieldCombinations is the number of unique keys for all possible
	// field combinations.
	numFieldCombinations int
}

// newFieldMapper returns a new fieldMapper for the given set of fields.
func newFieldMapper(fields ...Field) (fieldMapper, error) {
	numFieldCombinations := 1
	for _, f := range fields {
		// Passing in a no-allowed-values field is probably a mistake.
		if len(f.allowedValues) == 0 {
			return fieldMapper{}, ErrFieldHasNoAllowedValues
		}
		numFieldCombinations *= len(f.allowedValues)
		if numFieldCombinations > math.MaxUint32 || numFieldCombinations < 0 {
			return fieldMapper{}, ErrTooManyFieldCombinations
		}
	}
	return fieldMapper{
		fields:               fields,
		numFieldCombinations: numFieldCombinations,
	}, nil
}

// lookup returns the key of the given field values.
//
// It must be called with one value per field, each of them allowed, or it
// panics.
func (m fieldMapper) lookup(fieldValues ...string) int {
	if len(fieldValues) != len(m.fields) {
		panic("invalid field lookup depth")
	}
	idx := 0
	remainingCombinationBucket := m.numFieldCombinations
Lookup:
	for i, val := range fieldValues {
		for valIdx, allowedVal := range m.fields[i].allowedValues {
			if val == allowedVal {
				remainingCombinationBucket /= len(m.fields[i].allowedValues)
				idx += remainingCombinationBucket * valIdx
				continue Lookup
			}
		}
		panic(fmt.Sprintf("disallowed value %q for field %q", val, m.fields[i].name))
	}
	return idx
}

// numKeys returns the number of field value combinations.
func (m fieldMapper) numKeys() int {
	return m.numFieldCombinations
}

// keyToMultiField is the reverse of lookup.
func (m fieldMapper) keyToMultiField(key int) []string {
	if len(m.fields) == 0 {
		return nil
	}
	fields := make([]string, len(m.fields))
	remainingCombinationBucket := m.numFieldCombinations
	for i := range m.fields {
		remainingCombinationBucket /= len(m.fields[i].allowedValues)
		fields[i] = m.fields[i].allowedValues[key/remainingCombinationBucket]
		key = key % remainingCombinationBucket
	}
	return fields
}

// Uint64Metric is a cumulative counter, optionally broken down by fields.
type Uint64Metric struct {
	name        string
	description string

	fieldMapper

	// values holds one counter per field value combination.
	values []atomic.Uint64
}

// Name returns the metric name.
func (m *Uint64Metric) Name() string {
	return m.name
}

// Value returns the current value of the metric for the given set of fields.
// This must be called with the correct number of field values or it will
// panic.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.values[m.lookup(fieldValues...)].Load()
}

// Increment increments the metric field by 1.
// This must be called with the correct number of field values or it will
// panic.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.values[m.lookup(fieldValues...)].Add(1)
}

// family returns the metric as a Prometheus counter family. Combinations
// that were never incremented are omitted.
func (m *Uint64Metric) family() *dto.MetricFamily {
	fam := &dto.MetricFamily{
		Name: proto.String(m.name),
		Help: proto.String(m.description),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for key := range m.values {
		v := m.values[key].Load()
		if v == 0 && len(m.fields) > 0 {
			continue
		}
		metric := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(v))},
		}
		for i, val := range m.keyToMultiField(key) {
			metric.Label = append(metric.Label, &dto.LabelPair{
				Name:  proto.String(m.fields[i].name),
				Value: proto.String(val),
			})
		}
		fam.Metric = append(fam.Metric, metric)
	}
	return fam
}

// Set is a collection of metrics with distinct names.
type Set struct {
	mu sync.Mutex

	// +checklocks:mu
	metrics map[string]*Uint64Metric
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{metrics: make(map[string]*Uint64Metric)}
}

// NewUint64Metric creates a counter and adds it to the set.
func (s *Set) NewUint64Metric(name, description string, fields ...Field) (*Uint64Metric, error) {
	f, err := newFieldMapper(fields...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.metrics[name]; ok {
		return nil, ErrNameInUse
	}
	m := &Uint64Metric{
		name:        name,
		description: description,
		fieldMapper: f,
		values:      make([]atomic.Uint64, f.numKeys()),
	}
	s.metrics[name] = m
	return m, nil
}

// Families returns a snapshot of the set as Prometheus metric families,
// sorted by name.
func (s *Set) Families() []*dto.MetricFamily {
	s.mu.Lock()
	metrics := make([]*Uint64Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		metrics = append(metrics, m)
	}
	s.mu.Unlock()

	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })
	fams := make([]*dto.MetricFamily, 0, len(metrics))
	for _, m := range metrics {
		fams = append(fams, m.family())
	}
	return fams
}

// WriteText writes the set to w in the Prometheus text format.
func (s *Set) WriteText(w io.Writer) error {
	for _, fam := range s.Families() {
		if len(fam.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, fam); err != nil {
			return fmt.Errorf("writing metric %q: %w", fam.GetName(), err)
		}
	}
	return nil
}
