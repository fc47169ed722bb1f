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

// Package cmd holds implementations of the runsbi commands.
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gvisor.dev/sbi/pkg/abi/sbi"
	"gvisor.dev/sbi/pkg/firmware"
	"gvisor.dev/sbi/pkg/metric"
	"gvisor.dev/sbi/runsbi/config"
)

// boot boots the firmware described by conf. Call metrics are collected when
// collect is true or conf names a metrics file.
func boot(conf *config.Config, collect bool) (*firmware.Firmware, *metric.Set, error) {
	var set *metric.Set
	if collect || conf.MetricsFile != "" {
		set = metric.NewSet()
	}
	f, err := firmware.Boot(conf.Firmware(set))
	if err != nil {
		return nil, nil, fmt.Errorf("booting firmware: %w", err)
	}
	return f, set, nil
}

// writeMetricsFile writes set to the metrics file named in conf, if any.
func writeMetricsFile(conf *config.Config, set *metric.Set) error {
	if conf.MetricsFile == "" || set == nil {
		return nil
	}
	f, err := os.Create(conf.MetricsFile)
	if err != nil {
		return err
	}
	if err := set.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// parseUint parses a register value. Prefixes 0x, 0o and 0b select the base
// and negative values are accepted in two's complement.
func parseUint(s string) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		return uint64(v), err
	}
	return strconv.ParseUint(s, 0, 64)
}

// extensionNames maps names accepted for -eid to extension IDs.
var extensionNames = map[string]sbi.ExtensionID{
	"base":   sbi.EXT_BASE,
	"time":   sbi.EXT_TIME,
	"ipi":    sbi.EXT_IPI,
	"rfence": sbi.EXT_RFNC,
	"hsm":    sbi.EXT_HSM,
	"srst":   sbi.EXT_SRST,
	"pmu":    sbi.EXT_PMU,
	"dbcn":   sbi.EXT_DBCN,
	"susp":   sbi.EXT_SUSP,
	"cppc":   sbi.EXT_CPPC,
	"fwft":   sbi.EXT_FWFT,
}

// parseExtension parses an extension name or number.
func parseExtension(s string) (sbi.ExtensionID, error) {
	if id, ok := extensionNames[strings.ToLower(s)]; ok {
		return id, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid extension %q: not a known name or number", s)
	}
	return sbi.ExtensionID(v), nil
}
