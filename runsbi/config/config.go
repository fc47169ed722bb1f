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

// Package config provides basic infrastructure to set configuration settings
// for runsbi. The configuration is set by flags to the command line. A board
// file may supply defaults for flags that are not given explicitly.
package config

import (
	"fmt"

	"gvisor.dev/sbi/pkg/firmware"
	"gvisor.dev/sbi/pkg/log"
	"gvisor.dev/sbi/pkg/metric"
	"gvisor.dev/sbi/pkg/platform"
	"gvisor.dev/sbi/pkg/sbi/pmu/swpmu"
)

// Config holds configuration that is not part of the command line of a
// single subcommand.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with name and description.
//  4. Add any necessary validation into validate().
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path to log debug information to, if not empty.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// Board is the path of a board file supplying flag defaults.
	Board string `flag:"board"`

	// Platform is the platform to boot.
	Platform string `flag:"platform"`

	// Harts is the number of simulated harts.
	Harts int `flag:"harts"`

	// XLEN is the register width of the harts.
	XLEN int `flag:"xlen"`

	// HardwareCounters is the number of hardware PMU counters, including
	// cycle, time and instret.
	HardwareCounters int `flag:"hardware-counters"`

	// FirmwareCounters is the number of firmware PMU counters.
	FirmwareCounters int `flag:"firmware-counters"`

	// CounterWidth is the width in bits of the hardware counters.
	CounterWidth int `flag:"counter-width"`

	// ImplID and ImplVersion are reported by sbi_get_impl_id and
	// sbi_get_impl_version.
	ImplID      int64 `flag:"impl-id"`
	ImplVersion int64 `flag:"impl-version"`

	// MVendorID, MArchID and MImpID are reported by the base extension.
	MVendorID int64 `flag:"mvendorid"`
	MArchID   int64 `flag:"marchid"`
	MImpID    int64 `flag:"mimpid"`

	// MetricsFile is the path metrics are written to after a command runs,
	// if not empty.
	MetricsFile string `flag:"metrics-file"`
}

func (c *Config) validate() error {
	for _, format := range []string{c.LogFormat, c.DebugLogFormat} {
		switch format {
		case "text", "json":
		default:
			return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", format)
		}
	}
	if _, err := platform.Lookup(c.Platform); err != nil {
		return err
	}
	if c.Harts < 1 || c.Harts > MaxHarts {
		return fmt.Errorf("harts must be between 1 and %d, got %d", MaxHarts, c.Harts)
	}
	if err := c.PMU().Validate(); err != nil {
		return fmt.Errorf("invalid PMU configuration: %w", err)
	}
	return nil
}

// MaxHarts is the largest number of harts that can be simulated.
const MaxHarts = 1024

// PMU returns the software PMU configuration.
func (c *Config) PMU() swpmu.Config {
	return swpmu.Config{
		HardwareCounters: c.HardwareCounters,
		FirmwareCounters: c.FirmwareCounters,
		XLEN:             c.XLEN,
		Width:            c.CounterWidth,
	}
}

// Firmware returns the configuration to boot the firmware with. Call
// metrics are collected into metrics if it is not nil.
func (c *Config) Firmware(metrics *metric.Set) firmware.Config {
	return firmware.Config{
		Platform: c.Platform,
		Options: platform.Options{
			XLEN:      c.XLEN,
			PMU:       c.PMU(),
			MVendorID: c.MVendorID,
			MArchID:   c.MArchID,
			MImpID:    c.MImpID,
		},
		ImplID:      c.ImplID,
		ImplVersion: c.ImplVersion,
		Metrics:     metrics,
	}
}

// Log logs important aspects of the configuration.
func (c *Config) Log() {
	log.Infof("Platform: %s, harts: %d, XLEN: %d", c.Platform, c.Harts, c.XLEN)
	log.Infof("PMU: %d hardware counters (%d bits), %d firmware counters", c.HardwareCounters, c.CounterWidth, c.FirmwareCounters)
	log.Infof("Implementation: ID %d, version %#x", c.ImplID, c.ImplVersion)
	if c.Board != "" {
		log.Infof("Board file: %s", c.Board)
	}
	for _, f := range c.ToFlags() {
		log.Debugf("Flag: %s", f)
	}
}
