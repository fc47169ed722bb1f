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

package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Board is a board file. It describes a machine as a set of flag values.
//
// In TOML:
//
//	name = "qemu-virt-rv32"
//
//	[flags]
//	xlen = "32"
//	hardware-counters = "5"
type Board struct {
	// Name is a human readable name for the board.
	Name string `toml:"name" yaml:"name"`

	// Flags maps flag names to values. The key value will be converted to
	// runsbi flags --key=value directly.
	Flags map[string]string `toml:"flags" yaml:"flags"`
}

// LoadBoard reads the board file at path. Files ending in .yaml or .yml are
// parsed as YAML; anything else as TOML.
func LoadBoard(path string) (*Board, error) {
	var b Board
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parsing board file %q: %w", path, err)
		}
	default:
		md, err := toml.DecodeFile(path, &b)
		if err != nil {
			return nil, fmt.Errorf("parsing board file %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("board file %q: unknown keys %v", path, undecoded)
		}
	}
	return &b, nil
}

// Apply sets every flag in b that was not set explicitly in flagSet. The
// board flag itself cannot be set from a board file.
func (b *Board) Apply(flagSet *flag.FlagSet) error {
	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	names := make([]string, 0, len(b.Flags))
	for name := range b.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "board" {
			return fmt.Errorf("flag %q cannot be set from a board file", name)
		}
		if flagSet.Lookup(name) == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if explicit[name] {
			continue
		}
		if err := flagSet.Set(name, b.Flags[name]); err != nil {
			return fmt.Errorf("error setting flag %s=%q: %w", name, b.Flags[name], err)
		}
	}
	return nil
}
