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

package platform

import (
	"gvisor.dev/sbi/pkg/log"
	sbicore "gvisor.dev/sbi/pkg/sbi"
)

// NoPMU is the name of a board without performance counters.
const NoPMU = "nopmu"

func init() {
	Register(NoPMU, func(opts Options) (Platform, error) {
		return &nopmu{opts: opts}, nil
	})
}

// nopmu installs no providers: every PMU function reports
// SBI_ERR_NOT_SUPPORTED.
type nopmu struct {
	opts Options
}

// Name implements Platform.Name.
func (*nopmu) Name() string { return NoPMU }

// Describe implements Platform.Describe.
func (n *nopmu) Describe() sbicore.Machine {
	return sbicore.Machine{
		MVendorID: n.opts.MVendorID,
		MArchID:   n.opts.MArchID,
		MImpID:    n.opts.MImpID,
	}
}

// Install implements Platform.Install.
func (*nopmu) Install(*Registries) {
	log.Infof("Platform %s: no PMU", NoPMU)
}
