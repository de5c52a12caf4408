//  Copyright (c) 2023 Uber Technologies, Inc.
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

import "flag"

// Limits holds the user-configurable values exposed by the CLI driver
// (cmd/scfgrestructure). It is deliberately small: the engine itself has no
// user-facing knobs beyond what is here, since §5 of the spec rules out
// timeouts/cancellation for the restructuring passes themselves.
type Limits struct {
	// MaxBlocks rejects input graphs with more than this many top-level
	// blocks before restructuring starts, as a guard against accidentally
	// feeding the restructurer a pathological or corrupted input. Zero means
	// unlimited.
	MaxBlocks int
	// PrettyPrint holds the -pretty flag. The CLI driver does not read it:
	// diagnostics are printed without color either way.
	PrettyPrint bool
}

// RegisterFlags registers Limits' fields onto fs, following the flag-lifting
// pattern cmd/nilaway/main.go uses to expose config.Analyzer's flags at the
// top level of its own FlagSet.
func (l *Limits) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&l.MaxBlocks, "max-blocks", 0, "reject input graphs with more than this many top-level blocks (0 = unlimited)")
	fs.BoolVar(&l.PrettyPrint, "pretty", false, "has no effect; diagnostics are not colorized")
}
