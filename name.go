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

// Package scfg implements the graph restructuring engine that turns an
// arbitrary, possibly irreducible, control flow graph into a Structured
// Control Flow Graph (SCFG): a graph whose loops have a single entry and
// exit and whose branches are hammock regions with a unique join. It
// implements the loop and branch restructuring transformations of
// Bahmann et al. (2015).
package scfg

import "fmt"

// Kind tags a Name (and, by extension, a Block or Region) with the role it
// plays in the graph. The restructuring transforms only ever create blocks
// and regions of the synthetic/region kinds below; Basic is reserved for
// blocks supplied by a frontend.
type Kind string

// The fixed set of kinds a Name may carry.
const (
	KindBasic            Kind = "basic"
	KindPythonBytecode   Kind = "python_bytecode"
	KindPythonAST        Kind = "python_ast"
	KindSynthHead        Kind = "synth_head"
	KindSynthBranch      Kind = "synth_branch"
	KindSynthTail        Kind = "synth_tail"
	KindSynthExit        Kind = "synth_exit"
	KindSynthAssign      Kind = "synth_assign"
	KindSynthReturn      Kind = "synth_return"
	KindSynthExitLatch   Kind = "synth_exit_latch"
	KindSynthExitBranch  Kind = "synth_exit_branch"
	KindSynthFill        Kind = "synth_fill"
	KindRegion           Kind = "region"
)

// Name is a process-unique, immutable identifier. Two Names are equal iff
// their string values are equal; String returns that value.
type Name struct {
	s string
}

// String returns the name's textual representation, used both for display
// and as the map key identity throughout the package.
func (n Name) String() string { return n.s }

// IsZero reports whether n is the zero Name (used as a "no such name"
// sentinel, e.g. the Region of a top-level Graph or an absent parent
// region).
func (n Name) IsZero() bool { return n.s == "" }

// NewName wraps an arbitrary string as a Name. Used by frontends supplying
// their own basic block names (deserialization, tests) rather than letting
// the Namer mint one.
func NewName(s string) Name { return Name{s: s} }

// Namer mints unique, kind-tagged names for blocks, regions, and variables.
// A single Namer is shared across an entire SCFG hierarchy (the top-level
// SCFG and every nested subregion's SCFG) so that names stay unique across
// the whole nested structure (invariant 6, spec §3). Namer is not safe for
// concurrent use; the engine is single-threaded by design (§5).
type Namer struct {
	counters map[string]int
}

// NewNamer returns a fresh Namer with all per-kind counters at zero.
func NewNamer() *Namer {
	return &Namer{counters: make(map[string]int)}
}

// NewBlockName mints the next unique name for a block of the given kind,
// formatted "<kind>_block_<n>".
func (g *Namer) NewBlockName(kind Kind) Name {
	n := g.next(string(kind))
	return Name{s: fmt.Sprintf("%s_block_%d", kind, n)}
}

// NewRegionName mints the next unique name for a region of the given kind,
// formatted "<kind>_region_<n>".
func (g *Namer) NewRegionName(kind RegionKind) Name {
	n := g.next(string(kind))
	return Name{s: fmt.Sprintf("%s_region_%d", kind, n)}
}

// NewVarName mints the next unique control-variable name for the given
// kind, formatted "__scfg_<kind>_var_<n>__".
func (g *Namer) NewVarName(kind string) string {
	n := g.next(kind)
	return fmt.Sprintf("__scfg_%s_var_%d__", kind, n)
}

func (g *Namer) next(kind string) int {
	n := g.counters[kind]
	g.counters[kind] = n + 1
	return n
}
