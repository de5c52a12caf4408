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

package scfg

import "github.com/bahmann/scfg/util/orderedmap"

// RegionKind identifies the role a Region-kind Block plays: the top-level
// wrapper (meta), a restructured loop, or one of the three hammock pieces a
// branch restructures into (head, branch, tail).
type RegionKind string

// The fixed set of region kinds (spec §3).
const (
	RegionMeta   RegionKind = "meta"
	RegionLoop   RegionKind = "loop"
	RegionHead   RegionKind = "head"
	RegionTail   RegionKind = "tail"
	RegionBranch RegionKind = "branch"
)

// Block is a tagged-variant record: every block carries a Name, an ordered
// JumpTargets list, and a (possibly empty) subset of JumpTargets marked as
// Backedges; the remaining fields are meaningful only for the variant named
// by Kind, following the teacher's single-struct-with-discriminant shape
// for golang.org/x/tools/go/cfg.Block rather than an interface hierarchy
// (see DESIGN.md). Blocks are logically immutable: every mutating method
// below returns a new Block value to be written back under the same name,
// except Region fields (Header/Exiting), which the engine updates in place
// through Graph's region bookkeeping (spec §3 Lifecycle).
type Block struct {
	Name Name
	Kind Kind

	// JumpTargets is the full ordered list of successors, including any
	// that are also declared as backedges. Order matters: for a 2-way
	// SyntheticBranch, the first target is false, the second is true
	// (spec §4.3).
	JumpTargets []Name
	// Backedges is a subset of JumpTargets excluded from forward
	// traversal (EffectiveJumpTargets).
	Backedges []Name

	// Begin/End/Tree are opaque frontend payload for Basic/PythonBytecode/
	// PythonAST blocks. The core never interprets them.
	Begin int
	End   int
	Tree  []any

	// VariableAssignment holds the literal int assignments a
	// SyntheticAssignment block performs on execution.
	VariableAssignment map[string]int

	// Variable and BranchValueTable are populated for SyntheticBranch and
	// its subtypes (Head, ExitingLatch, ExitBranch): Variable names the
	// control variable switched on, and BranchValueTable maps each
	// possible value to the jump target taken, order-correspondent with
	// JumpTargets per spec §4.3.
	Variable         string
	BranchValueTable *orderedmap.OrderedMap[int, Name]

	// Region-only fields.
	RegionKind   RegionKind
	Header       Name
	Exiting      Name
	Subregion    *Graph
	ParentRegion Name
}

func (k Kind) isBranch() bool {
	switch k {
	case KindSynthHead, KindSynthBranch, KindSynthExitLatch, KindSynthExitBranch:
		return true
	default:
		return false
	}
}

// EffectiveJumpTargets returns JumpTargets with any declared Backedges
// removed, preserving relative order (spec §3).
func (b Block) EffectiveJumpTargets() []Name {
	if len(b.Backedges) == 0 {
		return b.JumpTargets
	}
	out := make([]Name, 0, len(b.JumpTargets))
	for _, jt := range b.JumpTargets {
		if !containsName(b.Backedges, jt) {
			out = append(out, jt)
		}
	}
	return out
}

// IsExiting reports whether b has no forward jump targets (spec §3).
func (b Block) IsExiting() bool {
	return len(b.EffectiveJumpTargets()) == 0
}

// Fallthrough reports whether b has exactly one jump target, counting any
// declared backedge (spec §3).
func (b Block) Fallthrough() bool {
	return len(b.JumpTargets) == 1
}

// IsRegion reports whether b is a Region-kind block.
func (b Block) IsRegion() bool {
	return b.Kind == KindRegion
}

// ReplaceJumpTargets returns a copy of b with JumpTargets replaced by
// newTargets. For SyntheticBranch-kind blocks (and its Head/ExitingLatch/
// ExitBranch subtypes) it also remaps BranchValueTable: entries pointing at
// a target present in both old and new targets are preserved; entries
// pointing at a target dropped from the old list are remapped to the single
// target introduced by the new list (the caller is only ever permitted to
// replace one target at a time, spec §4.2).
func (b Block) ReplaceJumpTargets(newTargets []Name) Block {
	nb := b
	nb.JumpTargets = append([]Name(nil), newTargets...)

	if !b.Kind.isBranch() {
		return nb
	}

	oldSet := nameSet(b.JumpTargets)
	newSet := nameSet(newTargets)
	table := orderedmap.New[int, Name]()
	for _, target := range b.JumpTargets {
		if newSet[target] {
			for _, p := range b.BranchValueTable.Pairs {
				if p.Value == target {
					table.Store(p.Key, p.Value)
				}
			}
			continue
		}
		// target was dropped; find the single newly introduced target and
		// remap every entry that pointed at the dropped target to it.
		var replacement Name
		count := 0
		for _, nt := range newTargets {
			if !oldSet[nt] {
				replacement = nt
				count++
			}
		}
		if count != 1 {
			unreachable("replace_jump_targets on %s: expected exactly one new target, found %d", b.Name, count)
		}
		for _, p := range b.BranchValueTable.Pairs {
			if p.Value == target {
				table.Store(p.Key, replacement)
			}
		}
	}
	nb.BranchValueTable = table
	return nb
}

// DeclareBackedge marks target as this block's (sole) backedge. It is a
// programming-contract assertion, not an input-validation check: it panics
// (ErrInvariantViolation) if b already has a backedge or target is not one
// of its jump targets (spec §4.2).
func (b Block) DeclareBackedge(target Name) Block {
	assertInvariant(len(b.Backedges) == 0, "declare_backedge on %s: backedges already declared", b.Name)
	assertInvariant(containsName(b.JumpTargets, target), "declare_backedge on %s: %s is not a jump target", b.Name, target)
	nb := b
	nb.Backedges = []Name{target}
	return nb
}

// ReplaceBackedges returns a copy of b with Backedges replaced wholesale, no
// containment check against JumpTargets (used only during synthetic block
// construction, spec §4.2).
func (b Block) ReplaceBackedges(newBackedges []Name) Block {
	nb := b
	nb.Backedges = append([]Name(nil), newBackedges...)
	return nb
}

// NewBasic constructs a Basic-kind block carrying opaque frontend payload.
func NewBasic(name Name, jumpTargets []Name) Block {
	return Block{Name: name, Kind: KindBasic, JumpTargets: jumpTargets}
}

// NewPythonBytecode constructs a PythonBytecodeBlock-equivalent block.
func NewPythonBytecode(name Name, begin, end int, jumpTargets []Name) Block {
	return Block{Name: name, Kind: KindPythonBytecode, Begin: begin, End: end, JumpTargets: jumpTargets}
}

// NewPythonAST constructs a PythonASTBlock-equivalent block.
func NewPythonAST(name Name, begin, end int, tree []any, jumpTargets []Name) Block {
	return Block{Name: name, Kind: KindPythonAST, Begin: begin, End: end, Tree: tree, JumpTargets: jumpTargets}
}

// newSyntheticAssignment constructs a SyntheticAssignment block.
func newSyntheticAssignment(name Name, assignment map[string]int, jumpTargets []Name) Block {
	return Block{Name: name, Kind: KindSynthAssign, VariableAssignment: assignment, JumpTargets: jumpTargets}
}

// newSyntheticBranch constructs a block of one of the branch kinds
// (SynthHead, SynthBranch, SynthExitLatch, SynthExitBranch).
func newSyntheticBranch(kind Kind, name Name, variable string, table *orderedmap.OrderedMap[int, Name], jumpTargets []Name) Block {
	if !kind.isBranch() {
		unreachable("newSyntheticBranch called with non-branch kind %s", kind)
	}
	return Block{Name: name, Kind: kind, Variable: variable, BranchValueTable: table, JumpTargets: jumpTargets}
}

// newSyntheticPlain constructs a pure structural join/placeholder block
// (SynthTail, SynthExit, SynthReturn, SynthFill).
func newSyntheticPlain(kind Kind, name Name, jumpTargets []Name) Block {
	return Block{Name: name, Kind: kind, JumpTargets: jumpTargets}
}

// newRegion constructs a Region-kind block.
func newRegion(name Name, kind RegionKind, header, exiting Name, subregion *Graph, parentRegion Name, jumpTargets []Name) Block {
	return Block{
		Name:         name,
		Kind:         KindRegion,
		RegionKind:   kind,
		Header:       header,
		Exiting:      exiting,
		Subregion:    subregion,
		ParentRegion: parentRegion,
		JumpTargets:  jumpTargets,
	}
}

func containsName(names []Name, target Name) bool {
	for _, n := range names {
		if n == target {
			return true
		}
	}
	return false
}

func nameSet(names []Name) map[Name]bool {
	s := make(map[Name]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func assertInvariant(cond bool, format string, args ...any) {
	if !cond {
		panic(invariantf(format, args...))
	}
}
