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

import (
	"sort"

	"github.com/bahmann/scfg/util/orderedmap"
)

// Graph is a single level of the nested SCFG hierarchy: an insertion-ordered
// map from Name to Block, a shared Namer, and a back-pointer to the Region
// block (in some ancestor Graph) that owns it. Graph corresponds 1:1 to the
// spec's "SCFG" type; the top-level Graph returned by New has a zero Region.
//
// A Graph never stores the interior blocks of a region nested inside it:
// those live in the region Block's own Subregion Graph. Consequently a
// Graph's own adjacency is always the "concealed" view described in §4.4 —
// every RegionBlock already appears as a single opaque node — and
// ConcealedView is a no-op accessor rather than a separate computation.
type Graph struct {
	Namer  *Namer
	Blocks *orderedmap.OrderedMap[Name, Block]
	Region Name
	// Parent is the Graph owning the Region block named by Region (nil
	// for the top-level Graph). It lets find_headers_and_entries recurse
	// to the enclosing level when a query's block set spans an entire
	// subregion (spec §4.7).
	Parent *Graph
}

// New returns an empty top-level Graph with a fresh Namer.
func New() *Graph {
	return &Graph{Namer: NewNamer(), Blocks: orderedmap.New[Name, Block]()}
}

// NewSubregion returns an empty Graph sharing namer, for use as a region
// block's Subregion.
func NewSubregion(namer *Namer) *Graph {
	return &Graph{Namer: namer, Blocks: orderedmap.New[Name, Block]()}
}

// AddBlock inserts or overwrites b under its own Name.
func (g *Graph) AddBlock(b Block) {
	g.Blocks.Store(b.Name, b)
}

// Block returns the block named name and whether it was found.
func (g *Graph) Block(name Name) (Block, bool) {
	return g.Blocks.Load(name)
}

// MustBlock returns the block named name, panicking with ErrUnreachable if
// absent: callers use this once a name is already known to exist at this
// level (invariant 1, closed adjacency).
func (g *Graph) MustBlock(name Name) Block {
	b, ok := g.Blocks.Load(name)
	if !ok {
		unreachable("block %s not found at this SCFG level", name)
	}
	return b
}

// RemoveBlocks deletes every name in names from g.
func (g *Graph) RemoveBlocks(names []Name) {
	for _, n := range names {
		g.Blocks.Delete(n)
	}
}

// Names returns every block name at this level in insertion order.
func (g *Graph) Names() []Name {
	out := make([]Name, 0, g.Blocks.Len())
	for _, p := range g.Blocks.Pairs {
		out = append(out, p.Key)
	}
	return out
}

// SortedNames returns every block name at this level, lexically sorted —
// used by branch restructuring to enumerate hammock candidates in a
// reproducible order.
func (g *Graph) SortedNames() []Name {
	out := g.Names()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ConcealedView returns g itself (see the Graph doc comment).
func (g *Graph) ConcealedView() *Graph {
	return g
}

// Successors returns name's effective (backedge-excluded) jump targets.
func (g *Graph) Successors(name Name) []Name {
	return g.MustBlock(name).EffectiveJumpTargets()
}

// Predecessors returns every block at this level with an effective edge
// into name.
func (g *Graph) Predecessors(name Name) []Name {
	var preds []Name
	for _, p := range g.Blocks.Pairs {
		if containsName(p.Value.EffectiveJumpTargets(), name) {
			preds = append(preds, p.Key)
		}
	}
	return preds
}

// HeadName returns the unique name with no predecessor within g (spec
// §4.4). It fails with ErrInvariantViolation if zero or more than one
// candidate is found.
func (g *Graph) HeadName() (Name, error) {
	hasPred := make(map[Name]bool, g.Blocks.Len())
	for _, p := range g.Blocks.Pairs {
		for _, t := range p.Value.EffectiveJumpTargets() {
			hasPred[t] = true
		}
	}
	var heads []Name
	for _, p := range g.Blocks.Pairs {
		if !hasPred[p.Key] {
			heads = append(heads, p.Key)
		}
	}
	if len(heads) != 1 {
		return Name{}, invariantf("find_head: expected exactly one head, found %d", len(heads))
	}
	return heads[0], nil
}

// IsReachableDFS reports whether dst is reachable from src via effective
// jump targets within this level.
func (g *Graph) IsReachableDFS(src, dst Name) bool {
	visited := make(map[Name]bool)
	var stack []Name
	stack = append(stack, src)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == dst {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		b, ok := g.Block(n)
		if !ok {
			continue
		}
		stack = append(stack, b.EffectiveJumpTargets()...)
	}
	return false
}

// BFS returns every name at this level reachable from head, in breadth-first
// order (ties broken by each block's JumpTargets order, then by any
// remaining unvisited names in insertion order to guarantee full coverage
// even over a malformed, not-fully-connected graph).
func (g *Graph) BFS(head Name) []Name {
	visited := make(map[Name]bool, g.Blocks.Len())
	var order []Name
	queue := []Name{head}
	visited[head] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		b, ok := g.Block(n)
		if !ok {
			continue
		}
		for _, t := range b.EffectiveJumpTargets() {
			if _, inLevel := g.Block(t); inLevel && !visited[t] {
				visited[t] = true
				queue = append(queue, t)
			}
		}
	}
	// Cover any blocks BFS from head did not reach (should not occur in a
	// well-formed closed graph, but iteration must still be total).
	for _, p := range g.Blocks.Pairs {
		if !visited[p.Key] {
			visited[p.Key] = true
			order = append(order, p.Key)
		}
	}
	return order
}

// NamedBlock pairs a Name with its Block, the element type yielded by Iter.
type NamedBlock struct {
	Name  Name
	Block Block
}

// Iter yields every (name, block) pair reachable from g's head in BFS
// order; when it encounters a RegionBlock it yields the region itself, then
// recurses into the region's Subregion before continuing the outer
// traversal (spec §4.4). If g has no unique head, Iter falls back to plain
// insertion order for robustness when called for debugging on a
// malformed or in-progress graph.
func (g *Graph) Iter() []NamedBlock {
	var order []Name
	if head, err := g.HeadName(); err == nil {
		order = g.BFS(head)
	} else {
		order = g.Names()
	}
	out := make([]NamedBlock, 0, len(order))
	for _, n := range order {
		b := g.MustBlock(n)
		out = append(out, NamedBlock{Name: n, Block: b})
		if b.Kind == KindRegion && b.Subregion != nil {
			out = append(out, b.Subregion.Iter()...)
		}
	}
	return out
}

// IterSubregions returns every region Block anywhere in the hierarchy
// rooted at g (g's own level plus, recursively, every nested Subregion),
// in the same order Iter would visit them.
func (g *Graph) IterSubregions() []NamedBlock {
	var out []NamedBlock
	for _, nb := range g.Iter() {
		if nb.Block.Kind == KindRegion {
			out = append(out, nb)
		}
	}
	return out
}
