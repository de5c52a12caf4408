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
	"github.com/bahmann/scfg/config"
	"github.com/bahmann/scfg/util/orderedmap"
)

// doms computes, for every block in g, the set of blocks (including itself)
// that dominate it — a standard iterative worklist fixed point (spec §4.5).
func doms(g *Graph) (map[Name]map[Name]bool, error) {
	return computeDoms(g, g.Predecessors)
}

// postDoms computes post-dominator sets by running the same fixed point
// with edges reversed: a block's "predecessors" here are its (effective)
// successors, and the seed entries are blocks with no successors at this
// level.
func postDoms(g *Graph) (map[Name]map[Name]bool, error) {
	return computeDoms(g, g.Successors)
}

// computeDoms runs the dominator fixed point generically over whichever
// adjacency function preds supplies, so the same code computes both doms
// (preds = g.Predecessors) and postDoms (preds = g.Successors). Names that
// allPreds returns from outside g's own level are ignored.
func computeDoms(g *Graph, allPreds func(Name) []Name) (map[Name]map[Name]bool, error) {
	names := g.Names()
	preds := func(n Name) []Name {
		var out []Name
		for _, p := range allPreds(n) {
			if _, ok := g.Block(p); ok {
				out = append(out, p)
			}
		}
		return out
	}

	var entries []Name
	for _, n := range names {
		if len(preds(n)) == 0 {
			entries = append(entries, n)
		}
	}
	if len(entries) == 0 {
		return nil, invariantf("doms: no entry points found")
	}
	entrySet := nameSet(entries)

	full := make(map[Name]bool, len(names))
	for _, n := range names {
		full[n] = true
	}

	domsets := make(map[Name]map[Name]bool, len(names))
	for _, n := range names {
		if entrySet[n] {
			domsets[n] = map[Name]bool{n: true}
		} else {
			domsets[n] = copySet(full)
		}
	}

	for i := 0; ; i++ {
		if i >= config.MaxDominatorIterations {
			return nil, invariantf("doms: exceeded %d iterations without converging", config.MaxDominatorIterations)
		}
		changed := false
		for _, n := range names {
			if entrySet[n] {
				continue
			}
			var merged map[Name]bool
			for _, p := range preds(n) {
				if merged == nil {
					merged = copySet(domsets[p])
				} else {
					merged = intersectSets(merged, domsets[p])
				}
			}
			if merged == nil {
				merged = map[Name]bool{}
			}
			merged[n] = true
			if !setsEqual(merged, domsets[n]) {
				domsets[n] = merged
				changed = true
			}
		}
		if !changed {
			return domsets, nil
		}
	}
}

// immDoms derives the immediate-dominator function from a dominator-set
// map by repeatedly subtracting idom(v) from idom(k) for every v ∈ idom(k),
// iterated to a fixed point (spec §4.5). Entries (whose only dominator is
// themselves) have no entry in the returned map.
func immDoms(domsets map[Name]map[Name]bool) (map[Name]Name, error) {
	idoms := make(map[Name]map[Name]bool, len(domsets))
	for k, v := range domsets {
		s := copySet(v)
		delete(s, k)
		idoms[k] = s
	}

	for i := 0; ; i++ {
		if i >= config.MaxImmediateDominatorIterations {
			return nil, invariantf("imm_doms: exceeded %d iterations without converging", config.MaxImmediateDominatorIterations)
		}
		changed := false
		for k, vs := range idoms {
			if len(vs) <= 1 {
				continue
			}
			merged := copySet(vs)
			for v := range vs {
				merged = subtractSet(merged, idoms[v])
			}
			if !setsEqual(merged, idoms[k]) {
				idoms[k] = merged
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	result := make(map[Name]Name, len(idoms))
	for k, v := range idoms {
		for n := range v {
			result[k] = n
			break
		}
	}
	return result, nil
}

// reverseLookup searches table linearly (in insertion order) for the first
// key mapping to value, returning -1 if none is found (spec §4.9's
// reverse-lookup procedure; the sentinel is never consumed by a correct
// caller).
func reverseLookup(table *orderedmap.OrderedMap[int, Name], value Name) int {
	for _, p := range table.Pairs {
		if p.Value == value {
			return p.Key
		}
	}
	return -1
}

func copySet(s map[Name]bool) map[Name]bool {
	out := make(map[Name]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func intersectSets(a, b map[Name]bool) map[Name]bool {
	out := make(map[Name]bool)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func subtractSet(a, b map[Name]bool) map[Name]bool {
	out := make(map[Name]bool, len(a))
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b map[Name]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
