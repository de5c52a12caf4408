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

// sccFrame is one level of the explicit stack the iterative Tarjan walk
// below uses in place of recursion.
type sccFrame struct {
	v Name
	i int
}

// stronglyConnectedComponents computes the strongly connected components of
// g, restricted to g's own level and excluding declared backedges, using
// Tarjan's algorithm in its iterative (non-recursive) form (spec §4.6). The
// adjacency function is g.Successors, which already excludes backedges, so
// an SCC pass run after a loop has been partially restructured does not
// rediscover it.
func stronglyConnectedComponents(g *Graph) [][]Name {
	index := 0
	indices := make(map[Name]int)
	lowlink := make(map[Name]int)
	onStack := make(map[Name]bool)
	var stack []Name
	var sccs [][]Name

	for _, root := range g.Names() {
		if _, seen := indices[root]; seen {
			continue
		}

		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true
		work := []*sccFrame{{v: root, i: 0}}

		for len(work) > 0 {
			top := work[len(work)-1]
			succs := g.Successors(top.v)
			if top.i < len(succs) {
				w := succs[top.i]
				top.i++
				if _, inLevel := g.Block(w); !inLevel {
					continue
				}
				if _, seen := indices[w]; !seen {
					indices[w] = index
					lowlink[w] = index
					index++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, &sccFrame{v: w, i: 0})
				} else if onStack[w] && indices[w] < lowlink[top.v] {
					lowlink[top.v] = indices[w]
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1]
				if lowlink[top.v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[top.v]
				}
			}
			if lowlink[top.v] == indices[top.v] {
				var scc []Name
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == top.v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}

// isLoop reports whether scc (one component returned by
// stronglyConnectedComponents) is a loop: either a nontrivial cycle (size
// ≥ 2) or a single block with a self-edge.
func isLoop(g *Graph, scc []Name) bool {
	if len(scc) >= 2 {
		return true
	}
	return containsName(g.Successors(scc[0]), scc[0])
}

// findLoop returns the first loop SCC in g (in stronglyConnectedComponents
// order), or ok=false if g has no loop at its current level.
func findLoop(g *Graph) (loop []Name, ok bool) {
	for _, scc := range stronglyConnectedComponents(g) {
		if isLoop(g, scc) {
			return scc, true
		}
	}
	return nil, false
}
