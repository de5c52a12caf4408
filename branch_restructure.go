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

// branchRegionCandidate is a (begin, end) pair characterizing a hammock:
// begin has ≥ 2 jump targets, end is begin's post-immediate-dominator, and
// begin is end's (forward) immediate dominator (spec §4.10 step 1).
type branchRegionCandidate struct {
	begin, end Name
}

// findBranchRegionCandidates enumerates every hammock in g, sorted by
// begin's name for reproducible processing order.
func findBranchRegionCandidates(g *Graph) ([]branchRegionCandidate, error) {
	fwdDomsets, err := doms(g)
	if err != nil {
		return nil, err
	}
	fwdImm, err := immDoms(fwdDomsets)
	if err != nil {
		return nil, err
	}
	postDomsets, err := postDoms(g)
	if err != nil {
		return nil, err
	}
	postImm, err := immDoms(postDomsets)
	if err != nil {
		return nil, err
	}

	var out []branchRegionCandidate
	for _, n := range g.SortedNames() {
		if len(g.Successors(n)) < 2 {
			continue
		}
		end, ok := postImm[n]
		if !ok {
			continue
		}
		if fwdImm[end] == n {
			out = append(out, branchRegionCandidate{begin: n, end: end})
		}
	}
	return out, nil
}

// restructureBranch finds the first hammock at g's own level and closes it
// once (spec §4.10). Hammocks left inside the extracted regions are handled
// when restructureBranchRecursive descends into them.
func restructureBranch(g *Graph) error {
	candidates, err := findBranchRegionCandidates(g)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}
	return restructureSingleBranchRegion(g, candidates[0].begin, candidates[0].end)
}

// restructureSingleBranchRegion closes the hammock rooted at begin with
// merge point end: it partitions g into a head region (the walk from g's
// head down to and including begin), one branch region per jump target of
// begin (a SyntheticFill block forms the body of a placeholder target), and
// a tail region (everything else), then extracts all three as region blocks.
func restructureSingleBranchRegion(g *Graph, begin, end Name) error {
	head, err := g.HeadName()
	if err != nil {
		return err
	}
	headRegionBlocks, err := linearWalk(g, head, begin)
	if err != nil {
		return err
	}

	fwdDomsets, err := doms(g)
	if err != nil {
		return err
	}

	targets := append([]Name(nil), g.Successors(begin)...)
	branchBodies := make([][]Name, len(targets))
	for i, t := range targets {
		isPlaceholder := false
		for j, other := range targets {
			if j == i {
				continue
			}
			if g.IsReachableDFS(other, t) {
				isPlaceholder = true
				break
			}
		}
		if isPlaceholder {
			continue // leave branchBodies[i] nil; filled in below
		}
		branchBodies[i] = domPartition(fwdDomsets, t, end)
	}

	excluded := nameSet(headRegionBlocks)
	for _, body := range branchBodies {
		for _, n := range body {
			excluded[n] = true
		}
	}
	var tailRegionBlocks []Name
	for _, n := range g.Names() {
		if !excluded[n] {
			tailRegionBlocks = append(tailRegionBlocks, n)
		}
	}

	tailHeaders, tailEntries, err := g.FindHeadersAndEntries(nameSet(tailRegionBlocks))
	if err != nil {
		return err
	}
	if len(tailHeaders) > 1 {
		newHeadName := g.Namer.NewBlockName(KindSynthHead)
		insertBlockAndControlBlocks(g, KindSynthHead, newHeadName, tailEntries, tailHeaders)
		tailRegionBlocks = append(tailRegionBlocks, newHeadName)
		end = newHeadName
	}

	for i, t := range targets {
		if branchBodies[i] == nil {
			// Unifying the tail headers above may have redirected this slot
			// through a SyntheticAssignment block; fill the edge as it is now.
			t = g.Successors(begin)[i]
			fillName := g.Namer.NewBlockName(KindSynthFill)
			fill := newSyntheticPlain(KindSynthFill, fillName, []Name{t})
			insertBlockBetween(g, fill, []Name{begin}, []Name{t})
			branchBodies[i] = []Name{fillName}
			continue
		}
		branchExiting, _ := g.FindExitingAndExits(nameSet(branchBodies[i]))
		soloTail, _ := joinTailsAndExits(g, branchExiting, []Name{end})
		if !containsName(branchBodies[i], soloTail) {
			branchBodies[i] = append(branchBodies[i], soloTail)
		}
	}

	if _, err := extractRegion(g, headRegionBlocks, RegionHead, g.Region); err != nil {
		return err
	}
	for _, body := range branchBodies {
		if _, err := extractRegion(g, body, RegionBranch, g.Region); err != nil {
			return err
		}
	}
	if _, err := extractRegion(g, tailRegionBlocks, RegionTail, g.Region); err != nil {
		return err
	}
	return nil
}

// linearWalk walks from -> to, asserting every intermediate block has
// exactly one (effective) successor (spec §4.10 step 3).
func linearWalk(g *Graph, from, to Name) ([]Name, error) {
	var path []Name
	cur := from
	for cur != to {
		succs := g.Successors(cur)
		if len(succs) != 1 {
			return nil, invariantf("branch restructuring: head-region walk hit %s with %d successors, expected 1", cur, len(succs))
		}
		path = append(path, cur)
		cur = succs[0]
	}
	path = append(path, to)
	return path, nil
}

// domPartition returns every block k with t among its (forward) dominators
// but not end — the body of a hammock sub-branch whose target is t and
// whose merge point is end (spec §4.10 step 2), matching
// find_branch_regions' `bra_start in doms[k] and end not in doms[k]` test
// rather than a plain reachability walk: a block reachable from t without
// crossing end can still be dominated by a sibling branch (e.g. when one
// branch target can reach another), in which case it belongs to that
// sibling's body, not to t's.
func domPartition(fwdDomsets map[Name]map[Name]bool, t, end Name) []Name {
	var out []Name
	for k, kdom := range fwdDomsets {
		if kdom[t] && !kdom[end] {
			out = append(out, k)
		}
	}
	return sortNames(out)
}

// restructureBranchRecursive restructures branches at g's own level, then
// recurses into every region's Subregion (spec §4.12).
func restructureBranchRecursive(g *Graph) error {
	if err := restructureBranch(g); err != nil {
		return err
	}
	for _, n := range g.Names() {
		b := g.MustBlock(n)
		if b.Kind == KindRegion && b.Subregion != nil {
			if err := restructureBranchRecursive(b.Subregion); err != nil {
				return err
			}
		}
	}
	return nil
}
