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

// extractRegion replaces blocksToEnclose in g with a single Region block of
// the given kind, moving the enclosed blocks into a fresh nested Graph
// (spec §4.11). parentRegion is the name of the Region block that already
// owns g (zero if g is top-level); it becomes the new region's
// ParentRegion.
func extractRegion(g *Graph, blocksToEnclose []Name, kind RegionKind, parentRegion Name) (Name, error) {
	s := nameSet(blocksToEnclose)

	headers, entries, err := g.FindHeadersAndEntries(s)
	if err != nil {
		return Name{}, err
	}
	if len(headers) != 1 {
		return Name{}, invariantf("extract_region: expected exactly one header, found %d", len(headers))
	}
	exiting, _ := g.FindExitingAndExits(s)
	if len(exiting) != 1 {
		return Name{}, invariantf("extract_region: expected exactly one exiting block, found %d", len(exiting))
	}
	h, x := headers[0], exiting[0]

	sorted := sortNames(append([]Name(nil), blocksToEnclose...))
	sub := NewSubregion(g.Namer)
	for _, n := range sorted {
		sub.AddBlock(g.MustBlock(n))
	}

	regionName := g.Namer.NewRegionName(kind)

	for _, e := range entries {
		owner := g
		if _, ok := g.Block(e); !ok && g.Parent != nil {
			owner = g.Parent
		}
		rewriteTarget(owner, e, h, regionName)
	}

	exitingBlock := sub.MustBlock(x)
	region := newRegion(regionName, kind, h, x, sub, parentRegion, append([]Name(nil), exitingBlock.EffectiveJumpTargets()...))

	g.RemoveBlocks(blocksToEnclose)
	g.AddBlock(region)
	sub.Region = regionName
	sub.Parent = g

	if !parentRegion.IsZero() {
		if parentBlock, ok := g.Block(parentRegion); ok {
			updateParentRegionPointers(g, parentBlock, s, regionName)
		} else if g.Parent != nil {
			if parentBlock, ok := g.Parent.Block(parentRegion); ok {
				updateParentRegionPointers(g.Parent, parentBlock, s, regionName)
			}
		}
	}

	for _, n := range sorted {
		b := sub.MustBlock(n)
		if b.Kind == KindRegion {
			b.ParentRegion = regionName
			sub.AddBlock(b)
		}
	}

	return regionName, nil
}

func updateParentRegionPointers(owner *Graph, parentBlock Block, enclosed map[Name]bool, regionName Name) {
	updated := false
	if enclosed[parentBlock.Header] {
		parentBlock.Header = regionName
		updated = true
	}
	if enclosed[parentBlock.Exiting] {
		parentBlock.Exiting = regionName
		updated = true
	}
	if updated {
		owner.AddBlock(parentBlock)
	}
}

// rewriteTarget replaces every occurrence of old with new in blockName's
// jump targets and backedges. If blockName names a Region, it also rewrites
// the same occurrence within the region's Subregion's exiting block, since
// a region's jump_targets mirror its exiting block's (spec §4.11 step 3).
func rewriteTarget(g *Graph, blockName, old, new Name) {
	b := g.MustBlock(blockName)
	nb := b.ReplaceJumpTargets(replaceNameInSlice(b.JumpTargets, old, new))
	if containsName(b.Backedges, old) {
		nb = nb.ReplaceBackedges(replaceNameInSlice(b.Backedges, old, new))
	}
	g.AddBlock(nb)

	if nb.Kind == KindRegion && nb.Subregion != nil {
		exitBlock := nb.Subregion.MustBlock(nb.Exiting)
		newExitJT := replaceNameInSlice(exitBlock.JumpTargets, old, new)
		nb.Subregion.AddBlock(exitBlock.ReplaceJumpTargets(newExitJT))
	}
}

func replaceNameInSlice(names []Name, old, new Name) []Name {
	out := make([]Name, len(names))
	for i, n := range names {
		if n == old {
			out[i] = new
		} else {
			out[i] = n
		}
	}
	return out
}
