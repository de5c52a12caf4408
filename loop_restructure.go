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

// restructureLoop applies the loop restructuring transformation (spec §4.9)
// to loop (one SCC, or self-loop, discovered in g) in place, producing a
// single-entry, single-exit, single-backedge loop region.
func restructureLoop(g *Graph, loop []Name) error {
	headers, entries, err := g.FindHeadersAndEntries(nameSet(loop))
	if err != nil {
		return err
	}
	exitingBlocks, exitBlocks := g.FindExitingAndExits(nameSet(loop))

	loopMembers := append([]Name(nil), loop...)
	headerSet := nameSet(headers)

	var loopHead Name
	var unifiedHead *Block
	if len(headers) > 1 {
		soloHeadName := g.Namer.NewBlockName(KindSynthHead)
		head := insertBlockAndControlBlocks(g, KindSynthHead, soloHeadName, entries, headers)
		loopMembers = append(loopMembers, soloHeadName)
		loopHead = soloHeadName
		unifiedHead = &head
	} else {
		loopHead = headers[0]
	}

	var backedgeBlocks []Name
	for _, n := range loop {
		b := g.MustBlock(n)
		for _, t := range b.JumpTargets {
			if headerSet[t] {
				backedgeBlocks = append(backedgeBlocks, n)
				break
			}
		}
	}

	// Fast path: one backedge block that is also the sole exiting block.
	if len(backedgeBlocks) == 1 && len(exitingBlocks) == 1 && backedgeBlocks[0] == exitingBlocks[0] {
		b := g.MustBlock(backedgeBlocks[0])
		g.AddBlock(b.DeclareBackedge(loopHead))
		_, err := extractRegion(g, loopMembers, RegionLoop, g.Region)
		return err
	}

	needsSynthExit := len(exitBlocks) > 1

	var exitVariable string
	if unifiedHead != nil {
		exitVariable = unifiedHead.Variable
	} else {
		exitVariable = g.Namer.NewVarName("exit")
	}
	backedgeVariable := g.Namer.NewVarName("backedge")

	exitValueTable := orderedmap.New[int, Name]()
	for i, eb := range exitBlocks {
		exitValueTable.Store(i, eb)
	}

	latchName := g.Namer.NewBlockName(KindSynthExitLatch)
	soloExitTarget := exitBlocks[0]
	var synthExitName Name
	if needsSynthExit {
		synthExitName = g.Namer.NewBlockName(KindSynthExitBranch)
		soloExitTarget = synthExitName
	}

	backedgeValueTable := orderedmap.New[int, Name]()
	backedgeValueTable.Store(0, loopHead)
	backedgeValueTable.Store(1, soloExitTarget)

	domsets, err := doms(g)
	if err != nil {
		return err
	}

	exitBlockSet := nameSet(exitBlocks)
	processSet := nameSet(exitingBlocks)
	for _, n := range backedgeBlocks {
		processSet[n] = true
	}

	for _, n := range sortNames(setKeys(processSet)) {
		b := g.MustBlock(n)
		for _, t := range append([]Name(nil), b.JumpTargets...) {
			switch {
			case exitBlockSet[t]:
				idx := reverseLookup(exitValueTable, t)
				assignName := g.Namer.NewBlockName(KindSynthAssign)
				assign := newSyntheticAssignment(assignName, map[string]int{exitVariable: idx, backedgeVariable: 1}, []Name{latchName})
				insertBlockBetween(g, assign, []Name{n}, []Name{t})
				loopMembers = append(loopMembers, assignName)

			case headerSet[t] && (!domsets[t][n] || n == t):
				assignVars := map[string]int{backedgeVariable: 0}
				if unifiedHead != nil {
					assignVars[exitVariable] = reverseLookup(unifiedHead.BranchValueTable, t)
				}
				assignName := g.Namer.NewBlockName(KindSynthAssign)
				assign := newSyntheticAssignment(assignName, assignVars, []Name{latchName})
				insertBlockBetween(g, assign, []Name{n}, []Name{t})
				loopMembers = append(loopMembers, assignName)
			}
		}
	}

	latch := newSyntheticBranch(KindSynthExitLatch, latchName, backedgeVariable, backedgeValueTable, []Name{soloExitTarget, loopHead})
	latch = latch.ReplaceBackedges([]Name{loopHead})
	g.AddBlock(latch)
	loopMembers = append(loopMembers, latchName)

	if needsSynthExit {
		exitBranch := newSyntheticBranch(KindSynthExitBranch, synthExitName, exitVariable, exitValueTable, append([]Name(nil), exitBlocks...))
		g.AddBlock(exitBranch)
		loopMembers = append(loopMembers, synthExitName)
	}

	_, err = extractRegion(g, dedupeNames(loopMembers), RegionLoop, g.Region)
	return err
}

// restructureLoopsAtLevel repeatedly finds and restructures loops at g's
// own level (not recursing into subregions) until none remain.
func restructureLoopsAtLevel(g *Graph) error {
	for {
		loop, ok := findLoop(g)
		if !ok {
			return nil
		}
		if err := restructureLoop(g, loop); err != nil {
			return err
		}
	}
}

// restructureLoopRecursive restructures loops at g's own level, then
// recurses into every region's Subregion (spec §4.12).
func restructureLoopRecursive(g *Graph) error {
	if err := restructureLoopsAtLevel(g); err != nil {
		return err
	}
	for _, n := range g.Names() {
		b := g.MustBlock(n)
		if b.Kind == KindRegion && b.Subregion != nil {
			if err := restructureLoopRecursive(b.Subregion); err != nil {
				return err
			}
		}
	}
	return nil
}
