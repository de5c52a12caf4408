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

// insertBlockBetween inserts newBlock into g and redirects, for every name
// in predecessors, every edge into a name in matchSuccessors to point at
// newBlock instead (spec §4.8). If matchSuccessors is empty, newBlock is
// instead appended to each predecessor's jump targets (the synthetic-return
// case). Accidental duplicate edges to newBlock are collapsed.
func insertBlockBetween(g *Graph, newBlock Block, predecessors, matchSuccessors []Name) {
	matchSet := nameSet(matchSuccessors)
	appendMode := len(matchSuccessors) == 0

	for _, p := range predecessors {
		b := g.MustBlock(p)
		var out []Name
		inserted := false
		for _, t := range b.JumpTargets {
			if matchSet[t] {
				if !inserted {
					out = append(out, newBlock.Name)
					inserted = true
				}
				continue
			}
			out = append(out, t)
		}
		if appendMode {
			out = append(append([]Name(nil), b.JumpTargets...), newBlock.Name)
		}
		g.AddBlock(b.ReplaceJumpTargets(dedupeNames(out)))
	}
	g.AddBlock(newBlock)
}

func dedupeNames(names []Name) []Name {
	seen := make(map[Name]bool, len(names))
	out := make([]Name, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// insertBlockAndControlBlocks multiplexes predecessors through a fresh
// SyntheticHead-kind block headName branching on a new control variable:
// for every existing predecessor→successor edge (successor restricted to
// the successors set), a SyntheticAssignment block is spliced onto that
// edge setting the control variable to a distinct integer, and the head's
// branch_value_table maps that integer to the successor (spec §4.8).
func insertBlockAndControlBlocks(g *Graph, headKind Kind, headName Name, predecessors, successors []Name) Block {
	successorSet := nameSet(successors)
	variable := g.Namer.NewVarName("head")
	table := orderedmap.New[int, Name]()
	counter := 0

	for _, p := range predecessors {
		b := g.MustBlock(p)
		for _, s := range append([]Name(nil), b.JumpTargets...) {
			if !successorSet[s] {
				continue
			}
			assignName := g.Namer.NewBlockName(KindSynthAssign)
			assign := newSyntheticAssignment(assignName, map[string]int{variable: counter}, []Name{headName})
			table.Store(counter, s)
			counter++
			insertBlockBetween(g, assign, []Name{p}, []Name{s})
		}
	}

	head := newSyntheticBranch(headKind, headName, variable, table, dedupeNames(successors))
	g.AddBlock(head)
	return head
}

// joinReturns inserts a single SyntheticReturn successor to every exiting
// block at this level, if more than one exists; single-return graphs are
// left untouched (spec §4.8).
func joinReturns(g *Graph) {
	var exiting []Name
	for _, n := range g.Names() {
		if g.MustBlock(n).IsExiting() {
			exiting = append(exiting, n)
		}
	}
	if len(exiting) <= 1 {
		return
	}
	retName := g.Namer.NewBlockName(KindSynthReturn)
	insertBlockBetween(g, newSyntheticPlain(KindSynthReturn, retName, nil), sortNames(exiting), nil)
}

// joinTailsAndExits enumerates the four possible (|tails|, |exits|) shapes
// and inserts at most one SyntheticTail and/or one SyntheticExit, chained
// tail → exit → exits, returning the resulting solo tail and solo exit
// (spec §4.8). Any other shape is unreachable by construction.
func joinTailsAndExits(g *Graph, tails, exits []Name) (soloTail, soloExit Name) {
	switch {
	case len(tails) == 1 && len(exits) == 1:
		return tails[0], exits[0]

	case len(tails) == 1 && len(exits) >= 2:
		exitName := g.Namer.NewBlockName(KindSynthExit)
		exitBlock := newSyntheticPlain(KindSynthExit, exitName, exits)
		insertBlockBetween(g, exitBlock, tails, exits)
		return tails[0], exitName

	case len(tails) >= 2 && len(exits) == 1:
		tailName := g.Namer.NewBlockName(KindSynthTail)
		tailBlock := newSyntheticPlain(KindSynthTail, tailName, []Name{exits[0]})
		insertBlockBetween(g, tailBlock, tails, exits)
		return tailName, exits[0]

	case len(tails) >= 2 && len(exits) >= 2:
		exitName := g.Namer.NewBlockName(KindSynthExit)
		g.AddBlock(newSyntheticPlain(KindSynthExit, exitName, exits))
		tailName := g.Namer.NewBlockName(KindSynthTail)
		tailBlock := newSyntheticPlain(KindSynthTail, tailName, []Name{exitName})
		insertBlockBetween(g, tailBlock, tails, exits)
		return tailName, exitName

	default:
		unreachable("join_tails_and_exits: impossible shape |tails|=%d |exits|=%d", len(tails), len(exits))
		return Name{}, Name{}
	}
}
