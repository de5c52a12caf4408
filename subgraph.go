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

import "sort"

// FindHeadersAndEntries returns, for a subset s of g's blocks, the headers
// (blocks in s with an incoming edge from outside s) and entries (blocks
// outside s with an edge into a header). If s has no external incoming
// edge at all — s is every block reachable in g — headers is g's unique
// head and entries is empty, unless g is itself a subregion, in which case
// entries is recovered from g.Parent's predecessors of g.Region (spec
// §4.7).
func (g *Graph) FindHeadersAndEntries(s map[Name]bool) (headers, entries []Name, err error) {
	headerSet := make(map[Name]bool)
	for n := range s {
		for _, p := range g.Predecessors(n) {
			if !s[p] {
				headerSet[n] = true
				break
			}
		}
	}

	if len(headerSet) == 0 {
		head, herr := g.HeadName()
		if herr != nil {
			return nil, nil, herr
		}
		headers = []Name{head}
		if !g.Region.IsZero() && g.Parent != nil {
			entries = sortNames(g.Parent.Predecessors(g.Region))
		}
		return headers, entries, nil
	}

	entrySet := make(map[Name]bool)
	for h := range headerSet {
		for _, p := range g.Predecessors(h) {
			if !s[p] {
				entrySet[p] = true
			}
		}
	}
	return sortNames(setKeys(headerSet)), sortNames(setKeys(entrySet)), nil
}

// FindExitingAndExits returns, for a subset s of g's blocks, the exiting
// blocks (in s, with an edge out of s or with no forward edges at all) and
// exits (outside s, with an edge from inside s) (spec §4.7).
func (g *Graph) FindExitingAndExits(s map[Name]bool) (exiting, exits []Name) {
	exitingSet := make(map[Name]bool)
	exitsSet := make(map[Name]bool)
	for n := range s {
		b := g.MustBlock(n)
		if b.IsExiting() {
			exitingSet[n] = true
			continue
		}
		for _, t := range b.EffectiveJumpTargets() {
			if !s[t] {
				exitingSet[n] = true
				exitsSet[t] = true
			}
		}
	}
	return sortNames(setKeys(exitingSet)), sortNames(setKeys(exitsSet))
}

func setKeys(s map[Name]bool) []Name {
	out := make([]Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

func sortNames(names []Name) []Name {
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })
	return names
}

func namesToSet(names []Name) map[Name]bool {
	return nameSet(names)
}
