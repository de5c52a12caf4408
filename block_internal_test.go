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
	"testing"

	"github.com/bahmann/scfg/util/orderedmap"
	"github.com/stretchr/testify/require"
)

func TestBlockEffectiveJumpTargetsExcludesBackedges(t *testing.T) {
	t.Parallel()

	a, b := NewName("a"), NewName("b")
	blk := NewBasic(NewName("n"), []Name{a, b}).DeclareBackedge(a)
	require.Equal(t, []Name{b}, blk.EffectiveJumpTargets())
	require.False(t, blk.IsExiting())
}

func TestBlockIsExitingWhenNoForwardTargets(t *testing.T) {
	t.Parallel()

	n := NewName("n")
	blk := NewBasic(n, []Name{n}).DeclareBackedge(n)
	require.True(t, blk.IsExiting())
}

func TestDeclareBackedgeRejectsNonJumpTarget(t *testing.T) {
	t.Parallel()

	blk := NewBasic(NewName("n"), []Name{NewName("a")})
	require.Panics(t, func() {
		blk.DeclareBackedge(NewName("not-a-target"))
	})
}

func TestDeclareBackedgeRejectsDoubleDeclaration(t *testing.T) {
	t.Parallel()

	a := NewName("a")
	blk := NewBasic(NewName("n"), []Name{a}).DeclareBackedge(a)
	require.Panics(t, func() {
		blk.DeclareBackedge(a)
	})
}

func TestReplaceJumpTargetsRemapsBranchValueTable(t *testing.T) {
	t.Parallel()

	x, y, z := NewName("x"), NewName("y"), NewName("z")
	table := orderedmap.New[int, Name]()
	table.Store(0, x)
	table.Store(1, y)
	blk := newSyntheticBranch(KindSynthBranch, NewName("b"), "v", table, []Name{x, y})

	updated := blk.ReplaceJumpTargets([]Name{z, y})

	require.Equal(t, []Name{z, y}, updated.JumpTargets)
	zVal, ok := updated.BranchValueTable.Load(0)
	require.True(t, ok)
	require.Equal(t, z, zVal)
	yVal, ok := updated.BranchValueTable.Load(1)
	require.True(t, ok)
	require.Equal(t, y, yVal)
}

func TestReverseLookupSentinel(t *testing.T) {
	t.Parallel()

	table := orderedmap.New[int, Name]()
	table.Store(0, NewName("a"))
	require.Equal(t, -1, reverseLookup(table, NewName("missing")))
	require.Equal(t, 0, reverseLookup(table, NewName("a")))
}
