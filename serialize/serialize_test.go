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

package serialize_test

import (
	"sort"
	"testing"

	"github.com/bahmann/scfg"
	"github.com/bahmann/scfg/serialize"
	"github.com/stretchr/testify/require"
)

func diamondGraph() *scfg.Graph {
	g := scfg.New()
	n0, n1, n2, n3 := scfg.NewName("0"), scfg.NewName("1"), scfg.NewName("2"), scfg.NewName("3")
	g.AddBlock(scfg.NewBasic(n0, []scfg.Name{n1, n2}))
	g.AddBlock(scfg.NewBasic(n1, []scfg.Name{n3}))
	g.AddBlock(scfg.NewBasic(n2, []scfg.Name{n3}))
	g.AddBlock(scfg.NewBasic(n3, nil))
	return g
}

func TestYAMLRoundTripUnrestructured(t *testing.T) {
	t.Parallel()

	g := diamondGraph()
	out, err := serialize.ToYAML(g)
	require.NoError(t, err)

	got, err := serialize.FromYAML(out)
	require.NoError(t, err)

	requireSameShape(t, g, got)
}

func TestYAMLRoundTripRestructured(t *testing.T) {
	t.Parallel()

	g := diamondGraph()
	require.NoError(t, g.Restructure())

	out, err := serialize.ToYAML(g)
	require.NoError(t, err)

	got, err := serialize.FromYAML(out)
	require.NoError(t, err)

	requireSameShape(t, g, got)
}

func TestDictRoundTrip(t *testing.T) {
	t.Parallel()

	g := diamondGraph()
	require.NoError(t, g.Restructure())

	d, err := serialize.ToDict(g)
	require.NoError(t, err)
	require.Contains(t, d, "blocks")
	require.Contains(t, d, "edges")

	got, err := serialize.FromDict(d)
	require.NoError(t, err)

	requireSameShape(t, g, got)
}

func TestFromYAMLRejectsDanglingEdge(t *testing.T) {
	t.Parallel()

	_, err := serialize.FromYAML([]byte(`
blocks:
  a:
    type: basic
edges:
  a: [b]
`))
	require.ErrorIs(t, err, scfg.ErrMalformedGraph)
}

func TestFromYAMLRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := serialize.FromYAML([]byte(`
blocks:
  a:
    type: not_a_real_kind
edges:
  a: []
`))
	require.ErrorIs(t, err, scfg.ErrMalformedGraph)
}

func TestDot(t *testing.T) {
	t.Parallel()

	g := diamondGraph()
	require.NoError(t, g.Restructure())
	out := serialize.Dot(g)
	require.Contains(t, out, "digraph scfg {")
	require.Contains(t, out, "shape=box3d")
}

// requireSameShape compares two graphs field-by-field without walking
// Parent back-pointers, which would otherwise form a cycle with Subregion.
func requireSameShape(t *testing.T, want, got *scfg.Graph) {
	t.Helper()

	wantNames := sortedStrings(want.Names())
	gotNames := sortedStrings(got.Names())
	require.Equal(t, wantNames, gotNames)

	for _, name := range wantNames {
		wb := want.MustBlock(scfg.NewName(name))
		gb := got.MustBlock(scfg.NewName(name))

		require.Equal(t, wb.Kind, gb.Kind, "block %s kind", name)
		require.Equal(t, namesToStrings(wb.JumpTargets), namesToStrings(gb.JumpTargets), "block %s jump targets", name)
		require.Equal(t, namesToStrings(wb.Backedges), namesToStrings(gb.Backedges), "block %s backedges", name)

		if wb.Kind == scfg.KindRegion {
			require.Equal(t, wb.RegionKind, gb.RegionKind, "region %s kind", name)
			require.Equal(t, wb.Header.String(), gb.Header.String(), "region %s header", name)
			require.Equal(t, wb.Exiting.String(), gb.Exiting.String(), "region %s exiting", name)
			require.NotNil(t, gb.Subregion)
			requireSameShape(t, wb.Subregion, gb.Subregion)
		}
	}
}

func sortedStrings(names []scfg.Name) []string {
	out := namesToStrings(names)
	sort.Strings(out)
	return out
}

func namesToStrings(names []scfg.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
