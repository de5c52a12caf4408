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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bahmann/scfg/serialize"
	"github.com/bahmann/scfg/snapshot"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const diamondYAML = `
blocks:
  "0": {type: basic}
  "1": {type: basic}
  "2": {type: basic}
  "3": {type: basic}
edges:
  "0": ["1", "2"]
  "1": ["3"]
  "2": ["3"]
  "3": []
`

func TestRunWritesRestructuredOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	out := filepath.Join(dir, "out.yaml")
	cache := filepath.Join(dir, "out.snap")
	dot := filepath.Join(dir, "out.dot")
	require.NoError(t, os.WriteFile(in, []byte(diamondYAML), 0o644))

	*_output = out
	*_cache = cache
	*_dot = dot
	defer func() { *_output, *_cache, *_dot = "", "", "" }()

	require.NoError(t, run(in))

	outData, err := os.ReadFile(out)
	require.NoError(t, err)
	g, err := serialize.FromYAML(outData)
	require.NoError(t, err)
	head, err := g.HeadName()
	require.NoError(t, err)
	headBlock := g.MustBlock(head)
	require.Equal(t, "head", string(headBlock.RegionKind))

	snap, err := snapshot.Load(cache)
	require.NoError(t, err)
	require.Len(t, snap.Names(), len(g.Names()))

	dotData, err := os.ReadFile(dot)
	require.NoError(t, err)
	require.Contains(t, string(dotData), "digraph scfg")
}

func TestRunRejectsOversizedInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte(diamondYAML), 0o644))

	limits.MaxBlocks = 1
	defer func() { limits.MaxBlocks = 0 }()

	err := run(in)
	require.Error(t, err)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
