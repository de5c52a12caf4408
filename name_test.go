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

package scfg_test

import (
	"testing"

	"github.com/bahmann/scfg"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNamerMonotonicPerKind(t *testing.T) {
	t.Parallel()

	namer := scfg.NewNamer()
	require.Equal(t, "basic_block_0", namer.NewBlockName(scfg.KindBasic).String())
	require.Equal(t, "basic_block_1", namer.NewBlockName(scfg.KindBasic).String())
	require.Equal(t, "synth_head_block_0", namer.NewBlockName(scfg.KindSynthHead).String())
	require.Equal(t, "loop_region_0", namer.NewRegionName(scfg.RegionLoop).String())
	require.Equal(t, "loop_region_1", namer.NewRegionName(scfg.RegionLoop).String())
}

func TestNamerVarNamesAreUnique(t *testing.T) {
	t.Parallel()

	namer := scfg.NewNamer()
	a := namer.NewVarName("exit")
	b := namer.NewVarName("exit")
	require.NotEqual(t, a, b)
	require.Equal(t, "__scfg_exit_var_0__", a)
	require.Equal(t, "__scfg_exit_var_1__", b)
}

func TestNameZeroValue(t *testing.T) {
	t.Parallel()

	var n scfg.Name
	require.True(t, n.IsZero())
	require.False(t, scfg.NewName("x").IsZero())
}
