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

// Package simulate implements the reference interpreter §8 calls for as the
// semantic-equivalence witness: it walks a Graph (restructured or not) from
// its head, dispatching on block kind, and records the trace of visited
// non-synthetic block names. For every non-synthetic block it consults a
// caller-supplied Oracle to resolve which of the (at most two) jump targets
// is taken, since real basic-block payloads are opaque to this module.
//
// Grounded directly on original_source/numba_scfg/tests/simulator.py's
// Simulator.run/run_BasicBlock/run_RegionBlock: same region-recursion shape
// (recurse into a region's subregion until the walk leaves it, then return
// control to the enclosing level), same control-variable dispatch for
// synthetic branch blocks, same two-jump-target false/true convention
// (spec §4.3).
package simulate

import (
	"fmt"

	"github.com/bahmann/scfg"
)

// Oracle resolves the branch taken by a non-synthetic block with two jump
// targets: it returns false to take JumpTargets[0], true for
// JumpTargets[1]. It is never called for a block with zero or one jump
// target. Real basic-block payloads (Begin/End/Tree) are opaque to this
// module (§1 Non-goals); Oracle stands in for whatever a frontend would
// otherwise derive the decision from (bytecode execution, AST evaluation).
type Oracle func(name scfg.Name, b scfg.Block) bool

// action is the result of executing one block: either a name to jump to
// next (possibly at an enclosing level, once a region walk breaks out) or a
// terminal return.
type action struct {
	isReturn bool
	jumpTo   scfg.Name
}

// Run simulates g from its unique head, returning the trace of visited
// non-synthetic (Basic/PythonBytecode/PythonAST) block names in visitation
// order. ctrlVarMap starts empty; SyntheticAssignment blocks populate it as
// execution proceeds, exactly as the original's ctrl_varmap does.
func Run(g *scfg.Graph, oracle Oracle) ([]scfg.Name, error) {
	head, err := g.HeadName()
	if err != nil {
		return nil, err
	}

	ctrlVarMap := make(map[string]int)
	var trace []scfg.Name

	level := g
	cur := head
	for {
		act, err := runBlock(level, cur, oracle, ctrlVarMap, &trace)
		if err != nil {
			return nil, err
		}
		if act.isReturn {
			return trace, nil
		}
		cur = act.jumpTo
	}
}

func runBlock(level *scfg.Graph, name scfg.Name, oracle Oracle, ctrlVarMap map[string]int, trace *[]scfg.Name) (action, error) {
	b, ok := level.Block(name)
	if !ok {
		return action{}, fmt.Errorf("simulate: block %s not found: %w", name, scfg.ErrMalformedGraph)
	}

	if b.Kind == scfg.KindRegion {
		return runRegion(b, oracle, ctrlVarMap, trace)
	}

	branch := false
	switch b.Kind {
	case scfg.KindBasic, scfg.KindPythonBytecode, scfg.KindPythonAST:
		*trace = append(*trace, name)
		if len(b.JumpTargets) == 2 {
			branch = oracle(name, b)
		}
	case scfg.KindSynthAssign:
		for k, v := range b.VariableAssignment {
			ctrlVarMap[k] = v
		}
	case scfg.KindSynthHead, scfg.KindSynthBranch, scfg.KindSynthExitLatch, scfg.KindSynthExitBranch:
		var err error
		branch, err = resolveBranchValueTable(b, ctrlVarMap)
		if err != nil {
			return action{}, err
		}
	case scfg.KindSynthTail, scfg.KindSynthExit, scfg.KindSynthReturn, scfg.KindSynthFill:
		// No observable effect; fall through to the jump-target dispatch below.
	default:
		return action{}, fmt.Errorf("simulate: block %s has unsimulatable kind %s: %w", name, b.Kind, scfg.ErrUnreachable)
	}

	switch len(b.JumpTargets) {
	case 0:
		return action{isReturn: true}, nil
	case 1:
		return action{jumpTo: b.JumpTargets[0]}, nil
	case 2:
		if branch {
			return action{jumpTo: b.JumpTargets[1]}, nil
		}
		return action{jumpTo: b.JumpTargets[0]}, nil
	default:
		return action{}, fmt.Errorf("simulate: block %s has %d jump targets, expected 0, 1, or 2: %w", name, len(b.JumpTargets), scfg.ErrMalformedGraph)
	}
}

// resolveBranchValueTable looks up the jump target selected by a synthetic
// branch block's control variable and reports whether it is the block's
// second (true) jump target.
func resolveBranchValueTable(b scfg.Block, ctrlVarMap map[string]int) (bool, error) {
	val, ok := ctrlVarMap[b.Variable]
	if !ok {
		return false, fmt.Errorf("simulate: block %s: control variable %q never assigned: %w", b.Name, b.Variable, scfg.ErrInvariantViolation)
	}
	target, ok := b.BranchValueTable.Load(val)
	if !ok {
		return false, fmt.Errorf("simulate: block %s: no branch_value_table entry for %q=%d: %w", b.Name, b.Variable, val, scfg.ErrInvariantViolation)
	}
	for i, t := range b.JumpTargets {
		if t == target {
			return i == 1, nil
		}
	}
	return false, fmt.Errorf("simulate: block %s: branch_value_table target %s not among its jump targets: %w", b.Name, target, scfg.ErrInvariantViolation)
}

// runRegion executes a region's interior starting at its subregion's head,
// staying inside the subregion until a jump target lands outside it, then
// returns that action to the caller (who interprets it at the enclosing
// level, mirroring original's region_stack pop).
func runRegion(region scfg.Block, oracle Oracle, ctrlVarMap map[string]int, trace *[]scfg.Name) (action, error) {
	sub := region.Subregion
	cur, err := sub.HeadName()
	if err != nil {
		return action{}, err
	}
	for {
		act, err := runBlock(sub, cur, oracle, ctrlVarMap, trace)
		if err != nil {
			return action{}, err
		}
		if act.isReturn {
			return act, nil
		}
		if _, ok := sub.Block(act.jumpTo); ok {
			cur = act.jumpTo
			continue
		}
		return act, nil
	}
}
