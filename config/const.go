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

// Package config holds tunable parameters for the restructuring engine,
// separated into non-user-configurable development constants (this file)
// and user-facing CLI limits (limits.go).
package config

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// MaxDominatorIterations bounds the worklist in the dominator fixed-point computation (the `doms`
// algorithm of spec §4.5). Correct input converges in a handful of passes proportional to graph
// depth; this bound exists only so that a restructurer bug producing a non-converging update rule
// surfaces as a diagnosable InvariantViolation instead of a hang. It is not a timeout on correct
// behavior, and should never be hit in practice.
const MaxDominatorIterations = 1 << 20

// MaxImmediateDominatorIterations bounds the imm_doms fixed-point subtraction loop (spec §4.5),
// for the same reason as MaxDominatorIterations.
const MaxImmediateDominatorIterations = 1 << 20
