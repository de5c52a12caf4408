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

// Restructure runs the full pipeline in place: it closes multiple returns
// into one, then restructures every loop (outer level first, then recursion
// into the extracted subregions), then restructures every branch hammock
// (spec §4.12). The receiver is left in an unspecified intermediate state
// if it returns a non-nil error; the caller should discard it (spec §7).
func (g *Graph) Restructure() error {
	joinReturns(g)
	if err := restructureLoopRecursive(g); err != nil {
		return err
	}
	if err := restructureBranchRecursive(g); err != nil {
		return err
	}
	return nil
}
