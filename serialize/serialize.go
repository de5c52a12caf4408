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

// Package serialize implements the dictionary and YAML wire format of §6:
// to_dict/from_dict and to_yaml/from_yaml, plus a Dot text dump. The wire
// format is flat (every block, including ones nested inside regions, is
// listed once at the top level of "blocks"); region nesting is recovered
// from each region block's "contains" list rather than from map structure.
package serialize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bahmann/scfg"
	"github.com/bahmann/scfg/util/orderedmap"
	"gopkg.in/yaml.v3"
)

// wireDoc is the top-level shape of both the dict and YAML forms (spec §6).
type wireDoc struct {
	Blocks    map[string]wireBlock `yaml:"blocks"`
	Edges     map[string][]string  `yaml:"edges"`
	Backedges map[string][]string  `yaml:"backedges,omitempty"`
}

// wireBlock carries every variant's fields; only the ones relevant to Type
// are populated (spec §6 "Variant-specific fields").
type wireBlock struct {
	Type string `yaml:"type"`

	Begin int   `yaml:"begin,omitempty"`
	End   int   `yaml:"end,omitempty"`
	Tree  []any `yaml:"tree,omitempty"`

	VariableAssignment map[string]int `yaml:"variable_assignment,omitempty"`

	Variable         string         `yaml:"variable,omitempty"`
	BranchValueTable map[int]string `yaml:"branch_value_table,omitempty"`

	Kind         string   `yaml:"kind,omitempty"`
	Contains     []string `yaml:"contains,omitempty"`
	Header       string   `yaml:"header,omitempty"`
	Exiting      string   `yaml:"exiting,omitempty"`
	ParentRegion string   `yaml:"parent_region,omitempty"`
}

// ToYAML serializes g to the YAML wire format.
func ToYAML(g *scfg.Graph) ([]byte, error) {
	doc := toWireDoc(g)
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize: marshaling yaml: %w", err)
	}
	return out, nil
}

// FromYAML parses the YAML wire format into a fresh Graph, rebuilding any
// regions the input lists.
func FromYAML(data []byte) (*scfg.Graph, error) {
	var doc wireDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("serialize: parsing yaml: %v: %w", err, scfg.ErrMalformedGraph)
	}
	return fromWireDoc(doc)
}

// ToDict serializes g to the dictionary form (a generic map, suitable for
// further marshaling by a caller who does not want YAML specifically).
func ToDict(g *scfg.Graph) (map[string]any, error) {
	doc := toWireDoc(g)
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize: building dict: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("serialize: building dict: %w", err)
	}
	return m, nil
}

// FromDict builds a Graph from the dictionary form produced by ToDict.
func FromDict(d map[string]any) (*scfg.Graph, error) {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serialize: %v: %w", err, scfg.ErrMalformedGraph)
	}
	return FromYAML(raw)
}

// toWireDoc flattens g's entire hierarchy (including nested subregions) into
// a single blocks/edges/backedges document.
func toWireDoc(g *scfg.Graph) wireDoc {
	doc := wireDoc{
		Blocks:    make(map[string]wireBlock),
		Edges:     make(map[string][]string),
		Backedges: make(map[string][]string),
	}
	collectBlocks(g, &doc)
	return doc
}

func collectBlocks(g *scfg.Graph, doc *wireDoc) {
	for _, n := range g.Names() {
		b := g.MustBlock(n)
		doc.Edges[n.String()] = namesToStrings(b.JumpTargets)
		if len(b.Backedges) > 0 {
			doc.Backedges[n.String()] = namesToStrings(b.Backedges)
		}
		doc.Blocks[n.String()] = toWireBlock(b)
		if b.Kind == scfg.KindRegion && b.Subregion != nil {
			collectBlocks(b.Subregion, doc)
		}
	}
}

func toWireBlock(b scfg.Block) wireBlock {
	wb := wireBlock{Type: string(b.Kind)}
	switch b.Kind {
	case scfg.KindPythonBytecode:
		wb.Begin, wb.End = b.Begin, b.End
	case scfg.KindPythonAST:
		wb.Begin, wb.End, wb.Tree = b.Begin, b.End, b.Tree
	case scfg.KindSynthAssign:
		wb.VariableAssignment = b.VariableAssignment
	case scfg.KindSynthHead, scfg.KindSynthBranch, scfg.KindSynthExitLatch, scfg.KindSynthExitBranch:
		wb.Variable = b.Variable
		wb.BranchValueTable = valueTableToWire(b.BranchValueTable)
	case scfg.KindRegion:
		wb.Kind = string(b.RegionKind)
		wb.Header = b.Header.String()
		wb.Exiting = b.Exiting.String()
		wb.ParentRegion = b.ParentRegion.String()
		if b.Subregion != nil {
			wb.Contains = append(wb.Contains, namesToStrings(b.Subregion.Names())...)
			sort.Strings(wb.Contains)
		}
	}
	return wb
}

func valueTableToWire(table *orderedmap.OrderedMap[int, scfg.Name]) map[int]string {
	if table == nil {
		return nil
	}
	out := make(map[int]string, table.Len())
	for _, p := range table.Pairs {
		out[p.Key] = p.Value.String()
	}
	return out
}

func namesToStrings(names []scfg.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

func toNames(strs []string) []scfg.Name {
	if strs == nil {
		return nil
	}
	out := make([]scfg.Name, len(strs))
	for i, s := range strs {
		out[i] = scfg.NewName(s)
	}
	return out
}

// fromWireDoc reconstructs the top-level Graph, recovering region nesting
// from each region block's "contains" list (spec §6: "seeded from the
// outermost blocks (those not listed in any region's contains)").
func fromWireDoc(doc wireDoc) (*scfg.Graph, error) {
	owned := make(map[string]bool)
	for name, wb := range doc.Blocks {
		if wb.Type != "region" {
			continue
		}
		for _, c := range wb.Contains {
			if _, ok := doc.Blocks[c]; !ok {
				return nil, fmt.Errorf("serialize: region %q contains nonexistent block %q: %w", name, c, scfg.ErrMalformedGraph)
			}
			owned[c] = true
		}
	}

	var top []string
	for name := range doc.Blocks {
		if !owned[name] {
			top = append(top, name)
		}
	}
	sort.Strings(top)

	namer := scfg.NewNamer()
	return buildLevel(namer, top, doc)
}

func buildLevel(namer *scfg.Namer, names []string, doc wireDoc) (*scfg.Graph, error) {
	g := scfg.NewSubregion(namer)
	for _, name := range names {
		wb, ok := doc.Blocks[name]
		if !ok {
			return nil, fmt.Errorf("serialize: edges reference undefined block %q: %w", name, scfg.ErrMalformedGraph)
		}
		b, err := buildBlock(namer, name, wb, doc)
		if err != nil {
			return nil, err
		}
		g.AddBlock(b)
	}
	for _, name := range names {
		b := g.MustBlock(scfg.NewName(name))
		if b.Kind == scfg.KindRegion && b.Subregion != nil {
			b.Subregion.Parent = g
			b.Subregion.Region = b.Name
		}
	}
	return g, nil
}

func buildBlock(namer *scfg.Namer, name string, wb wireBlock, doc wireDoc) (scfg.Block, error) {
	edges, hasEdges := doc.Edges[name]
	if !hasEdges {
		return scfg.Block{}, fmt.Errorf("serialize: block %q has no edges entry: %w", name, scfg.ErrMalformedGraph)
	}
	for _, t := range edges {
		if _, ok := doc.Blocks[t]; !ok {
			return scfg.Block{}, fmt.Errorf("serialize: block %q: edge to undefined block %q: %w", name, t, scfg.ErrMalformedGraph)
		}
	}

	b := scfg.Block{
		Name:        scfg.NewName(name),
		JumpTargets: toNames(edges),
		Backedges:   toNames(doc.Backedges[name]),
	}

	switch wb.Type {
	case "basic":
		b.Kind = scfg.KindBasic
	case "python_bytecode":
		b.Kind = scfg.KindPythonBytecode
		b.Begin, b.End = wb.Begin, wb.End
	case "python_ast":
		b.Kind = scfg.KindPythonAST
		b.Begin, b.End, b.Tree = wb.Begin, wb.End, wb.Tree
	case "synth_assign":
		b.Kind = scfg.KindSynthAssign
		b.VariableAssignment = wb.VariableAssignment
	case "synth_head", "synth_branch", "synth_exit_latch", "synth_exit_branch":
		b.Kind = scfg.Kind(wb.Type)
		b.Variable = wb.Variable
		b.BranchValueTable = valueTableFromWire(wb.BranchValueTable)
	case "synth_tail", "synth_exit", "synth_return", "synth_fill":
		b.Kind = scfg.Kind(wb.Type)
	case "region":
		b.Kind = scfg.KindRegion
		b.RegionKind = scfg.RegionKind(wb.Kind)
		b.Header = scfg.NewName(wb.Header)
		b.Exiting = scfg.NewName(wb.Exiting)
		if wb.ParentRegion != "" {
			b.ParentRegion = scfg.NewName(wb.ParentRegion)
		}
		sub, err := buildLevel(namer, append([]string(nil), wb.Contains...), doc)
		if err != nil {
			return scfg.Block{}, err
		}
		b.Subregion = sub
	default:
		return scfg.Block{}, fmt.Errorf("serialize: block %q: unknown type %q: %w", name, wb.Type, scfg.ErrMalformedGraph)
	}
	return b, nil
}

func valueTableFromWire(wire map[int]string) *orderedmap.OrderedMap[int, scfg.Name] {
	table := orderedmap.New[int, scfg.Name]()
	keys := make([]int, 0, len(wire))
	for k := range wire {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		table.Store(k, scfg.NewName(wire[k]))
	}
	return table
}

// Dot renders g (and every nested subregion) as graphviz DOT text. It is a
// text artifact only; this package has no dependency on a graphviz binary
// or layout engine (rendering is a named Non-goal, spec §1).
func Dot(g *scfg.Graph) string {
	var sb strings.Builder
	sb.WriteString("digraph scfg {\n")
	writeDotLevel(&sb, g, "  ")
	sb.WriteString("}\n")
	return sb.String()
}

func writeDotLevel(sb *strings.Builder, g *scfg.Graph, indent string) {
	for _, n := range g.Names() {
		b := g.MustBlock(n)
		shape := "box"
		if b.Kind == scfg.KindRegion {
			shape = "box3d"
		}
		fmt.Fprintf(sb, "%s%q [shape=%s,label=%q];\n", indent, n.String(), shape, fmt.Sprintf("%s\\n%s", n.String(), b.Kind))
		for _, t := range b.JumpTargets {
			style := ""
			if containsBackedge(b.Backedges, t) {
				style = " [style=dashed,label=back]"
			}
			fmt.Fprintf(sb, "%s%q -> %q%s;\n", indent, n.String(), t.String(), style)
		}
		if b.Kind == scfg.KindRegion && b.Subregion != nil {
			fmt.Fprintf(sb, "%ssubgraph cluster_%s {\n", indent, n.String())
			writeDotLevel(sb, b.Subregion, indent+"  ")
			fmt.Fprintf(sb, "%s}\n", indent)
		}
	}
}

func containsBackedge(backedges []scfg.Name, t scfg.Name) bool {
	for _, b := range backedges {
		if b == t {
			return true
		}
	}
	return false
}
