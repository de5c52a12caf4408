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

// Command scfgrestructure reads a YAML-encoded control flow graph, applies
// the loop and branch restructuring transformations, and writes the
// restructured graph back out as YAML, optionally alongside a binary
// snapshot for faster reload by a subsequent invocation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bahmann/scfg/config"
	"github.com/bahmann/scfg/serialize"
	"github.com/bahmann/scfg/snapshot"
)

// We lift config.Limits' flags to the top level of our own FlagSet so
// callers invoke this driver directly as `scfgrestructure -max-blocks N
// -pretty in.yaml`, the same flag-lifting shape cmd/nilaway/main.go uses to
// expose config.Analyzer's flags without a sub-analyzer name prefix.
var limits config.Limits

var (
	_output = flag.String("o", "", "output path for the restructured YAML (default: stdout)")
	_cache  = flag.String("cache", "", "optional path to write a binary snapshot of the restructured graph")
	_dot    = flag.String("dot", "", "optional path to write a graphviz DOT dump of the restructured graph")
	_debug  = flag.Bool("debug", false, "enable debug-level driver logs")
)

func main() {
	limits.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input.yaml>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "scfgrestructure: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath string) error {
	logger := log.New(os.Stderr, "", 0)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	g, err := serialize.FromYAML(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	if limits.MaxBlocks > 0 && len(g.Names()) > limits.MaxBlocks {
		return fmt.Errorf("input has %d top-level blocks, exceeding -max-blocks=%d", len(g.Names()), limits.MaxBlocks)
	}

	if *_debug {
		logger.Printf("debug: read %d top-level blocks from %s", len(g.Names()), inputPath)
	}

	if err := g.Restructure(); err != nil {
		return fmt.Errorf("restructuring %s: %w", inputPath, err)
	}
	logger.Printf("info: restructured %s", inputPath)

	out, err := serialize.ToYAML(g)
	if err != nil {
		return fmt.Errorf("serializing restructured graph: %w", err)
	}

	if err := writeOutput(*_output, out); err != nil {
		return err
	}

	if *_cache != "" {
		if err := snapshot.Save(*_cache, g); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		logger.Printf("info: wrote snapshot to %s", *_cache)
	}

	if *_dot != "" {
		if err := os.WriteFile(*_dot, []byte(serialize.Dot(g)), 0o644); err != nil {
			return fmt.Errorf("writing dot dump: %w", err)
		}
		logger.Printf("info: wrote dot dump to %s", *_dot)
	}

	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
