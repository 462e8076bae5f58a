// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import "github.com/go-interpreter/flowcfg/cfg"

// emissionOrder produces a linear sequence of block indices covering
// every reachable block exactly once, with every block that has a
// fallthrough immediately followed by it (§4.5 step 1). Block 0 seeds the
// first run; any reachable block left over after following fallthrough
// chains from there starts a run of its own, in index order.
func emissionOrder(g *cfg.ControlFlowGraph) ([]int, error) {
	if len(g.Blocks) == 0 {
		return nil, ErrEmptyCFG
	}

	visited := make([]bool, len(g.Blocks))
	order := make([]int, 0, len(g.Blocks))

	appendRun := func(start int) {
		b := start
		for b != cfg.NoFallthrough && !visited[b] {
			visited[b] = true
			order = append(order, b)
			b = g.Blocks[b].Fallthrough
		}
	}

	appendRun(0)
	for bi := range g.Blocks {
		if !g.Blocks[bi].IsReachable || visited[bi] {
			continue
		}
		appendRun(bi)
	}

	if err := verifyEmissionOrder(g, order); err != nil {
		return nil, err
	}
	return order, nil
}

// verifyEmissionOrder re-checks the property emissionOrder promises: every
// reachable block appears exactly once, and every fallthrough is the next
// entry after its predecessor (§8 "Structural").
func verifyEmissionOrder(g *cfg.ControlFlowGraph, order []int) error {
	seen := make([]bool, len(g.Blocks))
	for i, bi := range order {
		if seen[bi] {
			return cfg.InvariantError{Reason: "emission order visits a block twice", Block: bi}
		}
		seen[bi] = true
		if ft := g.Blocks[bi].Fallthrough; ft != cfg.NoFallthrough {
			if i+1 >= len(order) || order[i+1] != ft {
				return cfg.InvariantError{Reason: "fallthrough is not the next entry in emission order", Block: bi}
			}
		}
	}
	for bi := range g.Blocks {
		if g.Blocks[bi].IsReachable && !seen[bi] {
			return cfg.InvariantError{Reason: "reachable block missing from emission order", Block: bi}
		}
	}
	return nil
}
