// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

import (
	"fmt"
	"io"
)

// Dump writes a human-readable listing of the graph to w: one line per
// block giving its instruction range, entry stack depth and fallthrough
// successor, followed by one line per instruction (a branch's target block
// is its printed oparg). It is the Go
// analog of cfgDump, used by cmd/cfgdump and by tests that want to see
// what a failing pass produced.
func (g *ControlFlowGraph) Dump(w io.Writer) error {
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		depth := "?"
		if b.EntryStackDepth != UnsetDepth {
			depth = fmt.Sprintf("%d", b.EntryStackDepth)
		}
		fallthroughStr := "none"
		if b.Fallthrough != NoFallthrough {
			fallthroughStr = fmt.Sprintf("block%d", b.Fallthrough)
		}
		reach := " "
		if !b.IsReachable {
			reach = "*" // unreachable blocks are starred, not omitted
		}
		if _, err := fmt.Fprintf(w, "%sblock%d [%d,%d) depth=%s fallthrough=%s\n",
			reach, bi, b.Start, b.End, depth, fallthroughStr); err != nil {
			return err
		}
		for ii := b.Start; ii < b.End; ii++ {
			instr := g.Instructions[ii]
			if _, err := fmt.Fprintf(w, "    %4d %s %d\n", ii, instr.Op, instr.Oparg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sanity re-checks the structural invariants Build and the optimizer rely
// on: blocks partition the instruction stream contiguously and in order,
// every branch oparg names an in-range block, and every non-exit block
// has an in-range fallthrough. It is the Go analog of cfgSanity, meant to
// be called from tests after each rewrite rather than from production
// code paths.
func (g *ControlFlowGraph) Sanity() error {
	if len(g.Blocks) == 0 {
		return InvariantError{Reason: "graph has no blocks", Offset: -1, Block: -1}
	}
	if g.Blocks[0].Start != 0 {
		return InvariantError{Reason: "block 0 does not start at instruction 0", Block: 0}
	}
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if b.Start < 0 || b.End > len(g.Instructions) || b.Start > b.End {
			return InvariantError{Reason: "block range out of bounds", Block: bi}
		}
		if bi > 0 && g.Blocks[bi-1].End != b.Start {
			return InvariantError{Reason: "blocks are not contiguous", Block: bi}
		}
		if b.Empty() && b.Fallthrough == NoFallthrough {
			return InvariantError{Reason: "empty block has no fallthrough", Block: bi}
		}
		if !b.IsExit && b.Fallthrough == NoFallthrough {
			return InvariantError{Reason: "non-exit block has no fallthrough", Block: bi}
		}
		if b.Fallthrough != NoFallthrough && (b.Fallthrough < 0 || b.Fallthrough >= len(g.Blocks)) {
			return InvariantError{Reason: "fallthrough targets out-of-range block", Block: bi}
		}
		if !b.Empty() && g.IsBranchBlock(b) {
			target := g.BranchTarget(b)
			if target < 0 || target >= len(g.Blocks) {
				return InvariantError{Reason: "branch targets out-of-range block", Block: bi}
			}
		}
	}
	if last := &g.Blocks[len(g.Blocks)-1]; last.End != len(g.Instructions) {
		return InvariantError{Reason: "final block does not reach end of instruction stream", Block: len(g.Blocks) - 1}
	}
	return nil
}
