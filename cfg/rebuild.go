// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

// Rebuild replaces the graph's flat instruction array with the
// concatenation of perBlock, in block-slice order, and updates every
// block's Start/End to the resulting range. perBlock must have exactly
// one entry per block in g.Blocks; it is how the optimizer's intra-block
// rewrites — which change how many instructions a block holds — get
// written back without the caller having to reason about a shared flat
// array of shifting indices.
//
// Cross-references are untouched: branch opargs and Fallthrough name
// block indices, which Rebuild never reassigns.
func (g *ControlFlowGraph) Rebuild(perBlock [][]Instruction) {
	total := 0
	for _, instrs := range perBlock {
		total += len(instrs)
	}
	flat := make([]Instruction, 0, total)
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		b.Start = len(flat)
		flat = append(flat, perBlock[bi]...)
		b.End = len(flat)
	}
	g.Instructions = flat
}

// NewBlock appends an empty block to the graph and returns its index.
// Its Start/End are left zero until the next Rebuild; callers that add a
// block mid-rewrite (tail duplication) are expected to extend their own
// per-block instruction slice with a matching new entry before calling
// Rebuild.
func (g *ControlFlowGraph) NewBlock(fallthroughTo int) int {
	g.Blocks = append(g.Blocks, BasicBlock{
		Fallthrough:     fallthroughTo,
		IsExit:          fallthroughTo == NoFallthrough,
		EntryStackDepth: UnsetDepth,
	})
	return len(g.Blocks) - 1
}
