// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

// Build partitions a flat, ordered instruction stream into basic blocks,
// rewrites every branch's oparg from an absolute instruction index to a
// block index, and computes each block's fallthrough successor (§4.2).
//
// The caller retains ownership of instrs; Build copies it into the
// returned graph. instrs[0] is always treated as a leader, and branch
// instructions must carry, in Oparg, the absolute index of their target —
// exactly the contract §4.1 describes for the front end this package
// doesn't implement.
func Build(instrs []Instruction) (*ControlFlowGraph, error) {
	n := len(instrs)
	if n == 0 {
		return nil, ErrEmptyInstructionStream
	}

	isLeader := make([]bool, n)
	isLeader[0] = true
	for i := 0; i < n-1; i++ {
		instr := instrs[i]
		switch {
		case instr.Has(IsBranch):
			if int(instr.Oparg) >= n {
				return nil, InvariantError{Reason: "branch target out of range", Offset: i}
			}
			isLeader[instr.Oparg] = true
			isLeader[i+1] = true
		case instr.Has(IsTerminator):
			isLeader[i+1] = true
		}
	}
	if last := instrs[n-1]; last.Has(IsBranch) {
		if int(last.Oparg) >= n {
			return nil, InvariantError{Reason: "branch target out of range", Offset: n - 1}
		}
		isLeader[last.Oparg] = true
	}

	blocks := make([]BasicBlock, 0, 16)
	instrToBlock := make([]int, n)
	for i := 0; i < n; i++ {
		if !isLeader[i] {
			continue
		}
		if len(blocks) > 0 {
			blocks[len(blocks)-1].End = i
		}
		blocks = append(blocks, BasicBlock{
			Start:           i,
			IsReachable:     true,
			EntryStackDepth: UnsetDepth,
		})
		instrToBlock[i] = len(blocks) - 1
	}
	blocks[len(blocks)-1].End = n
	blocks[0].EntryStackDepth = 0

	g := &ControlFlowGraph{
		Instructions: append([]Instruction(nil), instrs...),
		Blocks:       blocks,
	}

	for i := range g.Instructions {
		if g.Instructions[i].Has(IsBranch) {
			g.Instructions[i].Oparg = uint32(instrToBlock[g.Instructions[i].Oparg])
		}
	}

	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		terminated := !b.Empty() && g.Instructions[b.End-1].Has(IsTerminator)
		if terminated {
			b.Fallthrough = NoFallthrough
			b.IsExit = true
			continue
		}
		if bi+1 >= len(g.Blocks) {
			return nil, InvariantError{Reason: "final block has no terminator and no fallthrough successor", Block: bi}
		}
		b.Fallthrough = bi + 1
	}

	logger.Printf("built %d blocks from %d instructions", len(g.Blocks), n)
	return g, nil
}
