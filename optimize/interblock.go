// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import (
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// MaxLengthForDuplicating bounds which exit blocks tail duplication will
// clone (§4.4): longer blocks aren't worth the code growth.
const MaxLengthForDuplicating = 6

// interBlockPass applies jump-to-jump threading, conditional-to-
// conditional collapse, sense-flipping and tail duplication to every
// block whose last instruction is a branch.
//
// All instruction-count-changing edits (only tail duplication makes one,
// by dropping the trailing jump it replaces with a fallthrough) are
// accumulated into a per-block working copy and written back in a single
// cfg.Rebuild call, so the flat array's contiguity invariant is never
// observed broken mid-pass. Opcode and oparg edits (retargeting, sense
// flipping) go into the same working copy; fallthrough and exit changes
// are applied directly to g.Blocks.
//
// A change invalidates reachability, which the caller must recompute
// before the next iteration.
func interBlockPass(g *cfg.ControlFlowGraph) (changed bool, err error) {
	perBlock := make([][]cfg.Instruction, len(g.Blocks))
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		perBlock[bi] = append([]cfg.Instruction(nil), g.Instructions[b.Start:b.End]...)
	}

	// Iterate over a fixed snapshot of the block count: newly-appended
	// clones are picked up on the next outer Run iteration.
	n := len(g.Blocks)
	for bi := 0; bi < n; bi++ {
		instrs := perBlock[bi]
		if len(instrs) == 0 {
			continue
		}
		last := instrs[len(instrs)-1]
		if !last.Op.IsBranch() {
			continue
		}
		targetIdx := int(last.Oparg)
		target := &g.Blocks[targetIdx]
		targetInstrs := perBlock[targetIdx]

		if newTarget, ok := threadJumpToJump(last, targetInstrs); ok {
			perBlock[bi][len(instrs)-1].Oparg = newTarget
			changed = true
			continue
		}

		if newOp, newTarget, ok, cerr := collapseConditionalToConditional(g, last, target, targetInstrs); cerr != nil {
			return false, cerr
		} else if ok {
			perBlock[bi][len(instrs)-1].Op = newOp
			perBlock[bi][len(instrs)-1].Oparg = newTarget
			changed = true
			continue
		}

		if flipSenseForDuplication(g, bi, &last, target, perBlock) {
			changed = true
			continue
		}

		if cloneIdx, ok := duplicateTail(last, target, targetInstrs, g); ok {
			perBlock[bi] = instrs[:len(instrs)-1]
			g.Blocks[bi].Fallthrough = cloneIdx
			g.Blocks[bi].IsExit = false
			perBlock = append(perBlock, append([]cfg.Instruction(nil), targetInstrs...))
			changed = true
			continue
		}
	}

	g.Rebuild(perBlock)
	return changed, nil
}

// threadJumpToJump retargets an unconditional jump past a target block
// that is itself nothing but another unconditional jump.
func threadJumpToJump(last cfg.Instruction, targetInstrs []cfg.Instruction) (uint32, bool) {
	if last.Op != isa.JUMP_ABSOLUTE && last.Op != isa.JUMP_FORWARD {
		return 0, false
	}
	if len(targetInstrs) != 1 {
		return 0, false
	}
	only := targetInstrs[0]
	if only.Op != isa.JUMP_ABSOLUTE && only.Op != isa.JUMP_FORWARD {
		return 0, false
	}
	if only.Oparg == last.Oparg {
		return 0, false
	}
	return only.Oparg, true
}

// collapseConditionalToConditional handles a JUMP_IF_*_OR_POP whose
// target is another conditional of the same or opposite sense.
func collapseConditionalToConditional(g *cfg.ControlFlowGraph, last cfg.Instruction, target *cfg.BasicBlock, targetInstrs []cfg.Instruction) (isa.Opcode, uint32, bool, error) {
	if last.Op != isa.JUMP_IF_TRUE_OR_POP && last.Op != isa.JUMP_IF_FALSE_OR_POP {
		return 0, 0, false, nil
	}
	if len(targetInstrs) != 1 {
		return 0, 0, false, nil
	}
	only := targetInstrs[0]
	switch only.Op {
	case isa.JUMP_IF_TRUE_OR_POP, isa.JUMP_IF_FALSE_OR_POP:
		if only.Op == last.Op {
			return last.Op, only.Oparg, true, nil
		}
		// Opposite sense: whenever the first test fires, the value it
		// leaves on the stack makes the second test fail, pop it and fall
		// through, so the first becomes a POP_JUMP_IF_* of the same sense
		// straight to the second conditional's fallthrough.
		if last.Op == isa.JUMP_IF_TRUE_OR_POP {
			return isa.POP_JUMP_IF_TRUE, uint32(target.Fallthrough), true, nil
		}
		return isa.POP_JUMP_IF_FALSE, uint32(target.Fallthrough), true, nil
	default:
		return 0, 0, false, nil
	}
}

// flipSenseForDuplication swaps a POP_JUMP_IF_* test's sense (and its two
// targets) when doing so would let duplicateTail clone the shorter of the
// two successor blocks instead of the longer one.
func flipSenseForDuplication(g *cfg.ControlFlowGraph, bi int, last *cfg.Instruction, target *cfg.BasicBlock, perBlock [][]cfg.Instruction) bool {
	if last.Op != isa.POP_JUMP_IF_TRUE && last.Op != isa.POP_JUMP_IF_FALSE {
		return false
	}
	b := &g.Blocks[bi]
	if b.Fallthrough == cfg.NoFallthrough {
		return false
	}
	fallthroughIdx := b.Fallthrough
	fallthroughInstrs := perBlock[fallthroughIdx]
	if len(fallthroughInstrs) != 1 {
		return false
	}
	only := fallthroughInstrs[0]
	if only.Op != isa.JUMP_ABSOLUTE && only.Op != isa.JUMP_FORWARD {
		return false
	}
	otherTarget := &g.Blocks[only.Oparg]
	if !target.IsExit || !otherTarget.IsExit {
		return false
	}
	targetLen := target.End - target.Start
	otherLen := otherTarget.End - otherTarget.Start
	if targetLen > MaxLengthForDuplicating || otherLen <= MaxLengthForDuplicating {
		return false
	}

	instrs := perBlock[bi]
	idx := len(instrs) - 1
	oldTarget := instrs[idx].Oparg
	if last.Op == isa.POP_JUMP_IF_TRUE {
		perBlock[bi][idx].Op = isa.POP_JUMP_IF_FALSE
	} else {
		perBlock[bi][idx].Op = isa.POP_JUMP_IF_TRUE
	}
	perBlock[bi][idx].Oparg = only.Oparg
	perBlock[fallthroughIdx][0].Oparg = oldTarget
	return true
}

// duplicateTail clones an unconditional jump's short exit-block target so
// the predecessor can fall through directly into the clone instead of
// jumping to the shared original. It returns the new block's index.
func duplicateTail(last cfg.Instruction, target *cfg.BasicBlock, targetInstrs []cfg.Instruction, g *cfg.ControlFlowGraph) (int, bool) {
	if last.Op != isa.JUMP_ABSOLUTE && last.Op != isa.JUMP_FORWARD {
		return 0, false
	}
	if !target.IsExit {
		return 0, false
	}
	length := len(targetInstrs)
	if length == 0 || length > MaxLengthForDuplicating {
		return 0, false
	}
	cloneIdx := g.NewBlock(cfg.NoFallthrough)
	g.Blocks[cloneIdx].IsExit = true
	return cloneIdx, true
}
