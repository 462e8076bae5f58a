// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// codeUnitSize is the width in bytes of one (opcode, arg) code unit (§6).
const codeUnitSize = 2

// instrsize returns the number of code units — one EXTENDED_ARG-prefixed
// unit per additional 8 bits, plus the instruction itself — needed to
// encode oparg.
func instrsize(oparg uint32) int {
	switch {
	case oparg <= 0xFF:
		return 1
	case oparg <= 0xFFFF:
		return 2
	case oparg <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// branchOperand computes the final operand a branch instruction carries
// and the opcode it is ultimately emitted as, given the byte offset one
// past the branch instruction itself (endOfBranch) and its target block's
// byte offset. A forward JUMP_ABSOLUTE is re-expressed as JUMP_FORWARD
// because the relative encoding is typically smaller (§4.5, §4.6); using
// the same rule during sizing and at emission keeps the two in lockstep,
// so the branch-size fixed point property holds across the rewrite.
func branchOperand(op isa.Opcode, endOfBranch, targetOffset int) (uint32, isa.Opcode) {
	if op == isa.JUMP_ABSOLUTE && targetOffset > endOfBranch {
		return uint32(targetOffset - endOfBranch), isa.JUMP_FORWARD
	}
	if op.IsRelativeBranch() {
		return uint32(targetOffset - endOfBranch), op
	}
	return uint32(targetOffset), op
}

// solveSizes runs the iterative branch-offset solver (§4.5 steps 2-3):
// every branch starts pessimistically sized at 4 code units, then each
// pass recomputes block byte offsets from the current sizes and shrinks
// any branch whose true required size is smaller. Sizes only ever shrink,
// so the loop is guaranteed to terminate; the pass bound of
// len(g.Instructions)+16 is a backstop against a producer bug that would
// otherwise loop forever.
func solveSizes(g *cfg.ControlFlowGraph, order []int) error {
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		for ii := b.Start; ii < b.End; ii++ {
			instr := &g.Instructions[ii]
			if instr.Has(cfg.IsBranch) {
				instr.Size = 4
			} else {
				instr.Size = uint8(instrsize(instr.Oparg))
			}
		}
	}

	bound := len(g.Instructions) + 16
	for iter := 0; iter < bound; iter++ {
		computeOffsets(g, order)

		changed := false
		for _, bi := range order {
			b := &g.Blocks[bi]
			if b.Empty() || !g.Instructions[b.End-1].Has(cfg.IsBranch) {
				continue
			}
			idx := b.End - 1
			instr := &g.Instructions[idx]
			endOfBranch := b.ByteOffset + b.ByteSize
			targetOffset := g.Blocks[instr.Oparg].ByteOffset

			oparg, _ := branchOperand(instr.Op, endOfBranch, targetOffset)
			newSize := instrsize(oparg)
			if newSize < int(instr.Size) {
				instr.Size = uint8(newSize)
				changed = true
			}
		}

		if !changed {
			logger.Printf("branch sizes converged after %d iterations", iter+1)
			return nil
		}
	}
	return sizingDidNotConverge{iterations: bound}
}

// computeOffsets assigns every block's ByteOffset/ByteSize by prefix sum
// over the current per-instruction sizes, in emission order.
func computeOffsets(g *cfg.ControlFlowGraph, order []int) {
	offset := 0
	for _, bi := range order {
		b := &g.Blocks[bi]
		b.ByteOffset = offset
		size := 0
		for ii := b.Start; ii < b.End; ii++ {
			size += int(g.Instructions[ii].Size) * codeUnitSize
		}
		b.ByteSize = size
		offset += size
	}
}
