// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import (
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// fallthroughPromotion is the final pass run once before assembly (§4.4):
// a block that ends in an unconditional jump to a target with no existing
// fallthrough predecessor has its jump dropped and the target becomes its
// fallthrough instead, enlarging the fallthrough run the target belongs
// to. This never fires on a target that would close a cycle back to the
// promoting block, which would strand the run with no exit.
func fallthroughPromotion(g *cfg.ControlFlowGraph) bool {
	hasFallthroughPred := make([]bool, len(g.Blocks))
	for bi := range g.Blocks {
		if ft := g.Blocks[bi].Fallthrough; ft != cfg.NoFallthrough {
			hasFallthroughPred[ft] = true
		}
	}

	perBlock := make([][]cfg.Instruction, len(g.Blocks))
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		perBlock[bi] = append([]cfg.Instruction(nil), g.Instructions[b.Start:b.End]...)
	}

	changed := false
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if !b.IsReachable || b.Fallthrough != cfg.NoFallthrough {
			continue
		}
		instrs := perBlock[bi]
		if len(instrs) == 0 {
			continue
		}
		last := instrs[len(instrs)-1]
		if last.Op != isa.JUMP_ABSOLUTE && last.Op != isa.JUMP_FORWARD {
			continue
		}
		targetIdx := int(last.Oparg)
		if hasFallthroughPred[targetIdx] || chainReaches(g, targetIdx, bi) {
			continue
		}

		perBlock[bi] = instrs[:len(instrs)-1]
		b.Fallthrough = targetIdx
		b.IsExit = false
		hasFallthroughPred[targetIdx] = true
		changed = true
	}

	g.Rebuild(perBlock)
	return changed
}

// chainReaches walks the fallthrough chain starting at from and reports
// whether it reaches target before running out (exit block) or looping.
func chainReaches(g *cfg.ControlFlowGraph, from, target int) bool {
	visited := make(map[int]bool)
	for from != cfg.NoFallthrough && !visited[from] {
		if from == target {
			return true
		}
		visited[from] = true
		from = g.Blocks[from].Fallthrough
	}
	return false
}
