// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

import "github.com/go-interpreter/flowcfg/isa"

// Analyze runs the combined reachability and stack-depth worklist pass
// (§4.3): block 0 is seeded reachable with entry depth zero, and the
// 'grey' worklist bit is set on any block whose entry depth was just
// assigned. The pass is a fixed point because an entry depth, once set,
// is only ever asserted equal on a later join, never changed — so
// repeated full rescans (needed to pick up backward edges) always
// terminate.
//
// Analyze also re-validates, for every reachable instruction, that the
// depth on entry is at least the opcode's minimum required input depth
// (ported from the same check validate/vm.go makes per-operand, here
// expressed as a single integer rather than a typed value stack since
// this pipeline is untyped). It returns the maximum depth observed
// across all reachable instructions.
func (g *ControlFlowGraph) Analyze() (maxDepth int, err error) {
	for i := range g.Blocks {
		g.Blocks[i].Grey = false
		g.Blocks[i].IsReachable = false
		g.Blocks[i].EntryStackDepth = UnsetDepth
	}
	g.Blocks[0].IsReachable = true
	g.Blocks[0].Grey = true
	g.Blocks[0].EntryStackDepth = 0

	for {
		progressed := false
		for bi := range g.Blocks {
			b := &g.Blocks[bi]
			if !b.Grey {
				continue
			}
			b.Grey = false
			progressed = true

			depth := b.EntryStackDepth
			if depth == UnsetDepth {
				return 0, InvariantError{Reason: "grey block has unset entry stack depth", Block: bi}
			}

			for ii := b.Start; ii < b.End; ii++ {
				if depth > maxDepth {
					maxDepth = depth
				}
				instr := g.Instructions[ii]
				need := isa.StackInput(instr.Op, instr.Oparg)
				if depth < need {
					return 0, StackUnderflowError{Block: bi, Offset: ii, HaveDepth: depth, NeedsDepth: need}
				}

				if instr.Has(IsBranch) {
					delta := isa.StackEffect(instr.Op, instr.Oparg, true)
					targetIdx := int(instr.Oparg)
					if targetIdx < 0 || targetIdx >= len(g.Blocks) {
						return 0, InvariantError{Reason: "branch targets out-of-range block", Block: bi, Offset: ii}
					}
					target := &g.Blocks[targetIdx]
					targetDepth := depth + delta
					switch target.EntryStackDepth {
					case UnsetDepth:
						target.EntryStackDepth = targetDepth
						target.IsReachable = true
						target.Grey = true
					default:
						if target.EntryStackDepth != targetDepth {
							return 0, InvariantError{
								Reason: "stack depth inconsistent on join",
								Block:  targetIdx,
							}
						}
					}
				}

				depth += isa.StackEffect(instr.Op, instr.Oparg, false)
				if depth < 0 {
					return 0, InvariantError{Reason: "stack depth went negative", Block: bi, Offset: ii}
				}
			}

			if b.Fallthrough >= 0 {
				ft := &g.Blocks[b.Fallthrough]
				switch ft.EntryStackDepth {
				case UnsetDepth:
					ft.EntryStackDepth = depth
					ft.IsReachable = true
					ft.Grey = true
				default:
					if ft.EntryStackDepth != depth {
						return 0, InvariantError{
							Reason: "stack depth inconsistent on fallthrough join",
							Block:  b.Fallthrough,
						}
					}
				}
			}
		}
		if !progressed {
			break
		}
	}

	logger.Printf("max stack depth = %d", maxDepth)
	return maxDepth, nil
}

// MarkReachable is a cheaper pass used by the optimizer between rewrite
// iterations, when stack-depth bookkeeping would just be thrown away by
// the next Analyze call anyway. It mirrors _PyCfg_MarkReachable: only
// IsReachable/Grey are touched, no stack-depth verification happens.
func (g *ControlFlowGraph) MarkReachable() {
	for i := range g.Blocks {
		g.Blocks[i].Grey = false
		g.Blocks[i].IsReachable = false
	}
	g.Blocks[0].IsReachable = true
	g.Blocks[0].Grey = true

	for {
		progressed := false
		for bi := range g.Blocks {
			b := &g.Blocks[bi]
			if !b.Grey {
				continue
			}
			b.Grey = false
			progressed = true

			if b.Fallthrough >= 0 {
				ft := &g.Blocks[b.Fallthrough]
				if !ft.IsReachable {
					ft.IsReachable = true
					ft.Grey = true
				}
			}
			if g.IsBranchBlock(b) {
				target := &g.Blocks[g.BranchTarget(b)]
				if !target.IsReachable {
					target.IsReachable = true
					target.Grey = true
				}
			}
		}
		if !progressed {
			break
		}
	}
}
