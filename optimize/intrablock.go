// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import (
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// rewriteBlock applies every intra-block pattern from §4.4's table to a
// single block's instruction slice, folding as it scans left to right so
// that a fold's own output (e.g. the LOAD_CONST replacing a folded tuple)
// is itself visible to the next pattern's look-back. It returns the new
// instruction list, whether anything changed, and whether a conditional
// branch at the end of the block was rewritten into an unconditional one
// (the caller must then clear the block's fallthrough and mark it an
// exit).
func rewriteBlock(in []Instruction, consts *cfg.ConstantPool) (out []Instruction, changed bool, becameExit bool, err error) {
	out = make([]Instruction, 0, len(in))

	for _, cur := range in {
		if cur.Op == isa.BUILD_TUPLE {
			n := int(cur.Oparg)
			if n <= len(out) && allLoadConst(out[len(out)-n:]) {
				vals := make(cfg.Tuple, n)
				for i, ld := range out[len(out)-n:] {
					vals[i] = consts.Get(int(ld.Oparg))
				}
				idx, perr := consts.Append(vals)
				if perr != nil {
					return nil, false, false, ErrConstantPoolOverflow
				}
				out = out[:len(out)-n]
				out = append(out, cfg.Instruction{Op: isa.LOAD_CONST, Oparg: idx, Line: cur.Line})
				changed = true
				continue
			}
		}

		if cur.Op == isa.UNPACK_SEQUENCE && len(out) > 0 {
			last := out[len(out)-1]
			if last.Op == isa.BUILD_TUPLE && last.Oparg == cur.Oparg {
				switch cur.Oparg {
				case 0, 1:
					out = out[:len(out)-1]
					changed = true
					continue
				case 2:
					out[len(out)-1] = cfg.Instruction{Op: isa.ROT_TWO, Line: cur.Line}
					changed = true
					continue
				case 3:
					out = out[:len(out)-1]
					out = append(out,
						cfg.Instruction{Op: isa.ROT_THREE, Line: cur.Line},
						cfg.Instruction{Op: isa.ROT_TWO, Line: cur.Line})
					changed = true
					continue
				}
			}
		}

		if cur.Op == isa.POP_TOP && len(out) > 0 {
			last := out[len(out)-1]
			if last.Op == isa.LOAD_CONST || last.Op == isa.DUP_TOP {
				out = out[:len(out)-1]
				changed = true
				continue
			}
			if (last.Op == isa.BUILD_LIST || last.Op == isa.BUILD_TUPLE) && last.Oparg <= 2 {
				k := int(last.Oparg)
				out = out[:len(out)-1]
				for i := 0; i < k; i++ {
					out = append(out, cfg.Instruction{Op: isa.POP_TOP, Line: cur.Line})
				}
				changed = true
				continue
			}
		}

		out = append(out, cur)
	}

	if n := len(out); n >= 2 {
		last := out[n-1]
		prev := out[n-2]
		if last.Op.IsConditionalBranch() && prev.Op == isa.LOAD_CONST {
			val := consts.Get(int(prev.Oparg))
			truthy, terr := Truthy(val)
			if terr != nil {
				return nil, false, false, TruthinessError{Constant: val, Err: terr}
			}
			fires := conditionalFires(last.Op, truthy)
			out = out[:n-2]
			if fires {
				if last.Op == isa.JUMP_IF_TRUE_OR_POP || last.Op == isa.JUMP_IF_FALSE_OR_POP {
					// A firing *_OR_POP leaves the constant on the stack.
					out = append(out, prev)
				}
				out = append(out, cfg.Instruction{
					Op:    isa.JUMP_ABSOLUTE,
					Oparg: last.Oparg,
					Flags: cfg.IsBranch | cfg.IsTerminator,
					Line:  last.Line,
				})
				becameExit = true
			}
			changed = true
		}
	}

	return out, changed, becameExit, nil
}

// conditionalFires reports whether the given conditional-branch opcode,
// with a known-truthy-or-not operand already on the stack, takes its
// branch. POP_JUMP_IF_TRUE/JUMP_IF_TRUE_OR_POP fire on truthy values;
// the _FALSE forms fire on falsy ones.
func conditionalFires(op isa.Opcode, truthy bool) bool {
	switch op {
	case isa.POP_JUMP_IF_TRUE, isa.JUMP_IF_TRUE_OR_POP:
		return truthy
	case isa.POP_JUMP_IF_FALSE, isa.JUMP_IF_FALSE_OR_POP:
		return !truthy
	default:
		return false
	}
}

func allLoadConst(instrs []Instruction) bool {
	for _, i := range instrs {
		if i.Op != isa.LOAD_CONST {
			return false
		}
	}
	return true
}

type Instruction = cfg.Instruction
