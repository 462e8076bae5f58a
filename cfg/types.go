// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cfg builds, validates and analyzes the control-flow graph that
// sits between a flat instruction stream and the assembler: basic-block
// partitioning, branch-target resolution, reachability, and operand-stack
// depth.
package cfg

import (
	"math"

	"github.com/go-interpreter/flowcfg/isa"
)

// Flag is a bitfield of per-instruction properties. IsBranch and
// IsTerminator are not mutually exclusive: an unconditional jump is both.
type Flag uint8

const (
	IsBranch Flag = 1 << iota
	IsTerminator
	EndOfJumpList
)

// Instruction is a single opcode, its operand, flags, and originating
// source line. Size is assembler scratch space: the number of code units
// (EXTENDED_ARG prefixes plus the instruction itself) this instruction
// will occupy once the branch-offset solver has run.
type Instruction struct {
	Op    isa.Opcode
	Oparg uint32
	Flags Flag
	Line  int32 // -1 for synthetic instructions with no source line

	Size uint8
}

func (i Instruction) Has(f Flag) bool { return i.Flags&f != 0 }

// UnsetDepth marks a BasicBlock whose entry stack depth has not yet been
// computed by the reachability/stack-depth pass.
const UnsetDepth = math.MinInt32

// NoFallthrough is the sentinel value of BasicBlock.Fallthrough for a block
// with no fallthrough successor (its last instruction is a terminator).
const NoFallthrough = -1

// BasicBlock is a half-open [Start, End) range of instruction indices.
// Cross-references to other blocks (Fallthrough, and branch opargs once
// the CFG builder has run) are block indices, never pointers, so the
// optimizer can grow the block slice (tail duplication) without
// invalidating any reference.
type BasicBlock struct {
	Start, End  int
	Fallthrough int // NoFallthrough if none

	IsReachable bool
	IsExit      bool
	Grey        bool // single-bit worklist marker, reused by several passes

	EntryStackDepth int // UnsetDepth until computed

	ByteOffset, ByteSize int // assembler scratch
}

// Empty reports whether the block contains no instructions. An empty block
// must have a fallthrough; it cannot be an exit.
func (b BasicBlock) Empty() bool { return b.Start == b.End }

// ControlFlowGraph owns the instruction and block arrays for one function's
// worth of bytecode. It is constructed once by Build, mutated in place by
// the optimizer, and finally consumed by the assembler.
type ControlFlowGraph struct {
	Instructions []Instruction
	Blocks       []BasicBlock
}

// Block-ending helpers used throughout the pipeline.

// LastInstruction returns the index of block b's final instruction, or -1
// if b is empty.
func (g *ControlFlowGraph) LastInstruction(b *BasicBlock) int {
	if b.Empty() {
		return -1
	}
	return b.End - 1
}

// IsBranchBlock reports whether block b ends in a branch instruction.
func (g *ControlFlowGraph) IsBranchBlock(b *BasicBlock) bool {
	i := g.LastInstruction(b)
	return i >= 0 && g.Instructions[i].Has(IsBranch)
}

// BranchTarget returns the block index a branching block's trailing
// instruction targets. Only valid after branch opargs have been rewritten
// from instruction indices to block indices (i.e. after Build).
func (g *ControlFlowGraph) BranchTarget(b *BasicBlock) int {
	return int(g.Instructions[g.LastInstruction(b)].Oparg)
}

// Tuple is the constant-pool representation of a tuple folded from a run of
// LOAD_CONST instructions feeding a BUILD_TUPLE (§4.4).
type Tuple []interface{}

// ConstantPool is the ordered, append-only list of runtime values shared
// with the caller. The pipeline never mutates or removes existing entries;
// it only appends (e.g. folding BUILD_TUPLE over a run of LOAD_CONSTs).
type ConstantPool struct {
	values []interface{}
}

// NewConstantPool wraps an existing ordered value list. Ownership of the
// backing slice remains with the caller, who must not concurrently mutate
// it while the pipeline runs.
func NewConstantPool(values []interface{}) *ConstantPool {
	return &ConstantPool{values: values}
}

func (p *ConstantPool) Len() int              { return len(p.values) }
func (p *ConstantPool) Get(i int) interface{} { return p.values[i] }

// Append adds a new constant and returns its index. It fails with
// ErrConstantPoolOverflow rather than silently wrapping once the index
// would exceed what a uint32 oparg can address (§7, §9 open question:
// the spec picks a hard error over a soft skip).
func (p *ConstantPool) Append(v interface{}) (uint32, error) {
	if uint64(len(p.values)) >= math.MaxUint32 {
		return 0, ErrConstantPoolOverflow
	}
	p.values = append(p.values, v)
	return uint32(len(p.values) - 1), nil
}
