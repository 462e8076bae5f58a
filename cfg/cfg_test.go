// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

import (
	"testing"

	"github.com/go-interpreter/flowcfg/isa"
)

func instr(op isa.Opcode, oparg uint32) Instruction {
	i := Instruction{Op: op, Oparg: oparg, Line: 1}
	if op.IsBranch() {
		i.Flags |= IsBranch
	}
	if op.IsTerminator() {
		i.Flags |= IsTerminator
	}
	return i
}

func TestBuildStraightLine(t *testing.T) {
	instrs := []Instruction{
		instr(isa.LOAD_CONST, 0),
		instr(isa.LOAD_CONST, 1),
		instr(isa.BINARY_ADD, 0),
		instr(isa.RETURN_VALUE, 0),
	}
	g, err := Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(g.Blocks))
	}
	b := &g.Blocks[0]
	if b.Start != 0 || b.End != 4 {
		t.Fatalf("block range = [%d,%d), want [0,4)", b.Start, b.End)
	}
	if b.Fallthrough != NoFallthrough || !b.IsExit {
		t.Fatalf("terminated block must have no fallthrough and be an exit")
	}
	if err := g.Sanity(); err != nil {
		t.Fatalf("Sanity: %v", err)
	}
}

func TestBuildSplitsOnBranchAndTarget(t *testing.T) {
	// 0: LOAD_FAST 0
	// 1: POP_JUMP_IF_TRUE -> 4
	// 2: LOAD_CONST 0
	// 3: JUMP_FORWARD -> 5 (encoded as absolute index here)
	// 4: LOAD_CONST 1
	// 5: RETURN_VALUE
	instrs := []Instruction{
		instr(isa.LOAD_FAST, 0),
		instr(isa.POP_JUMP_IF_TRUE, 4),
		instr(isa.LOAD_CONST, 0),
		instr(isa.JUMP_FORWARD, 5),
		instr(isa.LOAD_CONST, 1),
		instr(isa.RETURN_VALUE, 0),
	}
	g, err := Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Leaders: 0, 2, 4, 5 -> four blocks.
	if len(g.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(g.Blocks))
	}
	wantRanges := [][2]int{{0, 2}, {2, 4}, {4, 5}, {5, 6}}
	for i, want := range wantRanges {
		b := g.Blocks[i]
		if b.Start != want[0] || b.End != want[1] {
			t.Errorf("block %d range = [%d,%d), want [%d,%d)", i, b.Start, b.End, want[0], want[1])
		}
	}
	// Block 0 ends in a branch (not a terminator) so it has a fallthrough to block 1.
	if g.Blocks[0].Fallthrough != 1 {
		t.Errorf("block 0 fallthrough = %d, want 1", g.Blocks[0].Fallthrough)
	}
	if g.BranchTarget(&g.Blocks[0]) != 2 {
		t.Errorf("block 0 branch target = %d, want block 2 (index 2)", g.BranchTarget(&g.Blocks[0]))
	}
	// Block 1 ends in JUMP_FORWARD, a terminator, targeting block 3 (instr 5).
	if g.Blocks[1].Fallthrough != NoFallthrough {
		t.Errorf("block 1 must have no fallthrough")
	}
	if g.BranchTarget(&g.Blocks[1]) != 3 {
		t.Errorf("block 1 branch target = %d, want block 3", g.BranchTarget(&g.Blocks[1]))
	}
	if err := g.Sanity(); err != nil {
		t.Fatalf("Sanity: %v", err)
	}
}

func TestBuildRejectsEmptyStream(t *testing.T) {
	if _, err := Build(nil); err != ErrEmptyInstructionStream {
		t.Fatalf("Build(nil) = %v, want ErrEmptyInstructionStream", err)
	}
}

func TestBuildRejectsOutOfRangeBranchTarget(t *testing.T) {
	instrs := []Instruction{
		instr(isa.JUMP_ABSOLUTE, 99),
	}
	if _, err := Build(instrs); err == nil {
		t.Fatalf("expected error for out-of-range branch target")
	}
}

func TestBuildRejectsMissingTerminator(t *testing.T) {
	instrs := []Instruction{
		instr(isa.LOAD_CONST, 0),
		instr(isa.POP_TOP, 0),
	}
	if _, err := Build(instrs); err == nil {
		t.Fatalf("expected error: stream doesn't end in a terminator and has no fallthrough successor")
	}
}

func TestConstantPoolAppend(t *testing.T) {
	p := NewConstantPool([]interface{}{"a", "b"})
	idx, err := p.Append("c")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if idx != 2 {
		t.Fatalf("Append returned index %d, want 2", idx)
	}
	if p.Len() != 3 || p.Get(2) != "c" {
		t.Fatalf("pool state after Append is wrong")
	}
}
