// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"testing"

	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

func instr(op isa.Opcode, oparg uint32, line int32) cfg.Instruction {
	i := cfg.Instruction{Op: op, Oparg: oparg, Line: line}
	if op.IsBranch() {
		i.Flags |= cfg.IsBranch
	}
	if op.IsTerminator() {
		i.Flags |= cfg.IsTerminator
	}
	return i
}

func TestAssembleStraightLine(t *testing.T) {
	instrs := []cfg.Instruction{
		instr(isa.LOAD_CONST, 0, 1),
		instr(isa.LOAD_CONST, 1, 1),
		instr(isa.BINARY_ADD, 0, 1),
		instr(isa.RETURN_VALUE, 0, 2),
	}
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := Assemble(g, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(out.Bytecode) != 8 {
		t.Fatalf("bytecode length = %d, want 8 (4 code units)", len(out.Bytecode))
	}
	if out.MaxStackDepth != 2 {
		t.Fatalf("MaxStackDepth = %d, want 2", out.MaxStackDepth)
	}
	want := []byte{
		byte(isa.LOAD_CONST), 0,
		byte(isa.LOAD_CONST), 1,
		byte(isa.BINARY_ADD), 0,
		byte(isa.RETURN_VALUE), 0,
	}
	for i := range want {
		if out.Bytecode[i] != want[i] {
			t.Fatalf("bytecode[%d] = %d, want %d (full: %v)", i, out.Bytecode[i], want[i], out.Bytecode)
		}
	}
}

func TestLnotabRoundTrip(t *testing.T) {
	instrs := []cfg.Instruction{
		instr(isa.LOAD_CONST, 0, 1),
		instr(isa.LOAD_CONST, 1, 3),
		instr(isa.BINARY_ADD, 0, 3),
		instr(isa.RETURN_VALUE, 0, 7),
	}
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := Assemble(g, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	lines := DecodeLnotab(out.Lnotab, 1)
	cases := []struct {
		offset int
		want   int32
	}{
		{0, 1}, // LOAD_CONST 0
		{2, 3}, // LOAD_CONST 1
		{4, 3}, // BINARY_ADD
		{6, 7}, // RETURN_VALUE
	}
	for _, c := range cases {
		if got := LineAt(lines, c.offset); got != c.want {
			t.Fatalf("line at offset %d = %d, want %d", c.offset, got, c.want)
		}
	}
}

func TestLnotabLargeSpanSplitting(t *testing.T) {
	// A byte_delta of 400 must split into a (255,0) continuation and a
	// trailing (145, delta) pair; a line_delta of 200 must split across a
	// ±127 boundary. The leading LOAD_CONST supplies the value the final
	// RETURN_VALUE pops.
	instrs := []cfg.Instruction{
		instr(isa.LOAD_CONST, 0, 1),
	}
	for i := 0; i < 199; i++ {
		instrs = append(instrs, instr(isa.NOP, 0, 1))
	}
	instrs = append(instrs, instr(isa.RETURN_VALUE, 0, 201))

	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := Assemble(g, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	lines := DecodeLnotab(out.Lnotab, 1)
	lastOffset := (len(instrs) - 1) * 2
	if got := LineAt(lines, lastOffset); got != 201 {
		t.Fatalf("line at final instruction = %d, want 201", got)
	}
	if len(out.Lnotab)%2 != 0 {
		t.Fatalf("lnotab has odd length %d", len(out.Lnotab))
	}
}

func TestExtendedArgSizing(t *testing.T) {
	// A forward JUMP_ABSOLUTE targeting the last of 300 instructions must
	// end up re-emitted as a relative JUMP_FORWARD needing exactly one
	// EXTENDED_ARG prefix (§8 scenario 5). The leading LOAD_CONST supplies
	// the value the final RETURN_VALUE pops.
	const n = 300
	instrs := make([]cfg.Instruction, n)
	instrs[0] = instr(isa.LOAD_CONST, 0, 1)
	instrs[1] = instr(isa.JUMP_ABSOLUTE, uint32(n-1), 1)
	for i := 2; i < n-1; i++ {
		instrs[i] = instr(isa.NOP, 0, -1)
	}
	instrs[n-1] = instr(isa.RETURN_VALUE, 0, 99)

	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := Assemble(g, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Find the re-emitted jump: a run of EXTENDED_ARG units followed by
	// JUMP_FORWARD, right after the leading LOAD_CONST's code unit.
	prefixes := 0
	i := 2
	for out.Bytecode[i] == byte(isa.EXTENDED_ARG) {
		prefixes++
		i += 2
	}
	if out.Bytecode[i] != byte(isa.JUMP_FORWARD) {
		t.Fatalf("opcode at offset %d = %d, want JUMP_FORWARD (bytecode head: %v)", i, out.Bytecode[i], out.Bytecode[:10])
	}
	if prefixes != 1 {
		t.Fatalf("got %d EXTENDED_ARG prefixes, want exactly 1", prefixes)
	}

	lines := DecodeLnotab(out.Lnotab, 1)
	lastOffset := len(out.Bytecode) - 2
	if got := LineAt(lines, lastOffset); got != 99 {
		t.Fatalf("line at final RETURN_VALUE = %d, want 99", got)
	}
}

func TestEmptyBlockSkippedInEmissionOrder(t *testing.T) {
	// A zero-length block spliced onto a fallthrough chain must not
	// perturb byte offsets: it contributes nothing to the layout, so the
	// blocks around it assemble exactly as if it weren't there (§8
	// scenario 6). Two constants are loaded so one is left for either
	// RETURN_VALUE once POP_JUMP_IF_FALSE has popped the other.
	instrs := []cfg.Instruction{
		instr(isa.LOAD_CONST, 0, 1),
		instr(isa.LOAD_CONST, 0, 1),
		instr(isa.POP_JUMP_IF_FALSE, 3, 1),
		instr(isa.RETURN_VALUE, 0, 2),
		instr(isa.RETURN_VALUE, 0, 3),
	}
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	empty := g.NewBlock(g.Blocks[0].Fallthrough)
	g.Blocks[0].Fallthrough = empty
	g.Rebuild([][]cfg.Instruction{
		g.Instructions[g.Blocks[0].Start:g.Blocks[0].End],
		g.Instructions[g.Blocks[1].Start:g.Blocks[1].End],
		g.Instructions[g.Blocks[2].Start:g.Blocks[2].End],
		nil,
	})
	if err := g.Sanity(); err != nil {
		t.Fatalf("Sanity after splicing empty block: %v", err)
	}

	out, err := Assemble(g, 1)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(out.Bytecode) != len(instrs)*2 {
		t.Fatalf("bytecode length = %d, want %d", len(out.Bytecode), len(instrs)*2)
	}
}

func TestAssembleRejectsEmptyGraph(t *testing.T) {
	g := &cfg.ControlFlowGraph{}
	if _, err := Assemble(g, 1); err != ErrEmptyCFG {
		t.Fatalf("got %v, want ErrEmptyCFG", err)
	}
}
