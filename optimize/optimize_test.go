// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import (
	"errors"
	"testing"

	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

var errBadTruthiness = errors.New("bad truthiness")

func mk(op isa.Opcode, oparg uint32) cfg.Instruction {
	i := cfg.Instruction{Op: op, Oparg: oparg, Line: 1}
	if op.IsBranch() {
		i.Flags |= cfg.IsBranch
	}
	if op.IsTerminator() {
		i.Flags |= cfg.IsTerminator
	}
	return i
}

func buildAndOptimize(t *testing.T, instrs []cfg.Instruction, consts *cfg.ConstantPool) *cfg.ControlFlowGraph {
	t.Helper()
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Run(g, consts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return g
}

// Scenario 1: tuple folding.
func TestTupleFolding(t *testing.T) {
	instrs := []cfg.Instruction{
		mk(isa.LOAD_CONST, 0),
		mk(isa.LOAD_CONST, 1),
		mk(isa.LOAD_CONST, 2),
		mk(isa.BUILD_TUPLE, 3),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool([]interface{}{1, 2, 3})
	g := buildAndOptimize(t, instrs, consts)

	if len(g.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2 (LOAD_CONST; RETURN_VALUE); dump: %+v", len(g.Instructions), g.Instructions)
	}
	if g.Instructions[0].Op != isa.LOAD_CONST {
		t.Fatalf("first instruction = %s, want LOAD_CONST", g.Instructions[0].Op)
	}
	got := consts.Get(int(g.Instructions[0].Oparg))
	tup, ok := got.(cfg.Tuple)
	if !ok || len(tup) != 3 || tup[0] != 1 || tup[1] != 2 || tup[2] != 3 {
		t.Fatalf("folded constant = %#v, want Tuple{1,2,3}", got)
	}
}

// Scenario 2: conditional fold on a known-falsy constant leaves only the
// not-taken arm reachable.
func TestConditionalFold(t *testing.T) {
	// 0: LOAD_CONST 0 (false)
	// 1: POP_JUMP_IF_FALSE -> 4  (L)
	// 2: LOAD_CONST 1            (...A...)
	// 3: JUMP_FORWARD -> 5       (END)
	// 4: LOAD_CONST 2            (L: ...B..., falls through)
	// 5: RETURN_VALUE            (END)
	instrs := []cfg.Instruction{
		mk(isa.LOAD_CONST, 0),
		mk(isa.POP_JUMP_IF_FALSE, 4),
		mk(isa.LOAD_CONST, 1),
		mk(isa.JUMP_FORWARD, 5),
		mk(isa.LOAD_CONST, 2),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool([]interface{}{false, "A", "B"})
	g := buildAndOptimize(t, instrs, consts)

	if err := g.Sanity(); err != nil {
		t.Fatalf("Sanity: %v", err)
	}
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if !b.IsReachable {
			continue
		}
		for ii := b.Start; ii < b.End; ii++ {
			if g.Instructions[ii].Op == isa.LOAD_CONST && consts.Get(int(g.Instructions[ii].Oparg)) == "A" {
				t.Fatalf("arm A is still reachable after folding a known-false condition")
			}
		}
	}
	foundB := false
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if !b.IsReachable {
			continue
		}
		for ii := b.Start; ii < b.End; ii++ {
			if g.Instructions[ii].Op == isa.LOAD_CONST && consts.Get(int(g.Instructions[ii].Oparg)) == "B" {
				foundB = true
			}
		}
	}
	if !foundB {
		t.Fatalf("arm B should remain reachable")
	}
}

// Scenario 3: jump threading.
func TestJumpThreading(t *testing.T) {
	// 0: JUMP_ABSOLUTE -> 1   (X: jumps to Y)
	// 1: JUMP_ABSOLUTE -> 3   (Y: jumps to Z)
	// 2: NOP                  (W: unreachable, falls through into Z)
	// 3-9: NOP x6, RETURN_VALUE (Z)
	//
	// W gives Z a fallthrough predecessor, so fallthrough promotion keeps
	// X's jump, and Z is longer than MaxLengthForDuplicating, so tail
	// duplication doesn't replace the jump with a clone of Z.
	instrs := []cfg.Instruction{
		mk(isa.JUMP_ABSOLUTE, 1),
		mk(isa.JUMP_ABSOLUTE, 3),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.NOP, 0),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool(nil)
	g := buildAndOptimize(t, instrs, consts)

	x := &g.Blocks[0]
	if g.BranchTarget(x) != 3 {
		t.Fatalf("X's jump target = block %d, want block 3 (Z)", g.BranchTarget(x))
	}
	if g.Blocks[1].IsReachable {
		t.Fatalf("Y should be unreachable after threading")
	}
}

// Scenario 4: tail duplication.
func TestTailDuplication(t *testing.T) {
	// 0: LOAD_FAST 0          (X's own code)
	// 1: JUMP_ABSOLUTE -> 3   (X ends: jump to E)
	// 2: LOAD_FAST 0          (E's other predecessor, falls through into E)
	// 3: LOAD_CONST 0         (E: exit block)
	// 4: BINARY_ADD
	// 5: RETURN_VALUE
	instrs := []cfg.Instruction{
		mk(isa.LOAD_FAST, 0),
		mk(isa.JUMP_ABSOLUTE, 3),
		mk(isa.LOAD_FAST, 0),
		mk(isa.LOAD_CONST, 0),
		mk(isa.BINARY_ADD, 0),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool([]interface{}{42})
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	blocksBefore := len(g.Blocks)
	if _, err := Run(g, consts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := g.Sanity(); err != nil {
		t.Fatalf("Sanity: %v", err)
	}
	if len(g.Blocks) <= blocksBefore {
		t.Fatalf("expected a cloned block to be appended, got %d blocks (started with %d)", len(g.Blocks), blocksBefore)
	}
	// X (block 0) must now fall through rather than end in a branch.
	x := &g.Blocks[0]
	if g.IsBranchBlock(x) {
		t.Fatalf("X should no longer end in a branch after tail duplication")
	}
	if x.Fallthrough == cfg.NoFallthrough {
		t.Fatalf("X should fall through into the cloned block")
	}
}

func TestOptimizerIdempotence(t *testing.T) {
	instrs := []cfg.Instruction{
		mk(isa.LOAD_CONST, 0),
		mk(isa.LOAD_CONST, 1),
		mk(isa.BUILD_TUPLE, 2),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool([]interface{}{1, 2})
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Run(g, consts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	changed, err := Run(g, consts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if changed {
		t.Fatalf("second Run on already-optimized output reported a change")
	}
}

func TestTruthinessFailurePropagates(t *testing.T) {
	type badValue struct{}
	old := Truthy
	defer func() { Truthy = old }()
	Truthy = func(v interface{}) (bool, error) {
		if _, ok := v.(badValue); ok {
			return false, errBadTruthiness
		}
		return DefaultTruthy(v)
	}

	instrs := []cfg.Instruction{
		mk(isa.LOAD_CONST, 0),
		mk(isa.POP_JUMP_IF_FALSE, 2),
		mk(isa.RETURN_VALUE, 0),
		mk(isa.RETURN_VALUE, 0),
	}
	consts := cfg.NewConstantPool([]interface{}{badValue{}})
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Run(g, consts); err == nil {
		t.Fatalf("expected TruthinessError to propagate")
	} else if _, ok := err.(TruthinessError); !ok {
		t.Fatalf("got %T, want TruthinessError", err)
	}
}
