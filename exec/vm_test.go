// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exec

import (
	"reflect"
	"testing"

	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
	"github.com/go-interpreter/flowcfg/optimize"
)

func instr(op isa.Opcode, oparg uint32) cfg.Instruction {
	i := cfg.Instruction{Op: op, Oparg: oparg, Line: 1}
	if op.IsBranch() {
		i.Flags |= cfg.IsBranch
	}
	if op.IsTerminator() {
		i.Flags |= cfg.IsTerminator
	}
	return i
}

func TestRunStraightLine(t *testing.T) {
	instrs := []cfg.Instruction{
		instr(isa.LOAD_CONST, 0),
		instr(isa.LOAD_CONST, 1),
		instr(isa.BINARY_ADD, 0),
		instr(isa.RETURN_VALUE, 0),
	}
	g, err := cfg.Build(instrs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	consts := cfg.NewConstantPool([]interface{}{1, 2})
	_, result, err := Run(g, consts, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != 3 {
		t.Fatalf("result = %v, want 3", result)
	}
}

// finalStack extracts the operand stack recorded just before RETURN_VALUE,
// which is the only part of a trace semantic preservation promises holds
// steady across a rewrite that changes instruction counts and offsets.
func finalStack(trace []Step) []interface{} {
	for _, s := range trace {
		if s.Op == isa.RETURN_VALUE {
			return s.Stack
		}
	}
	return nil
}

// TestSemanticPreservation runs each of the optimizer's documented rewrite
// scenarios (§8) before and after optimize.Run and checks the returned
// value and final operand stack are unchanged, the executable counterpart
// to the optimizer's own structural assertions in optimize_test.go.
func TestSemanticPreservation(t *testing.T) {
	cases := []struct {
		name   string
		instrs []cfg.Instruction
		consts []interface{}
	}{
		{
			name: "tuple folding",
			instrs: []cfg.Instruction{
				instr(isa.LOAD_CONST, 0),
				instr(isa.LOAD_CONST, 1),
				instr(isa.LOAD_CONST, 2),
				instr(isa.BUILD_TUPLE, 3),
				instr(isa.RETURN_VALUE, 0),
			},
			consts: []interface{}{1, 2, 3},
		},
		{
			name: "conditional fold",
			instrs: []cfg.Instruction{
				instr(isa.LOAD_CONST, 0),
				instr(isa.POP_JUMP_IF_FALSE, 4),
				instr(isa.LOAD_CONST, 1),
				instr(isa.JUMP_FORWARD, 5),
				instr(isa.LOAD_CONST, 2),
				instr(isa.RETURN_VALUE, 0),
			},
			consts: []interface{}{false, "A", "B"},
		},
		{
			name: "jump threading",
			instrs: []cfg.Instruction{
				instr(isa.LOAD_CONST, 0),
				instr(isa.JUMP_ABSOLUTE, 2),
				instr(isa.JUMP_ABSOLUTE, 3),
				instr(isa.RETURN_VALUE, 0),
			},
			consts: []interface{}{99},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := cfg.Build(tc.instrs)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			beforeConsts := cfg.NewConstantPool(append([]interface{}(nil), tc.consts...))
			beforeTrace, wantResult, err := Run(before, beforeConsts, nil)
			if err != nil {
				t.Fatalf("Run before optimization: %v", err)
			}

			after, err := cfg.Build(tc.instrs)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			afterConsts := cfg.NewConstantPool(append([]interface{}(nil), tc.consts...))
			if _, err := optimize.Run(after, afterConsts); err != nil {
				t.Fatalf("optimize.Run: %v", err)
			}
			trace, gotResult, err := Run(after, afterConsts, nil)
			if err != nil {
				t.Fatalf("Run after optimization: %v", err)
			}

			if !reflect.DeepEqual(wantResult, gotResult) {
				t.Fatalf("result changed by optimization: before=%#v after=%#v", wantResult, gotResult)
			}
			if wantStack, gotStack := finalStack(beforeTrace), finalStack(trace); !reflect.DeepEqual(wantStack, gotStack) {
				t.Fatalf("final operand stack changed by optimization: before=%#v after=%#v", wantStack, gotStack)
			}
		})
	}
}
