// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm decodes the bytecode assemble produces back into a linear
// instruction listing, the dual of the emitter's EXTENDED_ARG-prefixed
// encoding (§4.6). It exists as the bit-exact round-trip checker the
// assembler's testable properties (§8) call for.
package disasm

import (
	"errors"
	"fmt"

	"github.com/go-interpreter/flowcfg/isa"
)

// ErrTruncatedInstruction is returned by Disassemble when the bytecode
// ends mid code-unit or mid EXTENDED_ARG chain.
var ErrTruncatedInstruction = errors.New("disasm: truncated instruction")

// UnknownOpcodeError wraps the byte offset of a code unit naming an opcode
// outside the closed instruction set.
type UnknownOpcodeError struct {
	Offset int
	Err    error
}

func (e UnknownOpcodeError) Error() string {
	return fmt.Sprintf("disasm: offset %d: %v", e.Offset, e.Err)
}

func (e UnknownOpcodeError) Unwrap() error { return e.Err }

// Instr is one decoded instruction: its final opcode and operand (with any
// EXTENDED_ARG prefixes already folded in), and the byte offset of its
// first code unit — the offset a decoded lnotab entry addresses.
type Instr struct {
	Offset int
	Op     isa.Opcode
	Oparg  uint32
}

// Disassemble walks bytecode two bytes at a time, accumulating
// EXTENDED_ARG prefixes into the following instruction's operand exactly
// as the emitter split them apart (§4.6).
func Disassemble(bytecode []byte) ([]Instr, error) {
	if len(bytecode)%2 != 0 {
		return nil, ErrTruncatedInstruction
	}

	var instrs []Instr
	var oparg uint32
	start := -1

	for i := 0; i+1 < len(bytecode); i += 2 {
		if start < 0 {
			start = i
		}
		op, err := isa.New(bytecode[i])
		if err != nil {
			return nil, UnknownOpcodeError{Offset: i, Err: err}
		}
		oparg = oparg<<8 | uint32(bytecode[i+1])

		if op == isa.EXTENDED_ARG {
			continue
		}
		instrs = append(instrs, Instr{Offset: start, Op: op, Oparg: oparg})
		oparg, start = 0, -1
	}
	if start >= 0 {
		return nil, ErrTruncatedInstruction
	}
	return instrs, nil
}
