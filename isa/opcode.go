// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa describes the closed instruction set consumed by the
// control-flow graph builder, optimizer and assembler: one opcode per
// constant, a human-readable name, and the two stack-effect queries
// (§4.1 of the design) the rest of the pipeline consults.
package isa

import "fmt"

// Opcode is a single entry from the closed instruction set the core
// understands. Any byte outside [0, numOpcodes) is not a valid Opcode.
type Opcode uint8

const (
	NOP Opcode = iota
	EXTENDED_ARG

	POP_TOP
	ROT_TWO
	ROT_THREE
	ROT_FOUR
	DUP_TOP
	DUP_TOP_TWO

	UNARY_POSITIVE
	UNARY_NEGATIVE
	UNARY_NOT
	UNARY_INVERT

	SET_ADD
	LIST_APPEND
	MAP_ADD

	BINARY_POWER
	BINARY_MULTIPLY
	BINARY_MATRIX_MULTIPLY
	BINARY_MODULO
	BINARY_ADD
	BINARY_SUBTRACT
	BINARY_SUBSCR
	BINARY_FLOOR_DIVIDE
	BINARY_TRUE_DIVIDE
	INPLACE_FLOOR_DIVIDE
	INPLACE_TRUE_DIVIDE
	INPLACE_ADD
	INPLACE_SUBTRACT
	INPLACE_MULTIPLY
	INPLACE_MATRIX_MULTIPLY
	INPLACE_MODULO
	STORE_SUBSCR
	DELETE_SUBSCR
	BINARY_LSHIFT
	BINARY_RSHIFT
	BINARY_AND
	BINARY_XOR
	BINARY_OR
	INPLACE_POWER
	INPLACE_LSHIFT
	INPLACE_RSHIFT
	INPLACE_AND
	INPLACE_XOR
	INPLACE_OR

	GET_ITER
	PRINT_EXPR
	LOAD_BUILD_CLASS

	SETUP_WITH
	RETURN_VALUE
	IMPORT_STAR
	SETUP_ANNOTATIONS
	YIELD_VALUE
	YIELD_FROM
	POP_BLOCK
	POP_EXCEPT

	STORE_NAME
	DELETE_NAME
	UNPACK_SEQUENCE
	UNPACK_EX
	FOR_ITER

	STORE_ATTR
	DELETE_ATTR
	STORE_GLOBAL
	DELETE_GLOBAL
	LOAD_CONST
	LOAD_NAME
	BUILD_TUPLE
	BUILD_LIST
	BUILD_SET
	BUILD_STRING
	BUILD_MAP
	BUILD_CONST_KEY_MAP
	LOAD_ATTR
	COMPARE_OP
	IMPORT_NAME
	IMPORT_FROM

	JUMP_FORWARD
	JUMP_ABSOLUTE
	JUMP_IF_TRUE_OR_POP
	JUMP_IF_FALSE_OR_POP
	POP_JUMP_IF_FALSE
	POP_JUMP_IF_TRUE

	LOAD_GLOBAL

	SETUP_FINALLY
	RERAISE
	WITH_EXCEPT_START

	LOAD_FAST
	STORE_FAST
	DELETE_FAST

	RAISE_VARARGS

	CALL_FUNCTION
	CALL_METHOD
	CALL_FUNCTION_KW
	CALL_FUNCTION_EX
	MAKE_FUNCTION
	BUILD_SLICE

	LOAD_CLOSURE
	LOAD_DEREF
	LOAD_CLASSDEREF
	STORE_DEREF
	DELETE_DEREF

	GET_AWAITABLE
	SETUP_ASYNC_WITH
	BEFORE_ASYNC_WITH
	GET_AITER
	GET_ANEXT
	GET_YIELD_FROM_ITER
	END_ASYNC_FOR
	FORMAT_VALUE
	LOAD_METHOD
	LOAD_ASSERTION_ERROR

	numOpcodes
)

// Bits used in FORMAT_VALUE's oparg, mirroring CPython's FVS_MASK/FVS_HAVE_SPEC.
const (
	FVSMask     = 0x04
	FVSHaveSpec = 0x04
)

var names = [numOpcodes]string{
	NOP: "NOP", EXTENDED_ARG: "EXTENDED_ARG",
	POP_TOP: "POP_TOP", ROT_TWO: "ROT_TWO", ROT_THREE: "ROT_THREE", ROT_FOUR: "ROT_FOUR",
	DUP_TOP: "DUP_TOP", DUP_TOP_TWO: "DUP_TOP_TWO",
	UNARY_POSITIVE: "UNARY_POSITIVE", UNARY_NEGATIVE: "UNARY_NEGATIVE",
	UNARY_NOT: "UNARY_NOT", UNARY_INVERT: "UNARY_INVERT",
	SET_ADD: "SET_ADD", LIST_APPEND: "LIST_APPEND", MAP_ADD: "MAP_ADD",
	BINARY_POWER: "BINARY_POWER", BINARY_MULTIPLY: "BINARY_MULTIPLY",
	BINARY_MATRIX_MULTIPLY: "BINARY_MATRIX_MULTIPLY", BINARY_MODULO: "BINARY_MODULO",
	BINARY_ADD: "BINARY_ADD", BINARY_SUBTRACT: "BINARY_SUBTRACT",
	BINARY_SUBSCR: "BINARY_SUBSCR", BINARY_FLOOR_DIVIDE: "BINARY_FLOOR_DIVIDE",
	BINARY_TRUE_DIVIDE: "BINARY_TRUE_DIVIDE", INPLACE_FLOOR_DIVIDE: "INPLACE_FLOOR_DIVIDE",
	INPLACE_TRUE_DIVIDE: "INPLACE_TRUE_DIVIDE", INPLACE_ADD: "INPLACE_ADD",
	INPLACE_SUBTRACT: "INPLACE_SUBTRACT", INPLACE_MULTIPLY: "INPLACE_MULTIPLY",
	INPLACE_MATRIX_MULTIPLY: "INPLACE_MATRIX_MULTIPLY", INPLACE_MODULO: "INPLACE_MODULO",
	STORE_SUBSCR: "STORE_SUBSCR", DELETE_SUBSCR: "DELETE_SUBSCR",
	BINARY_LSHIFT: "BINARY_LSHIFT", BINARY_RSHIFT: "BINARY_RSHIFT",
	BINARY_AND: "BINARY_AND", BINARY_XOR: "BINARY_XOR", BINARY_OR: "BINARY_OR",
	INPLACE_POWER: "INPLACE_POWER", INPLACE_LSHIFT: "INPLACE_LSHIFT",
	INPLACE_RSHIFT: "INPLACE_RSHIFT", INPLACE_AND: "INPLACE_AND",
	INPLACE_XOR: "INPLACE_XOR", INPLACE_OR: "INPLACE_OR",
	GET_ITER: "GET_ITER", PRINT_EXPR: "PRINT_EXPR", LOAD_BUILD_CLASS: "LOAD_BUILD_CLASS",
	SETUP_WITH: "SETUP_WITH", RETURN_VALUE: "RETURN_VALUE", IMPORT_STAR: "IMPORT_STAR",
	SETUP_ANNOTATIONS: "SETUP_ANNOTATIONS", YIELD_VALUE: "YIELD_VALUE", YIELD_FROM: "YIELD_FROM",
	POP_BLOCK: "POP_BLOCK", POP_EXCEPT: "POP_EXCEPT",
	STORE_NAME: "STORE_NAME", DELETE_NAME: "DELETE_NAME",
	UNPACK_SEQUENCE: "UNPACK_SEQUENCE", UNPACK_EX: "UNPACK_EX", FOR_ITER: "FOR_ITER",
	STORE_ATTR: "STORE_ATTR", DELETE_ATTR: "DELETE_ATTR",
	STORE_GLOBAL: "STORE_GLOBAL", DELETE_GLOBAL: "DELETE_GLOBAL",
	LOAD_CONST: "LOAD_CONST", LOAD_NAME: "LOAD_NAME",
	BUILD_TUPLE: "BUILD_TUPLE", BUILD_LIST: "BUILD_LIST", BUILD_SET: "BUILD_SET",
	BUILD_STRING: "BUILD_STRING", BUILD_MAP: "BUILD_MAP", BUILD_CONST_KEY_MAP: "BUILD_CONST_KEY_MAP",
	LOAD_ATTR: "LOAD_ATTR", COMPARE_OP: "COMPARE_OP",
	IMPORT_NAME: "IMPORT_NAME", IMPORT_FROM: "IMPORT_FROM",
	JUMP_FORWARD: "JUMP_FORWARD", JUMP_ABSOLUTE: "JUMP_ABSOLUTE",
	JUMP_IF_TRUE_OR_POP: "JUMP_IF_TRUE_OR_POP", JUMP_IF_FALSE_OR_POP: "JUMP_IF_FALSE_OR_POP",
	POP_JUMP_IF_FALSE: "POP_JUMP_IF_FALSE", POP_JUMP_IF_TRUE: "POP_JUMP_IF_TRUE",
	LOAD_GLOBAL:   "LOAD_GLOBAL",
	SETUP_FINALLY: "SETUP_FINALLY", RERAISE: "RERAISE", WITH_EXCEPT_START: "WITH_EXCEPT_START",
	LOAD_FAST: "LOAD_FAST", STORE_FAST: "STORE_FAST", DELETE_FAST: "DELETE_FAST",
	RAISE_VARARGS: "RAISE_VARARGS",
	CALL_FUNCTION: "CALL_FUNCTION", CALL_METHOD: "CALL_METHOD",
	CALL_FUNCTION_KW: "CALL_FUNCTION_KW", CALL_FUNCTION_EX: "CALL_FUNCTION_EX",
	MAKE_FUNCTION: "MAKE_FUNCTION", BUILD_SLICE: "BUILD_SLICE",
	LOAD_CLOSURE: "LOAD_CLOSURE", LOAD_DEREF: "LOAD_DEREF", LOAD_CLASSDEREF: "LOAD_CLASSDEREF",
	STORE_DEREF: "STORE_DEREF", DELETE_DEREF: "DELETE_DEREF",
	GET_AWAITABLE: "GET_AWAITABLE", SETUP_ASYNC_WITH: "SETUP_ASYNC_WITH",
	BEFORE_ASYNC_WITH: "BEFORE_ASYNC_WITH", GET_AITER: "GET_AITER", GET_ANEXT: "GET_ANEXT",
	GET_YIELD_FROM_ITER: "GET_YIELD_FROM_ITER", END_ASYNC_FOR: "END_ASYNC_FOR",
	FORMAT_VALUE: "FORMAT_VALUE", LOAD_METHOD: "LOAD_METHOD",
	LOAD_ASSERTION_ERROR: "LOAD_ASSERTION_ERROR",
}

// IsValid reports whether op is a member of the closed opcode set.
func (op Opcode) IsValid() bool {
	return op < numOpcodes && names[op] != ""
}

func (op Opcode) String() string {
	if !op.IsValid() {
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
	return names[op]
}

// New looks up the Opcode for a raw byte, failing for anything outside the
// closed set the pipeline understands.
func New(b byte) (Opcode, error) {
	op := Opcode(b)
	if !op.IsValid() {
		return 0, ErrUnknownOpcode(b)
	}
	return op, nil
}

var byName map[string]Opcode

func init() {
	byName = make(map[string]Opcode, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		if names[op] != "" {
			byName[names[op]] = op
		}
	}
}

// ParseName looks up the Opcode whose mnemonic is name, for front ends and
// tools that read a textual instruction listing rather than raw bytes.
func ParseName(name string) (Opcode, error) {
	op, ok := byName[name]
	if !ok {
		return 0, ErrUnknownOpcodeName(name)
	}
	return op, nil
}

// ErrUnknownOpcodeName is returned by ParseName when name does not match
// any mnemonic in the closed instruction set.
type ErrUnknownOpcodeName string

func (e ErrUnknownOpcodeName) Error() string {
	return fmt.Sprintf("isa: unknown opcode mnemonic %q", string(e))
}

// ErrUnknownOpcode is returned by New when the byte does not name a member
// of the closed instruction set (§4.1: "a fatal precondition violation").
type ErrUnknownOpcode byte

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("isa: opcode %d is outside the closed instruction set", byte(e))
}

// IsBranch reports whether op unconditionally or conditionally transfers
// control to the instruction index held in its oparg.
func (op Opcode) IsBranch() bool {
	switch op {
	case JUMP_FORWARD, JUMP_ABSOLUTE,
		JUMP_IF_TRUE_OR_POP, JUMP_IF_FALSE_OR_POP,
		POP_JUMP_IF_FALSE, POP_JUMP_IF_TRUE,
		FOR_ITER, SETUP_FINALLY, SETUP_WITH, SETUP_ASYNC_WITH:
		return true
	default:
		return false
	}
}

// IsTerminator reports whether op unconditionally leaves the block, i.e.
// control never falls through to the next instruction. Not mutually
// exclusive with IsBranch: JUMP_FORWARD/JUMP_ABSOLUTE are both.
func (op Opcode) IsTerminator() bool {
	switch op {
	case JUMP_FORWARD, JUMP_ABSOLUTE, RETURN_VALUE, RERAISE, RAISE_VARARGS:
		return true
	default:
		return false
	}
}

// IsConditionalBranch reports whether op is one of the four conditional
// branch forms the optimizer folds against known-truthiness constants
// (§4.4).
func (op Opcode) IsConditionalBranch() bool {
	switch op {
	case JUMP_IF_TRUE_OR_POP, JUMP_IF_FALSE_OR_POP, POP_JUMP_IF_FALSE, POP_JUMP_IF_TRUE:
		return true
	default:
		return false
	}
}

// IsRelativeBranch reports whether op's final oparg is computed relative to
// the end of the branch instruction, rather than as an absolute code-unit
// offset (§4.5).
func (op Opcode) IsRelativeBranch() bool {
	switch op {
	case JUMP_FORWARD, SETUP_FINALLY, SETUP_WITH, SETUP_ASYNC_WITH, FOR_ITER:
		return true
	default:
		return false
	}
}
