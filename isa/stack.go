// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package isa

import "math"

// InvalidStackEffect is returned by StackInput/StackEffect for an opcode
// outside the closed set. Opcodes decoded through isa.New or ParseName are
// always in the set; cfg.Build itself does not check opcodes, so an
// instruction built by hand with an unknown opcode does reach these.
const InvalidStackEffect = math.MinInt32

// StackInput returns the minimum operand-stack depth opcode/oparg requires
// on entry. Ported field-for-field from the stack_input() switch consulted
// by the reachability/stack-depth analyzer.
func StackInput(op Opcode, oparg uint32) int {
	switch op {
	case NOP, EXTENDED_ARG:
		return 0
	case POP_TOP:
		return 1
	case ROT_TWO:
		return 2
	case ROT_THREE:
		return 3
	case ROT_FOUR:
		return 4
	case DUP_TOP:
		return 1
	case DUP_TOP_TWO:
		return 2
	case UNARY_POSITIVE, UNARY_NEGATIVE, UNARY_NOT, UNARY_INVERT:
		return 1
	case SET_ADD, LIST_APPEND, MAP_ADD:
		return int(oparg)
	case BINARY_POWER, BINARY_MULTIPLY, BINARY_MATRIX_MULTIPLY, BINARY_MODULO,
		BINARY_ADD, BINARY_SUBTRACT, BINARY_SUBSCR, BINARY_FLOOR_DIVIDE, BINARY_TRUE_DIVIDE,
		INPLACE_FLOOR_DIVIDE, INPLACE_TRUE_DIVIDE, INPLACE_ADD, INPLACE_SUBTRACT,
		INPLACE_MULTIPLY, INPLACE_MATRIX_MULTIPLY, INPLACE_MODULO:
		return 2
	case STORE_SUBSCR:
		return 3
	case DELETE_SUBSCR:
		return 2
	case BINARY_LSHIFT, BINARY_RSHIFT, BINARY_AND, BINARY_XOR, BINARY_OR, INPLACE_POWER:
		return 2
	case GET_ITER:
		return 1
	case PRINT_EXPR:
		return 1
	case LOAD_BUILD_CLASS:
		return 0
	case INPLACE_LSHIFT, INPLACE_RSHIFT, INPLACE_AND, INPLACE_XOR, INPLACE_OR:
		return 2
	case SETUP_WITH:
		return 1
	case RETURN_VALUE:
		return 1
	case IMPORT_STAR:
		return 1
	case SETUP_ANNOTATIONS:
		return 0
	case YIELD_VALUE, YIELD_FROM:
		return 1
	case POP_BLOCK:
		return 0
	case POP_EXCEPT:
		return 3
	case STORE_NAME:
		return 1
	case DELETE_NAME:
		return 0
	case UNPACK_SEQUENCE, UNPACK_EX:
		return 1
	case FOR_ITER:
		return 1
	case STORE_ATTR:
		return 2
	case DELETE_ATTR:
		return 1
	case STORE_GLOBAL:
		return 1
	case DELETE_GLOBAL:
		return 0
	case LOAD_CONST, LOAD_NAME:
		return 0
	case BUILD_TUPLE, BUILD_LIST, BUILD_SET, BUILD_STRING:
		return int(oparg)
	case BUILD_MAP:
		return 2 * int(oparg)
	case BUILD_CONST_KEY_MAP:
		return int(oparg)
	case LOAD_ATTR:
		return 0
	case COMPARE_OP:
		return 2
	case IMPORT_NAME:
		return 1
	case IMPORT_FROM:
		return 0
	case JUMP_FORWARD, JUMP_ABSOLUTE:
		return 0
	case JUMP_IF_TRUE_OR_POP, JUMP_IF_FALSE_OR_POP:
		return 1
	case POP_JUMP_IF_FALSE, POP_JUMP_IF_TRUE:
		return 1
	case LOAD_GLOBAL:
		return 0
	case SETUP_FINALLY:
		return 0
	case RERAISE:
		return 3
	case WITH_EXCEPT_START:
		return 7
	case LOAD_FAST:
		return 0
	case STORE_FAST:
		return 1
	case DELETE_FAST:
		return 0
	case RAISE_VARARGS:
		return int(oparg)
	case CALL_FUNCTION:
		return int(oparg) + 1
	case CALL_METHOD:
		return int(oparg) + 2
	case CALL_FUNCTION_KW:
		return int(oparg) + 2
	case CALL_FUNCTION_EX:
		return 1 + boolInt(oparg&0x01 != 0)
	case MAKE_FUNCTION:
		return boolInt(oparg&0x01 != 0) + boolInt(oparg&0x02 != 0) +
			boolInt(oparg&0x04 != 0) + boolInt(oparg&0x08 != 0)
	case BUILD_SLICE:
		if oparg == 3 {
			return 3
		}
		return 2
	case LOAD_CLOSURE:
		return 0
	case LOAD_DEREF, LOAD_CLASSDEREF:
		return 0
	case STORE_DEREF:
		return 1
	case DELETE_DEREF:
		return 0
	case GET_AWAITABLE:
		return 1
	case SETUP_ASYNC_WITH:
		return 1
	case BEFORE_ASYNC_WITH:
		return 1
	case GET_AITER, GET_ANEXT, GET_YIELD_FROM_ITER:
		return 1
	case END_ASYNC_FOR:
		return 7
	case FORMAT_VALUE:
		if oparg&FVSMask == FVSHaveSpec {
			return 2
		}
		return 1
	case LOAD_METHOD:
		return 1
	case LOAD_ASSERTION_ERROR:
		return 0
	default:
		return InvalidStackEffect
	}
}

// StackEffect returns the net change in operand-stack depth caused by
// opcode/oparg. taken selects the jump-taken edge for opcodes whose effect
// differs by branch direction (§4.3); it is ignored by opcodes with a
// single effect. Ported field-for-field from stack_effect().
func StackEffect(op Opcode, oparg uint32, taken bool) int {
	switch op {
	case NOP, EXTENDED_ARG:
		return 0
	case POP_TOP:
		return -1
	case ROT_TWO, ROT_THREE, ROT_FOUR:
		return 0
	case DUP_TOP:
		return 1
	case DUP_TOP_TWO:
		return 2
	case UNARY_POSITIVE, UNARY_NEGATIVE, UNARY_NOT, UNARY_INVERT:
		return 0
	case SET_ADD, LIST_APPEND:
		return -1
	case MAP_ADD:
		return -2
	case BINARY_POWER, BINARY_MULTIPLY, BINARY_MATRIX_MULTIPLY, BINARY_MODULO,
		BINARY_ADD, BINARY_SUBTRACT, BINARY_SUBSCR, BINARY_FLOOR_DIVIDE, BINARY_TRUE_DIVIDE,
		INPLACE_FLOOR_DIVIDE, INPLACE_TRUE_DIVIDE, INPLACE_ADD, INPLACE_SUBTRACT,
		INPLACE_MULTIPLY, INPLACE_MATRIX_MULTIPLY, INPLACE_MODULO:
		return -1
	case STORE_SUBSCR:
		return -3
	case DELETE_SUBSCR:
		return -2
	case BINARY_LSHIFT, BINARY_RSHIFT, BINARY_AND, BINARY_XOR, BINARY_OR, INPLACE_POWER:
		return -1
	case GET_ITER:
		return 0
	case PRINT_EXPR:
		return -1
	case LOAD_BUILD_CLASS:
		return 1
	case INPLACE_LSHIFT, INPLACE_RSHIFT, INPLACE_AND, INPLACE_XOR, INPLACE_OR:
		return -1
	case SETUP_WITH:
		if taken {
			return 6
		}
		return 1
	case RETURN_VALUE:
		return -1
	case IMPORT_STAR:
		return -1
	case SETUP_ANNOTATIONS:
		return 0
	case YIELD_VALUE:
		return 0
	case YIELD_FROM:
		return -1
	case POP_BLOCK:
		return 0
	case POP_EXCEPT:
		return -3
	case STORE_NAME:
		return -1
	case DELETE_NAME:
		return 0
	case UNPACK_SEQUENCE:
		return int(oparg) - 1
	case UNPACK_EX:
		return int(oparg&0xFF) + int(oparg>>8)
	case FOR_ITER:
		if taken {
			return -1
		}
		return 1
	case STORE_ATTR:
		return -2
	case DELETE_ATTR:
		return -1
	case STORE_GLOBAL:
		return -1
	case DELETE_GLOBAL:
		return 0
	case LOAD_CONST:
		return 1
	case LOAD_NAME:
		return 1
	case BUILD_TUPLE, BUILD_LIST, BUILD_SET, BUILD_STRING:
		return 1 - int(oparg)
	case BUILD_MAP:
		return 1 - 2*int(oparg)
	case BUILD_CONST_KEY_MAP:
		return -int(oparg)
	case LOAD_ATTR:
		return 0
	case COMPARE_OP:
		return -1
	case IMPORT_NAME:
		return -1
	case IMPORT_FROM:
		return 1
	case JUMP_FORWARD, JUMP_ABSOLUTE:
		return 0
	case JUMP_IF_TRUE_OR_POP, JUMP_IF_FALSE_OR_POP:
		if taken {
			return 0
		}
		return -1
	case POP_JUMP_IF_FALSE, POP_JUMP_IF_TRUE:
		return -1
	case LOAD_GLOBAL:
		return 1
	case SETUP_FINALLY:
		if taken {
			return 6
		}
		return 0
	case RERAISE:
		return -3
	case WITH_EXCEPT_START:
		return 1
	case LOAD_FAST:
		return 1
	case STORE_FAST:
		return -1
	case DELETE_FAST:
		return 0
	case RAISE_VARARGS:
		return -int(oparg)
	case CALL_FUNCTION:
		return -int(oparg)
	case CALL_METHOD:
		return -int(oparg) - 1
	case CALL_FUNCTION_KW:
		return -int(oparg) - 1
	case CALL_FUNCTION_EX:
		return -1 - boolInt(oparg&0x01 != 0)
	case MAKE_FUNCTION:
		return -1 - boolInt(oparg&0x01 != 0) - boolInt(oparg&0x02 != 0) -
			boolInt(oparg&0x04 != 0) - boolInt(oparg&0x08 != 0)
	case BUILD_SLICE:
		if oparg == 3 {
			return -2
		}
		return -1
	case LOAD_CLOSURE:
		return 1
	case LOAD_DEREF, LOAD_CLASSDEREF:
		return 1
	case STORE_DEREF:
		return -1
	case DELETE_DEREF:
		return 0
	case GET_AWAITABLE:
		return 0
	case SETUP_ASYNC_WITH:
		if taken {
			return 5
		}
		return 0
	case BEFORE_ASYNC_WITH:
		return 1
	case GET_AITER:
		return 0
	case GET_ANEXT:
		return 1
	case GET_YIELD_FROM_ITER:
		return 0
	case END_ASYNC_FOR:
		return -7
	case FORMAT_VALUE:
		if oparg&FVSMask == FVSHaveSpec {
			return -1
		}
		return 0
	case LOAD_METHOD:
		return 1
	case LOAD_ASSERTION_ERROR:
		return 1
	default:
		return InvalidStackEffect
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
