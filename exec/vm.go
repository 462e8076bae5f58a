// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exec provides a small-step interpreter for the instruction set
// the core pipeline builds, optimizes and assembles. It exists to give the
// semantic-preservation property (§8) a concrete oracle: running a graph
// before and after optimization and comparing the two traces is how a
// rewrite in optimize/ is checked for observable effect, the way the
// teacher's own VM gave WebAssembly bytecode an executable semantics.
package exec

import (
	"errors"
	"fmt"

	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// ErrStepBudgetExceeded is returned by Run when a graph doesn't reach
// RETURN_VALUE within MaxSteps steps, the interpreter's only defense
// against an accidentally-introduced infinite loop in a test fixture.
var ErrStepBudgetExceeded = errors.New("exec: step budget exceeded")

// MaxSteps bounds how many instructions Run executes before giving up.
const MaxSteps = 1 << 16

// UnsupportedOpcodeError is returned by Run when it encounters an opcode
// this interpreter has no case for. The interpreter only covers the
// opcodes the optimizer's rewrite patterns (§4.4) touch; it is a test
// oracle, not a full implementation of every opcode in the isa package.
type UnsupportedOpcodeError isa.Opcode

func (e UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("exec: unsupported opcode %s", isa.Opcode(e))
}

// Step records one executed instruction and the operand stack immediately
// after it ran, so two traces can be compared value-for-value.
type Step struct {
	Block, Offset int
	Op            isa.Opcode
	Stack         []interface{}
}

// context mirrors the teacher's own per-call execution state (stack,
// locals, program counter) adapted to walk (block, offset) pairs into a
// cfg.ControlFlowGraph instead of a flat compiled byte buffer.
type context struct {
	stack  []interface{}
	locals []interface{}
	block  int
	offset int
}

func (c *context) push(v interface{}) { c.stack = append(c.stack, v) }

func (c *context) pop() interface{} {
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v
}

func (c *context) top() interface{} { return c.stack[len(c.stack)-1] }

// Run interprets g from block 0, instruction 0, with the given locals and
// shared constant pool, until RETURN_VALUE or the step budget is
// exhausted. It returns the full instruction trace and the returned value.
func Run(g *cfg.ControlFlowGraph, consts *cfg.ConstantPool, locals []interface{}) ([]Step, interface{}, error) {
	c := &context{locals: append([]interface{}(nil), locals...)}
	var trace []Step

	for steps := 0; ; steps++ {
		if steps >= MaxSteps {
			return trace, nil, ErrStepBudgetExceeded
		}

		b := &g.Blocks[c.block]
		if c.offset >= b.End {
			if b.Fallthrough == cfg.NoFallthrough {
				return trace, nil, fmt.Errorf("exec: fell off exit block %d with no RETURN_VALUE", c.block)
			}
			c.block, c.offset = b.Fallthrough, g.Blocks[b.Fallthrough].Start
			continue
		}

		instr := g.Instructions[c.offset]
		taken, ret, err := step(c, instr, consts)
		if err != nil {
			return trace, nil, err
		}
		trace = append(trace, Step{
			Block: c.block, Offset: c.offset, Op: instr.Op,
			Stack: append([]interface{}(nil), c.stack...),
		})
		if ret {
			return trace, c.pop(), nil
		}

		if taken >= 0 {
			c.block, c.offset = taken, g.Blocks[taken].Start
		} else {
			c.offset++
		}
	}
}

// step executes one instruction, returning the block index branched to
// (-1 if none), and whether the instruction returned from the function.
func step(c *context, instr cfg.Instruction, consts *cfg.ConstantPool) (branchedTo int, returned bool, err error) {
	switch instr.Op {
	case isa.NOP:
	case isa.LOAD_CONST:
		c.push(consts.Get(int(instr.Oparg)))
	case isa.LOAD_FAST:
		c.push(c.locals[instr.Oparg])
	case isa.STORE_FAST:
		c.locals[instr.Oparg] = c.pop()
	case isa.POP_TOP:
		c.pop()
	case isa.DUP_TOP:
		c.push(c.top())
	case isa.ROT_TWO:
		n := len(c.stack)
		c.stack[n-1], c.stack[n-2] = c.stack[n-2], c.stack[n-1]
	case isa.ROT_THREE:
		n := len(c.stack)
		c.stack[n-1], c.stack[n-2], c.stack[n-3] = c.stack[n-2], c.stack[n-3], c.stack[n-1]
	case isa.BUILD_TUPLE:
		k := int(instr.Oparg)
		tup := make(cfg.Tuple, k)
		copy(tup, c.stack[len(c.stack)-k:])
		c.stack = c.stack[:len(c.stack)-k]
		c.push(tup)
	case isa.UNPACK_SEQUENCE:
		tup, ok := c.pop().(cfg.Tuple)
		if !ok || len(tup) != int(instr.Oparg) {
			return -1, false, fmt.Errorf("exec: UNPACK_SEQUENCE %d on non-matching value %#v", instr.Oparg, tup)
		}
		for i := len(tup) - 1; i >= 0; i-- {
			c.push(tup[i])
		}
	case isa.BINARY_ADD:
		b, a := c.pop(), c.pop()
		sum, err := add(a, b)
		if err != nil {
			return -1, false, err
		}
		c.push(sum)
	case isa.JUMP_FORWARD, isa.JUMP_ABSOLUTE:
		return int(instr.Oparg), false, nil
	case isa.POP_JUMP_IF_TRUE, isa.POP_JUMP_IF_FALSE:
		fires, err := optimizeTruthy(c.pop())
		if err != nil {
			return -1, false, err
		}
		if fires == (instr.Op == isa.POP_JUMP_IF_TRUE) {
			return int(instr.Oparg), false, nil
		}
	case isa.JUMP_IF_TRUE_OR_POP, isa.JUMP_IF_FALSE_OR_POP:
		fires, err := optimizeTruthy(c.top())
		if err != nil {
			return -1, false, err
		}
		if fires == (instr.Op == isa.JUMP_IF_TRUE_OR_POP) {
			return int(instr.Oparg), false, nil
		}
		c.pop()
	case isa.RETURN_VALUE:
		return -1, true, nil
	default:
		return -1, false, UnsupportedOpcodeError(instr.Op)
	}
	return -1, false, nil
}

func add(a, b interface{}) (interface{}, error) {
	switch x := a.(type) {
	case int:
		y, ok := b.(int)
		if !ok {
			return nil, fmt.Errorf("exec: BINARY_ADD type mismatch %T + %T", a, b)
		}
		return x + y, nil
	case int64:
		y, ok := b.(int64)
		if !ok {
			return nil, fmt.Errorf("exec: BINARY_ADD type mismatch %T + %T", a, b)
		}
		return x + y, nil
	case float64:
		y, ok := b.(float64)
		if !ok {
			return nil, fmt.Errorf("exec: BINARY_ADD type mismatch %T + %T", a, b)
		}
		return x + y, nil
	case string:
		y, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("exec: BINARY_ADD type mismatch %T + %T", a, b)
		}
		return x + y, nil
	default:
		return nil, fmt.Errorf("exec: BINARY_ADD unsupported operand type %T", a)
	}
}

// optimizeTruthy duplicates the default truthiness rule optimize.Truthy
// starts from, so this package doesn't need to import optimize (which
// itself may need to import exec-level fixtures in tests).
func optimizeTruthy(v interface{}) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case int32:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case uint32:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case float32:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return len(x) != 0, nil
	case cfg.Tuple:
		return len(x) != 0, nil
	default:
		return true, nil
	}
}
