// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

import (
	"errors"
	"fmt"
)

// ErrConstantPoolOverflow is returned by ConstantPool.Append when the new
// index would no longer fit the oparg width the rest of the pipeline
// assumes (§7 "Constant-pool overflow").
var ErrConstantPoolOverflow = errors.New("cfg: constant pool overflow")

// ErrEmptyInstructionStream is returned by Build when handed a zero-length
// instruction array; the first instruction must always exist to seed block 0.
var ErrEmptyInstructionStream = errors.New("cfg: instruction stream is empty")

// InvariantError reports a violation of one of the CFG's structural
// invariants: a producer bug, not a recoverable condition (§7 "Invariant
// violation"). Offset/Block identify where the check failed so a caller
// can pair it with a CFG dump.
type InvariantError struct {
	Reason string
	Block  int // -1 if not block-specific
	Offset int // -1 if not instruction-specific
}

func (e InvariantError) Error() string {
	switch {
	case e.Block >= 0 && e.Offset >= 0:
		return fmt.Sprintf("cfg: invariant violated at instruction %d in block %d: %s", e.Offset, e.Block, e.Reason)
	case e.Block >= 0:
		return fmt.Sprintf("cfg: invariant violated in block %d: %s", e.Block, e.Reason)
	default:
		return fmt.Sprintf("cfg: invariant violated: %s", e.Reason)
	}
}

// StackUnderflowError reports an instruction whose minimum required
// operand-stack depth exceeds the depth computed to be present on entry
// (§4.3's verification step, ported from validate's per-opcode checks).
type StackUnderflowError struct {
	Block      int
	Offset     int
	HaveDepth  int
	NeedsDepth int
}

func (e StackUnderflowError) Error() string {
	return fmt.Sprintf("cfg: stack underflow at instruction %d in block %d: have depth %d, need %d",
		e.Offset, e.Block, e.HaveDepth, e.NeedsDepth)
}
