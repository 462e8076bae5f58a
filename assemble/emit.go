// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// byteBuf is a growable byte buffer doubling its capacity on demand (§4.6),
// mirroring the teacher's own preallocate-then-grow disassembly buffers
// rather than reaching for bytes.Buffer, since callers need the final
// truncated-to-length slice back out, not an io.Writer.
type byteBuf struct {
	data []byte
	n    int
}

func newByteBuf(capacity int) *byteBuf {
	return &byteBuf{data: make([]byte, capacity)}
}

func (b *byteBuf) writeByte(v byte) {
	if b.n == len(b.data) {
		grown := make([]byte, len(b.data)*2+1)
		copy(grown, b.data)
		b.data = grown
	}
	b.data[b.n] = v
	b.n++
}

func (b *byteBuf) bytes() []byte { return b.data[:b.n] }

// lineTable accumulates the delta-encoded (byte_delta, line_delta) pairs
// described in §4.6 and §6.
type lineTable struct {
	buf        *byteBuf
	lastOffset int
	lastLine   int32
}

func newLineTable(firstLine int32, capacity int) *lineTable {
	return &lineTable{buf: newByteBuf(capacity), lastLine: firstLine}
}

// record notes that the instruction starting at byteOffset originates from
// line. It is a no-op when the line hasn't changed since the last record.
func (lt *lineTable) record(byteOffset int, line int32) {
	if line == lt.lastLine {
		return
	}
	byteDelta := byteOffset - lt.lastOffset
	lineDelta := int(line - lt.lastLine)
	lt.lastOffset = byteOffset
	lt.lastLine = line

	for byteDelta > 255 {
		lt.buf.writeByte(255)
		lt.buf.writeByte(0)
		byteDelta -= 255
	}
	for lineDelta > 127 {
		lt.buf.writeByte(byte(byteDelta))
		lt.buf.writeByte(127)
		byteDelta = 0
		lineDelta -= 127
	}
	for lineDelta < -128 {
		lt.buf.writeByte(byte(byteDelta))
		lt.buf.writeByte(0x80) // -128 as a signed byte
		byteDelta = 0
		lineDelta += 128
	}
	if byteDelta != 0 || lineDelta != 0 {
		lt.buf.writeByte(byte(byteDelta))
		lt.buf.writeByte(byte(int8(lineDelta)))
	}
}

// emit writes each instruction in order, EXTENDED_ARG-prefixed per its
// solved Size, and builds the line table alongside (§4.6).
func emit(g *cfg.ControlFlowGraph, order []int, firstLine int32) ([]byte, []byte) {
	code := newByteBuf(len(g.Instructions) * 2)
	lines := newLineTable(firstLine, 16)

	for _, bi := range order {
		b := &g.Blocks[bi]
		for ii := b.Start; ii < b.End; ii++ {
			instr := g.Instructions[ii]
			offsetOfThisInstr := code.n

			oparg, op := instr.Oparg, instr.Op
			if instr.Has(cfg.IsBranch) {
				endOfBranch := b.ByteOffset + b.ByteSize
				targetOffset := g.Blocks[instr.Oparg].ByteOffset
				oparg, op = branchOperand(instr.Op, endOfBranch, targetOffset)
			}

			writeInstruction(code, op, oparg)
			if instr.Line >= 0 {
				lines.record(offsetOfThisInstr, instr.Line)
			}
		}
	}

	return code.bytes(), lines.buf.bytes()
}

// writeInstruction emits op/oparg as instrsize(oparg) code units: zero or
// more (EXTENDED_ARG, high-byte) pairs most-significant-first, followed by
// (op, low-byte).
func writeInstruction(code *byteBuf, op isa.Opcode, oparg uint32) {
	size := instrsize(oparg)
	for shift := 8 * (size - 1); shift > 0; shift -= 8 {
		code.writeByte(byte(isa.EXTENDED_ARG))
		code.writeByte(byte(oparg >> uint(shift)))
	}
	code.writeByte(byte(op))
	code.writeByte(byte(oparg))
}
