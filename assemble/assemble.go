// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assemble turns an optimized control-flow graph into the final
// bit-exact bytecode and line-number table a runtime consumes (§4.5, §4.6).
package assemble

import "github.com/go-interpreter/flowcfg/cfg"

// Output is the assembler's bit-exact result (§6): the bytecode, its
// accompanying delta-encoded line table, and the maximum operand-stack
// depth the function requires.
type Output struct {
	Bytecode      []byte
	Lnotab        []byte
	MaxStackDepth int
}

// Assemble lays out g's reachable blocks, solves branch offsets to a fixed
// point, and emits the resulting bytecode and line table seeded at
// firstLine. g must already be optimized and have up-to-date reachability;
// Assemble recomputes stack depth itself since any inter-block rewrite
// since the last analysis would have invalidated it.
func Assemble(g *cfg.ControlFlowGraph, firstLine int32) (*Output, error) {
	order, err := emissionOrder(g)
	if err != nil {
		return nil, err
	}

	maxDepth, err := g.Analyze()
	if err != nil {
		return nil, err
	}

	if err := solveSizes(g, order); err != nil {
		return nil, err
	}

	bytecode, lnotab := emit(g, order, firstLine)

	return &Output{
		Bytecode:      bytecode,
		Lnotab:        lnotab,
		MaxStackDepth: maxDepth,
	}, nil
}

// LineEntry is one (byte offset, source line) breakpoint recorded by
// DecodeLnotab: the line in effect from Offset onward, until the next
// entry's Offset.
type LineEntry struct {
	Offset int
	Line   int32
}

// DecodeLnotab replays a delta-encoded line table produced by emit (§4.6)
// back into an ordered list of (offset, line) breakpoints starting from
// firstLine at offset 0. It mirrors a debugger's own line-table walk and is
// carried as a public utility the way CPython exposes co_lnotab decoding to
// its own debugger and traceback machinery, rather than leaving every
// caller to re-derive the delta/span rules emit.go encodes.
func DecodeLnotab(lnotab []byte, firstLine int32) []LineEntry {
	entries := []LineEntry{{Offset: 0, Line: firstLine}}
	offset := 0
	line := firstLine
	for i := 0; i+1 < len(lnotab); i += 2 {
		byteDelta := int(lnotab[i])
		lineDelta := int32(int8(lnotab[i+1]))
		offset += byteDelta
		line += lineDelta
		entries = append(entries, LineEntry{Offset: offset, Line: line})
	}
	return entries
}

// LineAt returns the source line in effect at the given bytecode offset,
// per entries returned by DecodeLnotab.
func LineAt(entries []LineEntry, offset int) int32 {
	best := int32(0)
	bestOffset := -1
	for _, e := range entries {
		if e.Offset <= offset && e.Offset >= bestOffset {
			bestOffset = e.Offset
			best = e.Line
		}
	}
	return best
}
