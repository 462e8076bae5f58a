// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-interpreter/flowcfg/cfg"
	"github.com/go-interpreter/flowcfg/isa"
)

// ParseError reports a malformed line in a listing, by 1-based line number.
type ParseError struct {
	Line   int
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("cfgdump: line %d: %s", e.Line, e.Reason)
}

// parseListing reads a textual instruction listing, one instruction per
// line: `OPNAME OPARG [LINE]`. OPARG names either an instruction index (for
// branches, in the Oparg-as-instruction-index convention cfg.Build expects)
// or an immediate operand; LINE is the optional originating source line,
// carried forward from the previous instruction when omitted. Blank lines
// and lines starting with "#" are skipped; line numbers reported in errors
// are 1-based positions in the input, skipped lines included.
func parseListing(r io.Reader) ([]cfg.Instruction, error) {
	var instrs []cfg.Instruction
	lastLine := int32(1)

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, ParseError{Line: lineno, Reason: "expected OPNAME OPARG [LINE]"}
		}

		op, err := isa.ParseName(fields[0])
		if err != nil {
			return nil, ParseError{Line: lineno, Reason: err.Error()}
		}

		oparg, err := strconv.ParseUint(fields[1], 0, 32)
		if err != nil {
			return nil, ParseError{Line: lineno, Reason: fmt.Sprintf("invalid oparg %q: %v", fields[1], err)}
		}

		srcLine := lastLine
		if len(fields) >= 3 {
			n, err := strconv.ParseInt(fields[2], 0, 32)
			if err != nil {
				return nil, ParseError{Line: lineno, Reason: fmt.Sprintf("invalid line %q: %v", fields[2], err)}
			}
			srcLine = int32(n)
		}
		lastLine = srcLine

		instr := cfg.Instruction{Op: op, Oparg: uint32(oparg), Line: srcLine}
		if op.IsBranch() {
			instr.Flags |= cfg.IsBranch
		}
		if op.IsTerminator() {
			instr.Flags |= cfg.IsTerminator
		}
		instrs = append(instrs, instr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(instrs) == 0 {
		return nil, cfg.ErrEmptyInstructionStream
	}
	return instrs, nil
}
