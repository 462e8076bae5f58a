// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import "github.com/go-interpreter/flowcfg/cfg"

// MaxIterations bounds the intra/inter-block rewrite loop (§4.4) so a
// pathological input can't make Run loop forever chasing a fixed point
// that keeps almost-but-not-quite converging.
const MaxIterations = 12

// Run applies the optimizer's rewrite families to g until they reach a
// fixed point (or MaxIterations is hit), then performs the one-shot
// fallthrough-promotion pass, and leaves g with fresh reachability
// information. It reports whether anything changed across the whole call,
// which a caller re-running Run on its own output can use to confirm
// idempotence.
func Run(g *cfg.ControlFlowGraph, consts *cfg.ConstantPool) (changed bool, err error) {
	for iter := 0; iter < MaxIterations; iter++ {
		intraChanged, ierr := runIntraBlockPass(g, consts)
		if ierr != nil {
			return changed, ierr
		}
		g.MarkReachable()

		interChanged, interr := interBlockPass(g)
		if interr != nil {
			return changed, interr
		}
		g.MarkReachable()

		if intraChanged || interChanged {
			changed = true
			logger.Printf("iteration %d: intra=%v inter=%v", iter, intraChanged, interChanged)
			continue
		}
		break
	}

	if fallthroughPromotion(g) {
		changed = true
	}
	g.MarkReachable()

	return changed, nil
}

// runIntraBlockPass applies rewriteBlock to every block and writes the
// results back with a single Rebuild.
func runIntraBlockPass(g *cfg.ControlFlowGraph, consts *cfg.ConstantPool) (bool, error) {
	perBlock := make([][]cfg.Instruction, len(g.Blocks))
	becameExit := make([]bool, len(g.Blocks))
	changed := false

	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		in := g.Instructions[b.Start:b.End]
		out, blockChanged, exit, err := rewriteBlock(in, consts)
		if err != nil {
			return false, err
		}
		perBlock[bi] = out
		becameExit[bi] = exit
		if blockChanged {
			changed = true
		}
	}

	g.Rebuild(perBlock)

	for bi, exit := range becameExit {
		if !exit {
			continue
		}
		g.Blocks[bi].Fallthrough = cfg.NoFallthrough
		g.Blocks[bi].IsExit = true
	}

	return changed, nil
}
