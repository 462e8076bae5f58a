// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"errors"
	"fmt"
)

// ErrEmptyCFG is returned by Assemble when handed a graph with no blocks.
var ErrEmptyCFG = errors.New("assemble: control-flow graph has no blocks")

// sizingDidNotConverge is an internal invariant: the iterative branch-size
// solver only ever shrinks sizes, so it must reach a fixed point within a
// number of passes bounded by three times the number of branch
// instructions (each branch can shrink at most from 4 code units to 1).
// Seeing it fire means block sizes have stopped monotonically decreasing,
// which can only happen from a producer bug upstream.
type sizingDidNotConverge struct {
	iterations int
}

func (e sizingDidNotConverge) Error() string {
	return fmt.Sprintf("assemble: branch-size solver did not converge after %d iterations", e.iterations)
}
