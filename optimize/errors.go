// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import (
	"fmt"

	"github.com/go-interpreter/flowcfg/cfg"
)

// ErrConstantPoolOverflow is returned when folding a tuple (or any other
// rewrite that appends to the constant pool) would exceed the index width
// the rest of the pipeline assumes. It simply forwards cfg's sentinel so
// callers can match either package's error with the same check.
var ErrConstantPoolOverflow = cfg.ErrConstantPoolOverflow

// TruthinessError wraps a failing truthiness query raised while folding a
// conditional branch against a known constant (§4.4, §7 "Predicate-
// evaluation failure"). The optimizer aborts the in-flight rewrite and
// returns this rather than retrying or swallowing the failure.
type TruthinessError struct {
	Constant interface{}
	Err      error
}

func (e TruthinessError) Error() string {
	return fmt.Sprintf("optimize: truthiness query failed for constant %#v: %v", e.Constant, e.Err)
}

func (e TruthinessError) Unwrap() error { return e.Err }
