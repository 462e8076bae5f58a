// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimize

import "github.com/go-interpreter/flowcfg/cfg"

// Truthy decides whether a constant-pool value is truthy for the purpose
// of conditional-branch folding (§4.4). Its default handles the value
// kinds the constant pool actually holds — nil, bool, the numeric kinds,
// strings and cfg.Tuple — the same way the reference truthiness rules do:
// nil, zero, and empty are falsy.
//
// Callers whose constant pool carries richer container types (ones whose
// own truthiness query can fail, e.g. by invoking user code) should
// replace Truthy before calling Run; a failing query must be reported
// through TruthinessError, not panic.
var Truthy = DefaultTruthy

// DefaultTruthy is optimize's built-in Truthy implementation.
func DefaultTruthy(v interface{}) (bool, error) {
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
