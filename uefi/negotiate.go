// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
)

// MaxAttempts is the maximum number of calls performed by [Negotiate].
var MaxAttempts = 4

// Negotiate implements the size negotiation required by services filling a
// caller allocated buffer whose required size is not known in advance.
//
// The call function is invoked with the buffer capacity, in bytes, it should
// allocate. When it fails with [*SizeError] the capacity is grown to the
// size reported by firmware, plus the argument slack, and the call is
// retried. Any other error is returned immediately.
func Negotiate[T any](capacity int, slack int, call func(capacity int) (T, error)) (res T, err error) {
	var sizeErr *SizeError

	for i := 0; i < MaxAttempts; i++ {
		if res, err = call(capacity); !errors.As(err, &sizeErr) {
			return
		}

		next := max(sizeErr.Required, capacity) + slack

		if next <= capacity {
			return res, err
		}

		capacity = next
	}

	return
}
