// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"errors"
)

var (
	// ErrTurnInFlight rejects a Send while another turn is running.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyMessage rejects blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrStalled ends a turn whose stream went silent for too long.
	ErrStalled = errors.New("the response stalled; please try again")

	// ErrCanceled ends a turn stopped by the caller.
	ErrCanceled = errors.New("request cancelled")

	// ErrTurnAbandoned is returned when the conversation changed while the
	// turn was in flight. The chat state is left untouched.
	ErrTurnAbandoned = errors.New("turn abandoned: conversation changed")

	// ErrServer wraps an error event sent by the server.
	ErrServer = errors.New("server error")
)
