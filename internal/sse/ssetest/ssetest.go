// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ssetest writes event-stream records for fake chat servers in tests.
package ssetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/crewchat/internal/sse"
)

// WriteData writes v as one "data: <json>" record followed by a blank line,
// flushing w if it is an http.Flusher.
func WriteData(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s%s\n\n", sse.DataPrefix, data); err != nil {
		return err
	}
	flush(w)
	return nil
}

// WriteDone writes the sentinel record.
func WriteDone(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s%s\n\n", sse.DataPrefix, sse.DoneSentinel); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
