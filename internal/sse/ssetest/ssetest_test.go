// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ssetest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jeranaias/crewchat/internal/sse"
)

func TestWriteDataRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteData(&buf, map[string]string{"chunk": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := WriteDone(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "data: {\"chunk\":\"x\"}\n\ndata: [DONE]\n\n" {
		t.Errorf("encoded = %q", buf.String())
	}

	d := sse.NewDecoder(&buf)
	ev, err := d.Next(context.Background())
	if err != nil || ev.Kind != sse.KindChunk || ev.Chunk != "x" {
		t.Fatalf("Next() = %+v, %v", ev, err)
	}
	if _, err := d.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() after sentinel = %v, want io.EOF", err)
	}
	if !d.Terminated() {
		t.Error("decoder not terminated by sentinel")
	}
}

func TestWriteDataRejectsUnmarshalable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteData(&buf, make(chan int)); err == nil {
		t.Error("WriteData(chan) = nil, want error")
	}
	if buf.Len() != 0 {
		t.Errorf("partial write %q", buf.String())
	}
}
