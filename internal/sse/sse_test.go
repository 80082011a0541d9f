// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// chunkedReader returns its input in the given piece sizes, cycling through
// sizes until exhausted.
type chunkedReader struct {
	data   []byte
	sizes  []int
	i      int
	closed bool
	err    error // returned once data is exhausted, instead of io.EOF
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := r.sizes[r.i%len(r.sizes)]
	r.i++
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func (r *chunkedReader) Close() error {
	r.closed = true
	return nil
}

func collect(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var out []Event
	for {
		ev, err := d.Next(context.Background())
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, ev)
	}
}

const sampleStream = "" +
	": keep-alive comment\n" +
	"data: {\"type\":\"thinking_step\",\"step\":{\"stepType\":\"analyze\",\"description\":\"Understanding\",\"stepOrder\":1}}\n\n" +
	"event: ignored\n" +
	"data: {\"type\":\"thinking_complete\"}\n\n" +
	"data: {\"chunk\":\"Hi\"}\n\n" +
	"data: not json at all\n\n" +
	"data: {\"chunk\":\" thére\"}\r\n\r\n" +
	"data: {\"type\":\"function_call\",\"name\":\"lookup\"}\n\n" +
	"data: {\"type\":\"crew_transition\",\"transition\":{\"from\":\"a\",\"to\":\"b\",\"reason\":\"topic\"}}\n\n" +
	"data: [DONE]\n\n" +
	"data: {\"chunk\":\"after done\"}\n\n"

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    ResultKind
		event   EventKind
	}{
		{"thinking step", `{"type":"thinking_step","step":{"stepType":"x","description":"d","stepOrder":2,"metadata":{"hits":3}}}`, ResultEvent, KindThinkingStep},
		{"thinking step missing step", `{"type":"thinking_step"}`, ResultError, 0},
		{"thinking complete", `{"type":"thinking_complete"}`, ResultEvent, KindThinkingComplete},
		{"chunk", `{"chunk":"hello"}`, ResultEvent, KindChunk},
		{"empty chunk", `{"chunk":""}`, ResultSkip, 0},
		{"error string", `{"error":"boom"}`, ResultEvent, KindError},
		{"error object", `{"error":{"message":"boom"}}`, ResultEvent, KindError},
		{"error false", `{"error":false}`, ResultSkip, 0},
		{"function call", `{"type":"function_call","name":"f"}`, ResultEvent, KindFunctionCall},
		{"function result", `{"type":"function_result","result":{}}`, ResultEvent, KindFunctionResult},
		{"crew info", `{"type":"crew_info","crew":{"name":"a","displayName":"A"}}`, ResultEvent, KindCrewInfo},
		{"crew info missing name", `{"type":"crew_info","crew":{}}`, ResultError, 0},
		{"crew transition", `{"type":"crew_transition","transition":{"to":"b"}}`, ResultEvent, KindCrewTransition},
		{"crew transition missing", `{"type":"crew_transition"}`, ResultError, 0},
		{"unknown type with chunk", `{"type":"delta","chunk":"x"}`, ResultEvent, KindChunk},
		{"unknown type", `{"type":"heartbeat"}`, ResultSkip, 0},
		{"empty object", `{}`, ResultSkip, 0},
		{"invalid json", `{"chunk":`, ResultError, 0},
		{"not an object", `42`, ResultError, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Parse([]byte(tc.payload))
			if res.Kind != tc.kind {
				t.Fatalf("Kind = %v, want %v (err=%v)", res.Kind, tc.kind, res.Err)
			}
			if tc.kind == ResultEvent && res.Event.Kind != tc.event {
				t.Errorf("Event.Kind = %v, want %v", res.Event.Kind, tc.event)
			}
			if tc.kind == ResultError && !errors.Is(res.Err, ErrMalformed) {
				t.Errorf("Err = %v, want ErrMalformed", res.Err)
			}
		})
	}
}

func TestParse_FieldValues(t *testing.T) {
	res := Parse([]byte(`{"type":"thinking_step","step":{"stepType":"file_search","description":"Searching files","stepOrder":7,"metadata":{"hits":["a.pdf"]}}}`))
	step := res.Event.Step
	if step.StepType != "file_search" || step.Description != "Searching files" || step.StepOrder != 7 {
		t.Errorf("Step = %+v", step)
	}
	if _, ok := step.Metadata["hits"]; !ok {
		t.Error("metadata not preserved")
	}

	res = Parse([]byte(`{"error":{"message":"quota exceeded"}}`))
	if res.Event.Error != "quota exceeded" {
		t.Errorf("Error = %q, want %q", res.Event.Error, "quota exceeded")
	}

	res = Parse([]byte(`{"type":"crew_transition","transition":{"from":"a","to":"b","reason":"r","timestamp":"2025-01-01T00:00:00Z"}}`))
	if res.Event.Transition.From != "a" || res.Event.Transition.To != "b" {
		t.Errorf("Transition = %+v", res.Event.Transition)
	}
}

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_SampleStream(t *testing.T) {
	r := &chunkedReader{data: []byte(sampleStream), sizes: []int{len(sampleStream)}}
	d := NewDecoder(r)
	events := collect(t, d)

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := []EventKind{KindThinkingStep, KindThinkingComplete, KindChunk, KindChunk, KindFunctionCall, KindCrewTransition}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if events[3].Chunk != " thére" {
		t.Errorf("second chunk = %q", events[3].Chunk)
	}
	if !d.Terminated() {
		t.Error("Terminated() = false, want true after [DONE]")
	}
	if !r.closed {
		t.Error("underlying reader not closed at sentinel")
	}

	stats := d.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	if stats.Events != len(want) {
		t.Errorf("Events = %d, want %d", stats.Events, len(want))
	}
}

// Decoding must not depend on how the byte stream is split into reads.
func TestDecoder_ChunkSizeIndependence(t *testing.T) {
	reference := collect(t, NewDecoder(strings.NewReader(sampleStream)))

	for size := 1; size <= 17; size++ {
		r := &chunkedReader{data: []byte(sampleStream), sizes: []int{size}}
		got := collect(t, NewDecoder(r, WithReadSize(size)))
		if !reflect.DeepEqual(got, reference) {
			t.Fatalf("read size %d: events differ\n got: %+v\nwant: %+v", size, got, reference)
		}
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		sizes := make([]int, 1+rng.Intn(8))
		for i := range sizes {
			sizes[i] = 1 + rng.Intn(40)
		}
		r := &chunkedReader{data: []byte(sampleStream), sizes: sizes}
		got := collect(t, NewDecoder(r))
		if !reflect.DeepEqual(got, reference) {
			t.Fatalf("trial %d sizes %v: events differ", trial, sizes)
		}
	}
}

// Multi-byte runes split across reads must survive intact.
func TestDecoder_SplitUTF8(t *testing.T) {
	stream := "data: {\"chunk\":\"日本語\"}\n"
	r := &chunkedReader{data: []byte(stream), sizes: []int{1}}
	events := collect(t, NewDecoder(r))
	if len(events) != 1 || events[0].Chunk != "日本語" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecoder_NaturalCloseDropsPartialLine(t *testing.T) {
	stream := "data: {\"chunk\":\"a\"}\ndata: {\"chunk\":\"never terminated\"}"
	d := NewDecoder(strings.NewReader(stream))
	events := collect(t, d)
	if len(events) != 1 || events[0].Chunk != "a" {
		t.Errorf("events = %+v, want only the complete line", events)
	}
	if d.Terminated() {
		t.Error("Terminated() = true for a natural close")
	}
}

func TestDecoder_NonDataLinesIgnored(t *testing.T) {
	stream := "id: 1\nretry: 100\ndata:{\"chunk\":\"no space\"}\n\ndata: {\"chunk\":\"ok\"}\n"
	events := collect(t, NewDecoder(strings.NewReader(stream)))
	if len(events) != 1 || events[0].Chunk != "ok" {
		t.Errorf("events = %+v", events)
	}
}

func TestDecoder_ReadErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkedReader{data: []byte("data: {\"chunk\":\"a\"}\n"), sizes: []int{64}, err: boom}
	d := NewDecoder(r)

	ev, err := d.Next(context.Background())
	if err != nil || ev.Chunk != "a" {
		t.Fatalf("first Next() = %+v, %v", ev, err)
	}
	_, err = d.Next(context.Background())
	if !errors.Is(err, ErrStreamRead) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrStreamRead wrapping cause", err)
	}
	if !r.closed {
		t.Error("reader not released after error")
	}
	if _, again := d.Next(context.Background()); again != err {
		t.Errorf("second call error = %v, want same error", again)
	}
}

func TestDecoder_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDecoder(strings.NewReader(sampleStream))
	if _, err := d.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestDecoder_LineTooLong(t *testing.T) {
	stream := "data: " + strings.Repeat("x", 100)
	d := NewDecoder(strings.NewReader(stream), WithMaxLineBytes(32))
	if _, err := d.Next(context.Background()); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("Next() error = %v, want ErrLineTooLong", err)
	}
}

func TestDecoder_CloseStopsIteration(t *testing.T) {
	r := &chunkedReader{data: []byte(sampleStream), sizes: []int{8}}
	d := NewDecoder(r)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !r.closed {
		t.Error("Close did not release the reader")
	}
	if _, err := d.Next(context.Background()); !errors.Is(err, ErrDecoderClosed) {
		t.Errorf("Next() after Close = %v, want ErrDecoderClosed", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestStreamError(t *testing.T) {
	cause := errors.New("eof")
	err := &StreamError{Partial: 12, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("StreamError does not unwrap")
	}
	if !strings.Contains(err.Error(), "12 chars") {
		t.Errorf("Error() = %q", err.Error())
	}
	if (&StreamError{Err: cause}).Error() != "stream error: eof" {
		t.Errorf("Error() without partial = %q", (&StreamError{Err: cause}).Error())
	}
}
