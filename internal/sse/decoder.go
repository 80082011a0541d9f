// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/crewchat/internal/logging"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// DataPrefix marks payload-carrying lines.
	DataPrefix = "data: "

	// DoneSentinel terminates the stream.
	DoneSentinel = "[DONE]"

	// DefaultReadSize is the size of each read from the body.
	DefaultReadSize = 4 * 1024

	// DefaultMaxLineBytes bounds the carry-over buffer (1MB).
	DefaultMaxLineBytes = 1024 * 1024
)

var (
	// ErrStreamRead wraps failures of the underlying reader.
	ErrStreamRead = errors.New("stream read failed")

	// ErrLineTooLong is returned when a line exceeds the configured maximum.
	ErrLineTooLong = errors.New("stream line exceeds maximum length")

	// ErrDecoderClosed is returned by Next after Close.
	ErrDecoderClosed = errors.New("decoder closed")
)

// StreamError reports a failed stream and how much content arrived first.
type StreamError struct {
	Partial int // characters of content received before the error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial > 0 {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", e.Partial, e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DECODER
// =============================================================================

// Stats counts what a Decoder has seen.
type Stats struct {
	Bytes    int64 // bytes read from the body
	Lines    int   // complete lines framed
	Payloads int   // data lines
	Events   int   // typed events returned
	Skipped  int   // well-formed payloads with nothing to act on
	Dropped  int   // malformed payloads
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger logs dropped payloads at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// WithReadSize sets the read buffer size.
func WithReadSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.buf = make([]byte, n)
		}
	}
}

// WithMaxLineBytes bounds how long a single line may grow.
func WithMaxLineBytes(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxLine = n
		}
	}
}

// Decoder turns a raw byte stream into a finite, non-restartable sequence of
// typed events. It keeps a carry-over buffer across reads because a read may
// end mid-line; the trailing partial segment is never emitted.
//
// Reaching the sentinel, reaching EOF, or failing closes the underlying
// reader if it implements io.Closer.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r       io.Reader
	buf     []byte
	carry   []byte
	lines   [][]byte
	maxLine int
	logger  *logging.Logger

	finished bool // no more events will be produced
	sentinel bool // finished because of [DONE]
	closed   bool
	err      error
	stats    Stats
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		r:       r,
		buf:     make([]byte, DefaultReadSize),
		maxLine: DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next typed event. It returns io.EOF once the stream has
// ended, either at the sentinel or at a natural close. Read failures are
// returned wrapped in ErrStreamRead; a cancelled ctx returns ctx.Err().
// After any non-nil error every later call returns the same error.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	if d.err != nil {
		return Event{}, d.err
	}
	for {
		payload, err := d.nextPayload(ctx)
		if err != nil {
			return Event{}, d.fail(err)
		}

		res := Parse(payload)
		switch res.Kind {
		case ResultEvent:
			d.stats.Events++
			return res.Event, nil
		case ResultSkip:
			d.stats.Skipped++
		case ResultError:
			d.stats.Dropped++
			d.logger.Debug("SSE_PAYLOAD_DROPPED", "error", res.Err, "bytes", len(payload))
		}
	}
}

// Terminated reports whether the stream ended with the sentinel rather than
// a natural close.
func (d *Decoder) Terminated() bool {
	return d.sentinel
}

// Stats returns counters for what has been decoded so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Close releases the underlying reader. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.finished = true
	if d.err == nil {
		d.err = ErrDecoderClosed
	}
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// fail records a terminal error and releases the reader.
func (d *Decoder) fail(err error) error {
	if d.err == nil {
		d.err = err
	}
	if !d.closed {
		d.closed = true
		d.finished = true
		if c, ok := d.r.(io.Closer); ok {
			c.Close()
		}
	}
	return d.err
}

// nextPayload returns the next data payload, trimmed.
func (d *Decoder) nextPayload(ctx context.Context) ([]byte, error) {
	for {
		for len(d.lines) > 0 {
			line := d.lines[0]
			d.lines = d.lines[1:]
			d.stats.Lines++

			line = bytes.TrimSuffix(line, []byte("\r"))
			if !bytes.HasPrefix(line, []byte(DataPrefix)) {
				continue
			}
			payload := bytes.TrimSpace(line[len(DataPrefix):])
			d.stats.Payloads++

			if string(payload) == DoneSentinel {
				d.sentinel = true
				d.finished = true
				d.lines = nil
				return nil, io.EOF
			}
			return payload, nil
		}

		if d.finished {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.fill(ctx); err != nil {
			return nil, err
		}
	}
}

// fill performs one read and frames any complete lines it produced.
func (d *Decoder) fill(ctx context.Context) error {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.stats.Bytes += int64(n)
		d.carry = append(d.carry, d.buf[:n]...)
		d.split()
		if len(d.carry) > d.maxLine {
			return ErrLineTooLong
		}
	}
	if err == nil {
		return nil
	}
	if err == io.EOF {
		// Complete lines already framed are still delivered; the
		// incomplete trailing segment is discarded.
		if len(d.carry) > 0 {
			d.logger.Debug("SSE_PARTIAL_LINE_DISCARDED", "bytes", len(d.carry))
			d.carry = nil
		}
		d.finished = true
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ErrStreamRead, err)
}

// split moves every complete line out of the carry buffer.
func (d *Decoder) split() {
	for {
		i := bytes.IndexByte(d.carry, '\n')
		if i < 0 {
			return
		}
		line := make([]byte, i)
		copy(line, d.carry[:i])
		d.lines = append(d.lines, line)
		d.carry = d.carry[i+1:]
	}
}
