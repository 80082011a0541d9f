// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/chat"
	"github.com/jeranaias/crewchat/internal/dispatch"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/sse"
	"github.com/jeranaias/crewchat/internal/util"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Streamer opens a turn's event stream.
type Streamer interface {
	OpenStream(ctx context.Context, r api.StreamRequest) (io.ReadCloser, error)
}

// Conversations is the coordinator surface a turn needs.
type Conversations interface {
	ConversationID() string
	ObserveMessages(ctx context.Context, count int, loading bool) bool
}

// Crew is the overlay surface a turn needs.
type Crew interface {
	Override() string
	CurrentName() string
	SetCurrent(m model.CrewMember)
	ApplyTransition(t model.CrewTransition) bool
}

// Deps are the Sender's collaborators.
type Deps struct {
	Stream        Streamer
	Machine       *chat.Machine
	Conversations Conversations
	Crew          Crew // optional

	AgentName        string
	UserID           func() string // optional
	UseKnowledgeBase func() bool   // optional

	// FallbackPhrases are canned progress phrase sets, shown only while a
	// turn is thinking and no server step has arrived.
	FallbackPhrases  [][]string
	FallbackInterval time.Duration

	// StallTimeout fails a turn whose stream sends nothing for this long.
	StallTimeout time.Duration

	// MaxPayloadBytes bounds a single stream line.
	MaxPayloadBytes int

	Logger *logging.Logger
	NewID  util.IDFunc
	Intn   func(n int) int
}

// Result describes a finished turn.
type Result struct {
	TurnID         string
	ConversationID string
	SawContent     bool
	ContentChars   int
	Steps          int
	Terminated     bool // ended with the sentinel rather than a close
	Duration       time.Duration
	Stream         sse.Stats
}

// =============================================================================
// SENDER
// =============================================================================

// Sender runs turns against one chat machine, one at a time.
type Sender struct {
	d Deps

	mu       sync.Mutex
	inFlight bool
	cancel   context.CancelCauseFunc
}

// New creates a Sender.
func New(d Deps) *Sender {
	if d.NewID == nil {
		d.NewID = util.NewID
	}
	if d.Intn == nil {
		d.Intn = rand.IntN
	}
	if d.UserID == nil {
		d.UserID = func() string { return "" }
	}
	if d.UseKnowledgeBase == nil {
		d.UseKnowledgeBase = func() bool { return false }
	}
	return &Sender{d: d}
}

// InFlight reports whether a turn is running.
func (s *Sender) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Cancel stops the in-flight turn, which then fails with "request cancelled".
// It reports whether a turn was running.
func (s *Sender) Cancel() bool {
	return s.stop(ErrCanceled)
}

// Abandon tears down the in-flight turn without touching chat state. Call it
// before switching or resetting the conversation.
func (s *Sender) Abandon() bool {
	return s.stop(ErrTurnAbandoned)
}

func (s *Sender) stop(cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFlight || s.cancel == nil {
		return false
	}
	s.cancel(cause)
	return true
}

func (s *Sender) begin(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight || s.d.Machine.IsLoading() {
		return nil, ErrTurnInFlight
	}
	ctx, cancel := context.WithCancelCause(parent)
	s.inFlight = true
	s.cancel = cancel
	return ctx, nil
}

func (s *Sender) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(context.Canceled)
	}
	s.inFlight = false
	s.cancel = nil
}

// current reports whether the turn's conversation is still the one shown.
func (s *Sender) current(conversationID string) bool {
	return s.d.Machine.ConversationID() == conversationID &&
		s.d.Conversations.ConversationID() == conversationID
}

// =============================================================================
// SEND
// =============================================================================

// Send runs one turn. It returns after the stream has ended and the chat
// machine has been sealed or failed. Transport and server failures are
// surfaced in the chat state and also returned.
func (s *Sender) Send(ctx context.Context, text string) (Result, error) {
	text = util.NormalizeText(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	turnCtx, err := s.begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer s.end()

	res := Result{TurnID: s.d.NewID(), ConversationID: s.d.Machine.ConversationID()}
	if !s.current(res.ConversationID) {
		return res, ErrTurnAbandoned
	}
	if _, err := s.d.Machine.Submit(text); err != nil {
		return res, ErrTurnInFlight
	}

	start := time.Now()
	override := s.crewOverride()
	s.d.Logger.Info("TURN_START", "turn", res.TurnID, "conversation", res.ConversationID,
		"agent", s.d.AgentName, "override", override, "chars", len(text))

	stopFallback := s.startFallback(turnCtx, res.ConversationID)
	defer stopFallback()

	err = s.run(turnCtx, text, override, stopFallback, &res)
	res.Duration = time.Since(start)

	switch {
	case errors.Is(err, ErrTurnAbandoned):
		s.d.Logger.Info("TURN_ABANDONED", "turn", res.TurnID, "conversation", res.ConversationID)
	case err != nil:
		s.d.Logger.Warn("TURN_FAILED", "turn", res.TurnID, "error", err, "chars", res.ContentChars)
	default:
		s.d.Logger.Info("TURN_COMPLETE", "turn", res.TurnID, "steps", res.Steps,
			"chars", res.ContentChars, "bytes", res.Stream.Bytes, "dropped", res.Stream.Dropped,
			"duration", res.Duration.Round(time.Millisecond))
		st := s.d.Machine.State()
		s.d.Conversations.ObserveMessages(context.WithoutCancel(ctx), len(st.Messages), st.IsLoading)
	}
	return res, err
}

// run opens the stream and drives it to a terminal condition.
func (s *Sender) run(ctx context.Context, text, override string, stopFallback func(), res *Result) error {
	var cancelTurn context.CancelCauseFunc
	s.mu.Lock()
	cancelTurn = s.cancel
	s.mu.Unlock()

	wd := newWatchdog(s.d.StallTimeout, func() { cancelTurn(ErrStalled) })
	defer wd.stop()

	body, err := s.d.Stream.OpenStream(ctx, api.StreamRequest{
		Message:            text,
		ConversationID:     res.ConversationID,
		UseKnowledgeBase:   s.d.UseKnowledgeBase(),
		UserID:             s.d.UserID(),
		AgentName:          s.d.AgentName,
		OverrideCrewMember: override,
	})
	if err != nil {
		return s.fail(ctx, res, err)
	}
	wd.touch()

	// A blocked Read does not observe ctx; closing the body unblocks it.
	stopClose := context.AfterFunc(ctx, func() { body.Close() })
	defer stopClose()

	opts := []sse.Option{sse.WithLogger(s.d.Logger)}
	if s.d.MaxPayloadBytes > 0 {
		opts = append(opts, sse.WithMaxLineBytes(s.d.MaxPayloadBytes))
	}
	dec := sse.NewDecoder(&activityReader{rc: body, w: wd}, opts...)
	defer dec.Close()

	m := s.d.Machine
	var serverErr string
	disp := dispatch.New(dispatch.Handlers{
		OnThinkingStep: func(step model.ThinkingStep) {
			stopFallback()
			m.ReceiveStep(step)
		},
		OnThinkingComplete: m.CompleteThinking,
		OnFirstChunk: func() {
			stopFallback()
			m.FirstChunk(s.crewName())
		},
		OnChunk: m.AppendChunk,
		OnError: func(message string) {
			serverErr = message
		},
		OnCrewInfo: func(member model.CrewMember) {
			if s.d.Crew != nil {
				s.d.Crew.SetCurrent(member)
			}
			m.TagCrew(member.Name)
		},
		OnCrewTransition: func(t model.CrewTransition) {
			if s.d.Crew != nil && s.d.Crew.ApplyTransition(t) {
				m.TagCrew(t.To)
			}
		},
		OnComplete: func(bool) {
			m.Complete()
		},
	})
	defer func() {
		res.SawContent = disp.SawContent()
		res.ContentChars = disp.ContentChars()
		res.Steps = disp.StepCount()
		res.Terminated = dec.Terminated()
		res.Stream = dec.Stats()
	}()

	for {
		ev, err := dec.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			disp.Abort()
			return s.fail(ctx, res, &sse.StreamError{Partial: disp.ContentChars(), Err: err})
		}

		if !s.current(res.ConversationID) {
			disp.Abort()
			cancelTurn(ErrTurnAbandoned)
			s.d.Logger.Debug("TURN_EVENT_DISCARDED", "turn", res.TurnID, "kind", ev.Kind)
			return ErrTurnAbandoned
		}

		if disp.Dispatch(ev) {
			break
		}
	}

	if !s.current(res.ConversationID) {
		disp.Abort()
		return ErrTurnAbandoned
	}
	if serverErr != "" {
		m.Fail(serverErr)
		return fmt.Errorf("%w: %s", ErrServer, serverErr)
	}
	// A body closed by cancellation can read as a clean EOF.
	if !dec.Terminated() && ctx.Err() != nil {
		disp.Abort()
		return s.fail(ctx, res, ctx.Err())
	}
	disp.Finish()
	return nil
}

// fail converts a transport failure into the turn's surfaced error.
func (s *Sender) fail(ctx context.Context, res *Result, err error) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrTurnAbandoned):
		return ErrTurnAbandoned
	case errors.Is(cause, ErrStalled):
		err = fmt.Errorf("%w: %w", ErrStalled, err)
	case errors.Is(cause, ErrCanceled), errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		if cause != nil {
			err = fmt.Errorf("%w: %w", ErrCanceled, cause)
		}
	}

	if !s.current(res.ConversationID) {
		return ErrTurnAbandoned
	}
	s.d.Machine.Fail(surfaceMessage(err))
	return err
}

// surfaceMessage picks the user-facing text for a failure.
func surfaceMessage(err error) string {
	switch {
	case errors.Is(err, ErrStalled):
		return ErrStalled.Error()
	case errors.Is(err, ErrCanceled):
		return ErrCanceled.Error()
	}
	var ce *api.ClientError
	if errors.As(err, &ce) {
		if ce.Type == api.ErrTypeCanceled {
			return ErrCanceled.Error()
		}
		return ce.Error()
	}
	var se *sse.StreamError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

func (s *Sender) crewOverride() string {
	if s.d.Crew == nil {
		return ""
	}
	return s.d.Crew.Override()
}

func (s *Sender) crewName() string {
	if s.d.Crew == nil {
		return ""
	}
	return s.d.Crew.CurrentName()
}

// =============================================================================
// THINKING FALLBACK
// =============================================================================

// startFallback cycles one randomly chosen phrase set while the turn is
// thinking without server steps. The returned func stops it and waits; it is
// safe to call more than once.
func (s *Sender) startFallback(ctx context.Context, conversationID string) func() {
	if s.d.FallbackInterval <= 0 || len(s.d.FallbackPhrases) == 0 {
		return func() {}
	}
	phrases := s.d.FallbackPhrases[s.d.Intn(len(s.d.FallbackPhrases))]
	if len(phrases) == 0 {
		return func() {}
	}

	done := make(chan struct{})
	var once sync.Once
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.d.FallbackInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			if s.current(conversationID) {
				s.d.Machine.ShowPlaceholder(phrases[i%len(phrases)])
			}
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
		wg.Wait()
	}
}
