// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/model"
	"github.com/jeranaias/crewchat/internal/util"
)

// ErrNoUser is returned when an operation needs a user identity that has not
// been provisioned yet.
var ErrNoUser = errors.New("no user identity")

// Backend is the subset of the API client the coordinator needs.
type Backend interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, error)
	ListConversations(ctx context.Context, userID, agentName string) ([]model.Conversation, error)
	UpdateTitle(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Deps are the coordinator's collaborators.
type Deps struct {
	API       Backend
	Scope     *localstore.Scope
	AgentName string

	// UserID returns the provisioned user id, or "" before provisioning.
	UserID func() string

	NewID  util.IDFunc
	Logger *logging.Logger

	// RefreshMinInterval throttles automatic post-turn refreshes.
	// Zero disables throttling.
	RefreshMinInterval time.Duration
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator owns the active conversation id and the conversation list.
type Coordinator struct {
	api       Backend
	scope     *localstore.Scope
	agentName string
	userID    func() string
	newID     util.IDFunc
	log       *logging.Logger
	limiter   *rate.Limiter

	mu             sync.RWMutex
	conversationID string
	conversations  []model.Conversation
	loading        bool
	lastErr        string
	lastCount      int

	subMu sync.Mutex
	subs  []func([]model.Conversation)

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator and guarantees an active id exists:
// the stored one if present, otherwise a freshly minted and persisted one.
func NewCoordinator(d Deps) *Coordinator {
	c := &Coordinator{
		api:       d.API,
		scope:     d.Scope,
		agentName: d.AgentName,
		userID:    d.UserID,
		newID:     d.NewID,
		log:       d.Logger,
	}
	if c.userID == nil {
		c.userID = func() string { return "" }
	}
	if c.newID == nil {
		c.newID = util.NewID
	}
	if d.RefreshMinInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(d.RefreshMinInterval), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	c.conversationID = c.scope.GetString(localstore.KeyConversationID)
	if c.conversationID == "" {
		c.conversationID = c.newID()
		c.scope.SetString(localstore.KeyConversationID, c.conversationID)
		c.log.Debug("CONVERSATION_MINTED", "id", c.conversationID)
	}
	return c
}

// ConversationID returns the active conversation id.
func (c *Coordinator) ConversationID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conversationID
}

// Conversations returns a copy of the conversation list.
func (c *Coordinator) Conversations() []model.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Loading reports whether a list fetch is in progress.
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastError returns the last list fetch failure, or "".
func (c *Coordinator) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Subscribe registers fn for list changes.
func (c *Coordinator) Subscribe(fn func([]model.Conversation)) {
	c.subMu.Lock()
	c.subs = append(c.subs, fn)
	c.subMu.Unlock()
}

func (c *Coordinator) notify() {
	list := c.Conversations()
	c.subMu.Lock()
	subs := append([]func([]model.Conversation){}, c.subs...)
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(list)
	}
}

func (c *Coordinator) setActive(id string) {
	c.mu.Lock()
	c.conversationID = id
	c.lastCount = 0
	c.mu.Unlock()
	c.scope.SetString(localstore.KeyConversationID, id)
}

// =============================================================================
// NAVIGATION
// =============================================================================

// CreateNewChat mints an id, persists it as active and returns it.
func (c *Coordinator) CreateNewChat() string {
	id := c.newID()
	c.setActive(id)
	c.log.Info("CONVERSATION_NEW", "id", id)
	return id
}

// SwitchToChat makes id active, then fetches its history. The id stays
// active even if the fetch fails; the error is returned with no messages.
func (c *Coordinator) SwitchToChat(ctx context.Context, id string) ([]model.Message, error) {
	c.setActive(id)
	c.log.Info("CONVERSATION_SWITCH", "id", id)

	msgs, err := c.api.GetHistory(ctx, id)
	if err != nil {
		c.log.Warn("HISTORY_LOAD_FAILED", "id", id, "error", err)
		return []model.Message{}, err
	}
	return msgs, nil
}

// DeleteChat deletes id remotely, then drops it from the list. Deleting the
// active conversation mints a replacement. Returns the active id afterwards.
// On remote failure nothing local changes.
func (c *Coordinator) DeleteChat(ctx context.Context, id string) (string, error) {
	if err := c.api.DeleteConversation(ctx, id); err != nil {
		c.log.Warn("CONVERSATION_DELETE_FAILED", "id", id, "error", err)
		return c.ConversationID(), err
	}

	c.mu.Lock()
	kept := c.conversations[:0:0]
	for _, cv := range c.conversations {
		if cv.ID != id {
			kept = append(kept, cv)
		}
	}
	c.conversations = kept
	wasActive := c.conversationID == id
	c.mu.Unlock()

	active := c.ConversationID()
	if wasActive {
		active = c.CreateNewChat()
	}
	c.notify()
	return active, nil
}

// UpdateTitle renames id remotely and in the local list.
func (c *Coordinator) UpdateTitle(ctx context.Context, id, title string) error {
	if err := c.api.UpdateTitle(ctx, id, title); err != nil {
		c.log.Warn("CONVERSATION_RENAME_FAILED", "id", id, "error", err)
		return err
	}

	c.mu.Lock()
	if i := model.FindConversation(c.conversations, id); i >= 0 {
		c.conversations[i].Title = title
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// =============================================================================
// LIST REFRESH
// =============================================================================

// LoadConversations fetches the list for the current user and agent.
// Without a user identity it does nothing.
func (c *Coordinator) LoadConversations(ctx context.Context) error {
	userID := c.userID()
	if userID == "" {
		c.log.Debug("CONVERSATIONS_SKIPPED", "reason", ErrNoUser)
		return nil
	}

	c.mu.Lock()
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()

	convs, err := c.api.ListConversations(ctx, userID, c.agentName)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.log.Warn("CONVERSATIONS_LOAD_FAILED", "agent", c.agentName, "error", err)
		return err
	}
	model.SortConversations(convs)
	c.conversations = convs
	c.mu.Unlock()

	c.log.Debug("CONVERSATIONS_LOADED", "count", len(convs))
	c.notify()
	return nil
}

// ObserveMessages feeds the chat view's message count and loading flag.
// When no turn is loading and the count has grown since the last idle
// observation, a background refresh is started (subject to throttling).
// It reports whether one was started.
func (c *Coordinator) ObserveMessages(ctx context.Context, count int, loading bool) bool {
	if loading {
		return false
	}
	c.mu.Lock()
	grew := count > c.lastCount
	c.lastCount = count
	c.mu.Unlock()

	if !grew {
		return false
	}
	if !c.limiter.Allow() {
		c.log.Debug("CONVERSATIONS_REFRESH_THROTTLED")
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.LoadConversations(ctx)
	}()
	return true
}

// Wait blocks until background refreshes finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
