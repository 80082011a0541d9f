// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/localstore"
	"github.com/jeranaias/crewchat/internal/logging"
	"github.com/jeranaias/crewchat/internal/util"
)

// ErrNotToggleable is returned when the profile does not let the user
// change the knowledge-base setting.
var ErrNotToggleable = errors.New("knowledge base setting is not user-editable for this agent")

// =============================================================================
// CONTEXT
// =============================================================================

// Context bundles everything one agent session depends on. It is built once
// and handed to each component's constructor; nothing in the core reads
// package-level state.
type Context struct {
	Config  *config.Config
	Profile config.AgentProfile
	Scope   *localstore.Scope
	API     *api.Client
	Logger  *logging.Logger
	NewID   util.IDFunc

	mu     sync.RWMutex
	userID string
}

// Options configure NewContext. Config and Store are required.
type Options struct {
	Config *config.Config
	// Profile defaults to Config.ActiveProfile().
	Profile *config.AgentProfile
	Store   localstore.Store
	// API defaults to a client built from Config for the profile.
	API    *api.Client
	Logger *logging.Logger
	NewID  util.IDFunc
}

// NewContext assembles a session context. The user id is read from the
// store; call EnsureUser to provision one.
func NewContext(o Options) *Context {
	profile := o.Config.ActiveProfile()
	if o.Profile != nil {
		profile = o.Profile.Clone()
	}
	c := &Context{
		Config:  o.Config,
		Profile: profile,
		Scope:   localstore.NewScope(o.Store, profile.StoragePrefix, o.Logger),
		API:     o.API,
		Logger:  o.Logger,
		NewID:   o.NewID,
	}
	if c.API == nil {
		c.API = api.NewClientWithConfig(o.Config.APIConfig(profile, o.Logger))
	}
	if c.NewID == nil {
		c.NewID = util.NewID
	}
	c.userID = c.Scope.GetString(localstore.KeyUserID)
	return c
}

// AgentName is the name sent to the server.
func (c *Context) AgentName() string {
	return c.Profile.AgentName
}

// UserID returns the provisioned user id, or "".
func (c *Context) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// EnsureUser returns the stored user id, creating one on the server when
// none is stored. Provisioning failures are logged and yield "".
func (c *Context) EnsureUser(ctx context.Context) string {
	if id := c.UserID(); id != "" {
		return id
	}

	user, err := c.API.CreateUser(ctx)
	if err != nil {
		c.Logger.Warn("USER_PROVISION_FAILED", "agent", c.AgentName(), "error", err)
		return ""
	}

	c.mu.Lock()
	c.userID = user.UserID
	c.mu.Unlock()
	c.Scope.SetString(localstore.KeyUserID, user.UserID)
	c.Logger.Info("USER_PROVISIONED", "user", user.UserID)
	return user.UserID
}

// UseKnowledgeBase reports whether turns should search the knowledge base.
// Profiles without one always report false. A config override wins over
// the stored preference, which defaults to the profile feature flag.
func (c *Context) UseKnowledgeBase() bool {
	if !c.Profile.Features.HasKnowledgeBase {
		return false
	}
	if c.Config.UseKnowledgeBase != nil {
		return *c.Config.UseKnowledgeBase
	}
	if !c.Profile.Features.KBToggleable {
		return true
	}
	return c.Scope.GetBool(localstore.KeyUseKnowledgeBase, true)
}

// SetUseKnowledgeBase stores the preference.
func (c *Context) SetUseKnowledgeBase(v bool) error {
	if !c.Profile.Features.HasKnowledgeBase || !c.Profile.Features.KBToggleable {
		return ErrNotToggleable
	}
	if !c.Scope.SetBool(localstore.KeyUseKnowledgeBase, v) {
		return errors.New("failed to save knowledge base setting")
	}
	return nil
}
