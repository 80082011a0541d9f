// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat core.
//
// # Key Types
//
//   - Message: one conversational turn (user or assistant) with optional thinking steps
//   - ThinkingStep: a server-emitted progress disclosure unit
//   - Conversation: list-view summary of a past conversation
//   - CrewMember / CrewTransition: routed sub-agent persona and routing change
//   - KnowledgeBase / KBFile: knowledge-base management records
//   - Role: message role enumeration (user, assistant)
//
// # Usage
//
//	msg := model.NewUserMessage(id, "hello", time.Now())
//	steps := model.SortSteps(msg.ThinkingSteps)
package model
