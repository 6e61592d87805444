// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// model providers, and user preferences.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages are immutable once created except via full replacement carrying
// the same ID. Streaming responses are delivered as repeated replacements
// where Content is a growing prefix and ID is stable.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Attachments carried with the message (metadata only, no payload)
	Attachments []Attachment `json:"attachments,omitempty"`

	// IsError marks assistant messages that represent a failed request,
	// so the failure stays visible in conversation history.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewErrorMessage creates an assistant message flagged as an error.
func NewErrorMessage(content string) Message {
	msg := NewMessage(RoleAssistant, content)
	msg.IsError = true
	return msg
}

// WithContent returns a copy of the message carrying new content under the
// same ID and timestamp. Used by the streaming path to grow a message.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	return string(runes[:maxLen]) + "..."
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment holds metadata about a file attached to a message.
// Binary payloads are never stored here, only references.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"type"`
	URL       string `json:"url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	SizeBytes int64  `json:"size,omitempty"`
}

// NewAttachment creates an attachment with a generated ID.
func NewAttachment(name, mimeType string) Attachment {
	return Attachment{
		ID:       uuid.New().String(),
		Name:     name,
		MimeType: mimeType,
	}
}
