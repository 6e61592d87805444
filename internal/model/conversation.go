// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTitleLen is the maximum length of an auto-generated conversation title.
// Longer titles are truncated and suffixed with an ellipsis.
const MaxTitleLen = 30

// =============================================================================
// MODEL CONFIG
// =============================================================================

// ModelConfig holds per-conversation generation parameters.
// Conversations default this from the preference store's default config at
// creation time but mutate it independently afterwards.
type ModelConfig struct {
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"maxTokens"`
	TopP             float64 `json:"topP"`
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	PresencePenalty  float64 `json:"presencePenalty"`
	Stream           bool    `json:"stream"`
}

// DefaultModelConfig returns the default generation parameters.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:            "gpt-4o",
		Temperature:      0.7,
		MaxTokens:        2000,
		TopP:             1.0,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		Stream:           true,
	}
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
//
// Invariant: UpdatedAt >= CreatedAt. Every mutation that changes Messages
// bumps UpdatedAt.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages in insertion order
	Messages []Message `json:"messages"`

	// Model configuration for this conversation
	ModelConfig ModelConfig `json:"model_config"`
}

// NewConversation creates a new conversation with a generated ID,
// empty message list, and timestamps set to now.
func NewConversation(title string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:          uuid.New().String(),
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    make([]Message, 0),
		ModelConfig: DefaultModelConfig(),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the conversation and bumps UpdatedAt.
func (c *Conversation) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// ReplaceMessage replaces the message with the same ID.
// Returns false if no message with that ID exists.
func (c *Conversation) ReplaceMessage(msg Message) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == msg.ID {
			c.Messages[i] = msg
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// RemoveMessage removes a message by ID.
// Returns false if no message with that ID exists.
func (c *Conversation) RemoveMessage(id string) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// GetMessageByID returns a pointer to the message with the given ID,
// or nil if not found.
func (c *Conversation) GetMessageByID(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// TitleFromContent derives a conversation title from message content.
// Content longer than MaxTitleLen runes is truncated with an ellipsis.
func TitleFromContent(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) > MaxTitleLen {
		return string(runes[:MaxTitleLen]) + "..."
	}
	return content
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// Preview returns a short preview from the first user message.
// Returns empty string if no user messages exist.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(80)
		}
	}
	return ""
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown exports the conversation as a Markdown formatted string.
// Includes conversation metadata, timestamps, and all messages with role labels.
func (c *Conversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + c.GetTitle() + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports the conversation as a pretty-printed JSON byte array.
func (c *Conversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
