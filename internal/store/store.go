// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/kv"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/pubsub"
)

// =============================================================================
// ERRORS AND KEYS
// =============================================================================

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("store: conversation not found")

// ErrMessageNotFound is returned when a message id is unknown within
// a conversation.
var ErrMessageNotFound = errors.New("store: message not found")

const (
	// indexKey holds the comma-joined list of known conversation ids.
	indexKey = "conversation_ids"
	// recordPrefix namespaces per-conversation JSON records.
	recordPrefix = "conversation_"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations and publishes list snapshots on change.
// Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	kv  kv.Store
	log zerolog.Logger
	bus *pubsub.Broadcaster[[]model.Conversation]
}

// New creates a conversation store over the given backend.
func New(backend kv.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:  backend,
		log: log.With().Str("component", "store").Logger(),
		bus: pubsub.New[[]model.Conversation](),
	}
}

// Subscribe returns a channel receiving the conversation list, in
// creation order, after every successful mutation.
func (s *Store) Subscribe() (<-chan []model.Conversation, func()) {
	return s.bus.Subscribe()
}

// Close releases subscriber channels. The backend stays open.
func (s *Store) Close() {
	s.bus.Close()
}

// =============================================================================
// CRUD
// =============================================================================

// Create makes a new empty conversation, persists it, and registers it in
// the index.
func (s *Store) Create(title string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation(title)
	if err := s.writeRecord(conv); err != nil {
		return nil, err
	}
	ids := s.readIndex()
	ids = append(ids, conv.ID)
	if err := s.writeIndex(ids); err != nil {
		return nil, err
	}

	s.log.Info().Str("conversation", conv.ID).Msg("conversation created")
	s.publishLocked()
	return conv, nil
}

// Get loads a conversation by id.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecord(id)
}

// Save persists a conversation, adding it to the index if new. The
// persisted copy carries UpdatedAt set to the time of the write.
func (s *Store) Save(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("store: conversation must have an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.UpdatedAt = time.Now()
	if err := s.writeRecord(conv); err != nil {
		return err
	}
	ids := s.readIndex()
	known := false
	for _, id := range ids {
		if id == conv.ID {
			known = true
			break
		}
	}
	if !known {
		ids = append(ids, conv.ID)
		if err := s.writeIndex(ids); err != nil {
			return err
		}
	}
	s.publishLocked()
	return nil
}

// Delete removes a conversation and its index entry. Deleting an unknown
// id is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(recordPrefix + id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	ids := s.readIndex()
	kept := ids[:0]
	for _, known := range ids {
		if known != id {
			kept = append(kept, known)
		}
	}
	if err := s.writeIndex(kept); err != nil {
		return err
	}

	s.log.Info().Str("conversation", id).Msg("conversation deleted")
	s.publishLocked()
	return nil
}

// List returns all conversations in creation order. Corrupt records are
// skipped with a warning.
func (s *Store) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// ClearAll deletes every conversation and resets the index.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.readIndex() {
		if err := s.kv.Delete(recordPrefix + id); err != nil {
			return fmt.Errorf("clear conversation %s: %w", id, err)
		}
	}
	if err := s.writeIndex(nil); err != nil {
		return err
	}

	s.log.Info().Msg("all conversations cleared")
	s.publishLocked()
	return nil
}

// =============================================================================
// MESSAGE MUTATIONS
// =============================================================================

// AppendMessage appends a message to the conversation and persists it.
func (s *Store) AppendMessage(convID string, msg model.Message) error {
	return s.mutate(convID, func(conv *model.Conversation) error {
		conv.AddMessage(msg)
		return nil
	})
}

// ReplaceMessage replaces the message with the same id and persists the
// conversation. Used by streaming to swap in each larger snapshot.
func (s *Store) ReplaceMessage(convID string, msg model.Message) error {
	return s.mutate(convID, func(conv *model.Conversation) error {
		if !conv.ReplaceMessage(msg) {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, msg.ID)
		}
		return nil
	})
}

// RemoveMessage deletes a message by id and persists the conversation.
func (s *Store) RemoveMessage(convID, msgID string) error {
	return s.mutate(convID, func(conv *model.Conversation) error {
		if !conv.RemoveMessage(msgID) {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, msgID)
		}
		return nil
	})
}

// Rename sets a conversation title and persists it.
func (s *Store) Rename(convID, title string) error {
	return s.mutate(convID, func(conv *model.Conversation) error {
		conv.Title = title
		return nil
	})
}

// mutate loads, applies fn, stamps UpdatedAt, and writes back under the
// lock.
func (s *Store) mutate(convID string, fn func(*model.Conversation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.loadRecord(convID)
	if err != nil {
		return err
	}
	if err := fn(conv); err != nil {
		return err
	}
	conv.UpdatedAt = time.Now()
	if err := s.writeRecord(conv); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns conversations whose title or message content contains the
// query, case-insensitive. An empty query returns the full list.
func (s *Store) Search(query string) []model.Conversation {
	all := s.List()
	if query == "" {
		return all
	}
	q := strings.ToLower(query)
	var out []model.Conversation
	for _, conv := range all {
		if strings.Contains(strings.ToLower(conv.Title), q) {
			out = append(out, conv)
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), q) {
				out = append(out, conv)
				break
			}
		}
	}
	return out
}

// =============================================================================
// RECORD AND INDEX HELPERS
// =============================================================================

func (s *Store) loadRecord(id string) (*model.Conversation, error) {
	data, err := s.kv.Get(recordPrefix + id)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (s *Store) writeRecord(conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	if err := s.kv.Set(recordPrefix+conv.ID, data); err != nil {
		return fmt.Errorf("persist conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (s *Store) readIndex() []string {
	data, err := s.kv.Get(indexKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn().Err(err).Msg("index read failed, treating as empty")
		}
		return nil
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (s *Store) writeIndex(ids []string) error {
	if err := s.kv.Set(indexKey, []byte(strings.Join(ids, ","))); err != nil {
		return fmt.Errorf("persist conversation index: %w", err)
	}
	return nil
}

func (s *Store) listLocked() []model.Conversation {
	ids := s.readIndex()
	out := make([]model.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.loadRecord(id)
		if err != nil {
			// One bad record must not hide the rest.
			s.log.Warn().Err(err).Str("conversation", id).Msg("skipping unreadable conversation")
			continue
		}
		out = append(out, *conv)
	}
	return out
}

func (s *Store) publishLocked() {
	s.bus.Publish(s.listLocked())
}
