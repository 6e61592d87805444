// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/chat"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/prefs"
	"github.com/pjq/chatcat/internal/pubsub"
	"github.com/pjq/chatcat/internal/store"
)

// =============================================================================
// CHAT SERVICE INTERFACE
// =============================================================================

// ChatService is the part of the chat client the view-models depend on.
// *chat.Client satisfies it.
type ChatService interface {
	Configure(provider model.ModelProvider)
	Send(ctx context.Context, messages []model.Message, cfg model.ModelConfig) (model.Message, error)
	SendStream(ctx context.Context, messages []model.Message, cfg model.ModelConfig) (<-chan chat.Result, error)
	Cancel()
	IsAvailable(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
}

// ErrNotUserMessage is returned when resend is attempted on a message that
// did not come from the user.
var ErrNotUserMessage = errors.New("vm: only user messages can be resent")

// effectiveProvider resolves the provider the chat client should talk to:
// the active provider from preferences, with the global API key and base URL
// overriding the provider's own when set. Switching providers writes the
// provider's credentials into the global fields, so the two normally agree;
// a directly edited global key wins until the next switch.
func effectiveProvider(p *prefs.Store) model.ModelProvider {
	prov, _ := p.ActiveProvider()
	if key := p.APIKey(); key != "" {
		prov.APIKey = key
	}
	if url := p.APIBaseURL(); url != "" {
		prov.BaseURL = url
	}
	return prov
}

// =============================================================================
// CHAT UI STATE
// =============================================================================

// ChatUIState is the snapshot the chat screen renders from.
type ChatUIState struct {
	Conversations []model.Conversation
	Current       *model.Conversation
	IsLoading     bool
	IsStreaming   bool
	Error         string
}

// =============================================================================
// CHAT VIEW-MODEL
// =============================================================================

// ChatViewModel orchestrates the conversation list and message flow. All
// mutation goes through the conversation store so observers of either the
// store or the view-model see consistent history.
type ChatViewModel struct {
	mu        sync.Mutex
	currentID string
	loading   bool
	streaming bool
	lastError string

	convs *store.Store
	prefs *prefs.Store
	chat  ChatService
	log   zerolog.Logger
	bus   *pubsub.Broadcaster[ChatUIState]
}

// NewChatViewModel wires a view-model against its collaborators. All
// dependencies are injected; nothing here reaches for globals.
func NewChatViewModel(convs *store.Store, p *prefs.Store, svc ChatService, log zerolog.Logger) *ChatViewModel {
	return &ChatViewModel{
		convs: convs,
		prefs: p,
		chat:  svc,
		log:   log.With().Str("component", "chat_vm").Logger(),
		bus:   pubsub.New[ChatUIState](),
	}
}

// Subscribe returns a channel of UI state snapshots and a cancel func.
func (vm *ChatViewModel) Subscribe() (<-chan ChatUIState, func()) {
	return vm.bus.Subscribe()
}

// Close releases the state broadcaster.
func (vm *ChatViewModel) Close() {
	vm.bus.Close()
}

// State assembles the current snapshot.
func (vm *ChatViewModel) State() ChatUIState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stateLocked()
}

func (vm *ChatViewModel) stateLocked() ChatUIState {
	st := ChatUIState{
		Conversations: vm.convs.List(),
		IsLoading:     vm.loading,
		IsStreaming:   vm.streaming,
		Error:         vm.lastError,
	}
	if vm.currentID != "" {
		if conv, err := vm.convs.Get(vm.currentID); err == nil {
			st.Current = conv
		}
	}
	return st
}

func (vm *ChatViewModel) publish() {
	vm.mu.Lock()
	st := vm.stateLocked()
	vm.mu.Unlock()
	vm.bus.Publish(st)
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

// SelectConversation makes an existing conversation current.
func (vm *ChatViewModel) SelectConversation(id string) error {
	if _, err := vm.convs.Get(id); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.currentID = id
	vm.lastError = ""
	vm.mu.Unlock()
	vm.publish()
	return nil
}

// NewConversation creates an empty conversation seeded with the default
// model config from preferences and selects it.
func (vm *ChatViewModel) NewConversation() (*model.Conversation, error) {
	conv, err := vm.convs.Create("")
	if err != nil {
		return nil, err
	}
	conv.ModelConfig = vm.prefs.DefaultModelConfig()
	if err := vm.convs.Save(conv); err != nil {
		return nil, err
	}
	vm.mu.Lock()
	vm.currentID = conv.ID
	vm.mu.Unlock()
	vm.publish()
	return conv, nil
}

// DeleteConversation removes a conversation, clearing the selection if it
// was current.
func (vm *ChatViewModel) DeleteConversation(id string) error {
	if err := vm.convs.Delete(id); err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.currentID == id {
		vm.currentID = ""
	}
	vm.mu.Unlock()
	vm.publish()
	return nil
}

// UpdateTitle renames a conversation.
func (vm *ChatViewModel) UpdateTitle(id, title string) error {
	if err := vm.convs.Rename(id, title); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// Checkpoint re-saves the current conversation. Every mutation already
// writes through, so this exists for the periodic auto-save to repair a
// backend that failed a write in between.
func (vm *ChatViewModel) Checkpoint() error {
	vm.mu.Lock()
	id := vm.currentID
	vm.mu.Unlock()
	if id == "" {
		return nil
	}
	conv, err := vm.convs.Get(id)
	if err != nil {
		return err
	}
	return vm.convs.Save(conv)
}

// DeleteMessage removes a message from the current conversation.
func (vm *ChatViewModel) DeleteMessage(msgID string) error {
	vm.mu.Lock()
	id := vm.currentID
	vm.mu.Unlock()
	if id == "" {
		return store.ErrNotFound
	}
	if err := vm.convs.RemoveMessage(id, msgID); err != nil {
		return err
	}
	vm.publish()
	return nil
}

// =============================================================================
// SEND PIPELINE
// =============================================================================

// SendMessage appends the text as a user message and requests a completion
// from the active provider. Blank input is a no-op. The call blocks until
// the response (or stream) finishes; run it from a goroutine or tea.Cmd.
func (vm *ChatViewModel) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	convID, err := vm.ensureConversation(text)
	if err != nil {
		return err
	}
	if err := vm.convs.AppendMessage(convID, model.NewUserMessage(text)); err != nil {
		return err
	}

	vm.setFlags(true, false, "")

	prov := effectiveProvider(vm.prefs)
	vm.chat.Configure(prov)

	conv, err := vm.convs.Get(convID)
	if err != nil {
		vm.failRequest(convID, err)
		return err
	}

	// The provider's selected model is authoritative. Sync the conversation
	// config before sending so history records what was actually used.
	if m := prov.EffectiveModel(); conv.ModelConfig.Model != m {
		conv.ModelConfig.Model = m
		if err := vm.convs.Save(conv); err != nil {
			vm.log.Warn().Err(err).Str("conversation", convID).Msg("model sync not persisted")
		}
	}

	if conv.ModelConfig.Stream {
		return vm.sendStreaming(ctx, conv)
	}
	return vm.sendOnce(ctx, conv)
}

// ResendMessage re-sends a previous user message. The original stays in
// history; this is the only retry mechanism.
func (vm *ChatViewModel) ResendMessage(ctx context.Context, msg model.Message) error {
	if msg.Role != model.RoleUser {
		return ErrNotUserMessage
	}
	return vm.SendMessage(ctx, msg.Content)
}

// CancelRequest aborts any in-flight completion. Safe to call when idle.
func (vm *ChatViewModel) CancelRequest() {
	vm.chat.Cancel()
	vm.setFlags(false, false, "")
}

// ensureConversation returns the current conversation id, creating one
// titled from the message text when nothing is selected.
func (vm *ChatViewModel) ensureConversation(text string) (string, error) {
	vm.mu.Lock()
	id := vm.currentID
	vm.mu.Unlock()
	if id != "" {
		if _, err := vm.convs.Get(id); err == nil {
			return id, nil
		}
	}

	conv, err := vm.convs.Create(model.TitleFromContent(text))
	if err != nil {
		return "", err
	}
	conv.ModelConfig = vm.prefs.DefaultModelConfig()
	if err := vm.convs.Save(conv); err != nil {
		return "", err
	}
	vm.mu.Lock()
	vm.currentID = conv.ID
	vm.mu.Unlock()
	return conv.ID, nil
}

func (vm *ChatViewModel) sendOnce(ctx context.Context, conv *model.Conversation) error {
	msg, err := vm.chat.Send(ctx, conv.Messages, conv.ModelConfig)
	if err != nil {
		vm.failRequest(conv.ID, err)
		return err
	}
	if err := vm.convs.AppendMessage(conv.ID, msg); err != nil {
		vm.failRequest(conv.ID, err)
		return err
	}
	vm.setFlags(false, false, "")
	return nil
}

func (vm *ChatViewModel) sendStreaming(ctx context.Context, conv *model.Conversation) error {
	results, err := vm.chat.SendStream(ctx, conv.Messages, conv.ModelConfig)
	if err != nil {
		vm.failRequest(conv.ID, err)
		return err
	}
	vm.setFlags(true, true, "")

	// Each result repeats the whole buffer under one stable id: append the
	// first snapshot, replace on every later one. Each replacement is
	// persisted, so a cancel mid-stream keeps the partial content.
	appended := false
	for res := range results {
		if res.Err != nil {
			vm.failRequest(conv.ID, res.Err)
			return res.Err
		}
		if res.Message.Content == "" && !appended {
			continue
		}
		if !appended {
			if err := vm.convs.AppendMessage(conv.ID, res.Message); err != nil {
				vm.chat.Cancel()
				vm.failRequest(conv.ID, err)
				return err
			}
			appended = true
		} else if err := vm.convs.ReplaceMessage(conv.ID, res.Message); err != nil {
			vm.chat.Cancel()
			vm.failRequest(conv.ID, err)
			return err
		}
		vm.publish()
		if res.Done {
			break
		}
	}

	vm.setFlags(false, false, "")
	return nil
}

// failRequest records a failed completion: the error becomes a visible
// assistant message in history and the loading flags clear.
func (vm *ChatViewModel) failRequest(convID string, err error) {
	if aerr := vm.convs.AppendMessage(convID, model.NewErrorMessage(err.Error())); aerr != nil {
		vm.log.Error().Err(aerr).Str("conversation", convID).Msg("error message not persisted")
	}
	vm.setFlags(false, false, err.Error())
}

func (vm *ChatViewModel) setFlags(loading, streaming bool, errMsg string) {
	vm.mu.Lock()
	vm.loading = loading
	vm.streaming = streaming
	vm.lastError = errMsg
	vm.mu.Unlock()
	vm.publish()
}
