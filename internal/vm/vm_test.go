// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pjq/chatcat/internal/chat"
	"github.com/pjq/chatcat/internal/kv"
	"github.com/pjq/chatcat/internal/logging"
	"github.com/pjq/chatcat/internal/model"
	"github.com/pjq/chatcat/internal/prefs"
	"github.com/pjq/chatcat/internal/store"
)

// =============================================================================
// FAKE CHAT SERVICE
// =============================================================================

type fakeChat struct {
	mu         sync.Mutex
	provider   model.ModelProvider
	configures int
	cancels    int

	sendMsg   model.Message
	sendErr   error
	stream    []chat.Result
	streamErr error
	lastCfg   model.ModelConfig

	models    []string
	modelsErr error
	available bool
}

func (f *fakeChat) Configure(p model.ModelProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provider = p
	f.configures++
}

func (f *fakeChat) Send(_ context.Context, _ []model.Message, cfg model.ModelConfig) (model.Message, error) {
	f.mu.Lock()
	f.lastCfg = cfg
	f.mu.Unlock()
	return f.sendMsg, f.sendErr
}

func (f *fakeChat) SendStream(_ context.Context, _ []model.Message, cfg model.ModelConfig) (<-chan chat.Result, error) {
	f.mu.Lock()
	f.lastCfg = cfg
	f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan chat.Result, len(f.stream))
	for _, r := range f.stream {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func (f *fakeChat) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeChat) IsAvailable(_ context.Context) bool {
	return f.available
}

func (f *fakeChat) ListModels(_ context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

func newFixture(t *testing.T) (*fakeChat, *prefs.Store, *store.Store) {
	t.Helper()
	fc := &fakeChat{available: true}
	p := prefs.New(kv.NewMemory(), logging.Nop())
	cs := store.New(kv.NewMemory(), logging.Nop())
	t.Cleanup(func() {
		p.Close()
		cs.Close()
	})
	return fc, p, cs
}

// =============================================================================
// CHAT VIEW-MODEL
// =============================================================================

func TestSendMessageBlankIsNoOp(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "   \n "); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if got := len(cs.List()); got != 0 {
		t.Errorf("expected no conversation, got %d", got)
	}
	if fc.configures != 0 {
		t.Errorf("chat client configured %d times for a blank send", fc.configures)
	}
}

func TestSendMessageStreamingReplacesByID(t *testing.T) {
	fc, p, cs := newFixture(t)
	snap := model.NewAssistantMessage("Hel")
	fc.stream = []chat.Result{
		{Message: snap},
		{Message: snap.WithContent("Hello")},
		{Message: snap.WithContent("Hello"), Done: true},
	}
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	st := vm.State()
	if st.Current == nil {
		t.Fatal("no current conversation after send")
	}
	if got := len(st.Current.Messages); got != 2 {
		t.Fatalf("expected user + assistant messages, got %d", got)
	}
	last := st.Current.Messages[1]
	if last.ID != snap.ID {
		t.Errorf("assistant message id = %q, want stable id %q", last.ID, snap.ID)
	}
	if last.Content != "Hello" {
		t.Errorf("assistant content = %q, want %q", last.Content, "Hello")
	}
	if st.IsLoading || st.IsStreaming {
		t.Errorf("flags not cleared: loading=%v streaming=%v", st.IsLoading, st.IsStreaming)
	}
}

func TestSendMessageCreatesTitledConversation(t *testing.T) {
	fc, p, cs := newFixture(t)
	snap := model.NewAssistantMessage("ok")
	fc.stream = []chat.Result{{Message: snap}, {Message: snap, Done: true}}
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	text := "Explain recursion in programming to me please"
	if err := vm.SendMessage(context.Background(), text); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	st := vm.State()
	if st.Current == nil {
		t.Fatal("no conversation created")
	}
	want := model.TitleFromContent(text)
	if st.Current.Title != want {
		t.Errorf("title = %q, want %q", st.Current.Title, want)
	}
	if !strings.HasSuffix(st.Current.Title, "...") {
		t.Errorf("long title not truncated with ellipsis: %q", st.Current.Title)
	}
}

func TestSendMessageSyncsModelFromProvider(t *testing.T) {
	fc, p, cs := newFixture(t)
	prov, _ := p.ActiveProvider()
	prov.SelectedModel = "gpt-4"
	if err := p.UpsertProvider(prov); err != nil {
		t.Fatalf("UpsertProvider: %v", err)
	}
	snap := model.NewAssistantMessage("ok")
	fc.stream = []chat.Result{{Message: snap}, {Message: snap, Done: true}}
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if fc.lastCfg.Model != "gpt-4" {
		t.Errorf("request model = %q, want provider's %q", fc.lastCfg.Model, "gpt-4")
	}
	st := vm.State()
	if st.Current.ModelConfig.Model != "gpt-4" {
		t.Errorf("conversation model = %q, want synced %q", st.Current.ModelConfig.Model, "gpt-4")
	}
}

func TestSendMessageStreamFailureAppendsErrorMessage(t *testing.T) {
	fc, p, cs := newFixture(t)
	snap := model.NewAssistantMessage("par")
	fc.stream = []chat.Result{
		{Message: snap},
		{Message: snap.WithContent("par"), Err: errors.New("connection reset")},
	}
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "hi"); err == nil {
		t.Fatal("expected stream error to propagate")
	}

	st := vm.State()
	msgs := st.Current.Messages
	last := msgs[len(msgs)-1]
	if !last.IsError {
		t.Error("last message should be flagged as an error")
	}
	if !strings.Contains(last.Content, "connection reset") {
		t.Errorf("error message content = %q, want failure reason", last.Content)
	}
	// the partial assistant content stays in history
	found := false
	for _, m := range msgs {
		if m.ID == snap.ID && m.Content == "par" {
			found = true
		}
	}
	if !found {
		t.Error("partial assistant content was lost")
	}
	if st.IsLoading || st.IsStreaming {
		t.Error("flags not cleared after failure")
	}
}

func TestSendMessageMissingKeyFailsVisibly(t *testing.T) {
	fc, p, cs := newFixture(t)
	fc.streamErr = chat.ErrNoAPIKey
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "hi"); !errors.Is(err, chat.ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
	st := vm.State()
	last := st.Current.Messages[len(st.Current.Messages)-1]
	if !last.IsError || last.Content != "API key is not set" {
		t.Errorf("missing-key failure not visible in history: %+v", last)
	}
}

func TestSendMessageNonStreaming(t *testing.T) {
	fc, p, cs := newFixture(t)
	cfg := p.DefaultModelConfig()
	cfg.Stream = false
	if err := p.SetDefaultModelConfig(cfg); err != nil {
		t.Fatalf("SetDefaultModelConfig: %v", err)
	}
	fc.sendMsg = model.NewAssistantMessage("pong")
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SendMessage(context.Background(), "ping"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	st := vm.State()
	if got := len(st.Current.Messages); got != 2 {
		t.Fatalf("expected 2 messages, got %d", got)
	}
	if st.Current.Messages[1].Content != "pong" {
		t.Errorf("assistant content = %q", st.Current.Messages[1].Content)
	}
}

func TestResendMessageRejectsNonUser(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	err := vm.ResendMessage(context.Background(), model.NewAssistantMessage("nope"))
	if !errors.Is(err, ErrNotUserMessage) {
		t.Errorf("err = %v, want ErrNotUserMessage", err)
	}
}

func TestCancelRequestClearsFlags(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	vm.CancelRequest()
	vm.CancelRequest()
	if fc.cancels != 2 {
		t.Errorf("cancel forwarded %d times, want 2", fc.cancels)
	}
	st := vm.State()
	if st.IsLoading || st.IsStreaming {
		t.Error("flags set after cancel")
	}
}

func TestSelectAndDeleteConversation(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	first, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	second, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}

	if err := vm.SelectConversation(first.ID); err != nil {
		t.Fatalf("SelectConversation: %v", err)
	}
	if st := vm.State(); st.Current == nil || st.Current.ID != first.ID {
		t.Fatal("selection did not take")
	}

	if err := vm.DeleteConversation(first.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	st := vm.State()
	if st.Current != nil {
		t.Error("deleted conversation still current")
	}
	if got := len(st.Conversations); got != 1 {
		t.Fatalf("conversation count = %d, want 1", got)
	}
	if st.Conversations[0].ID != second.ID {
		t.Error("wrong conversation survived")
	}
}

func TestSelectUnknownConversation(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.SelectConversation("ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}

func TestUpdateTitleRenames(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	conv, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if err := vm.UpdateTitle(conv.ID, "Renamed"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	got, err := cs.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", got.Title)
	}
}

func TestDeleteMessageFromCurrent(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	conv, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	msg := model.NewUserMessage("oops")
	if err := cs.AppendMessage(conv.ID, msg); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if err := vm.DeleteMessage(msg.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	got, err := cs.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Messages) != 0 {
		t.Errorf("message count = %d, want 0", len(got.Messages))
	}
}

func TestDeleteMessageWithoutConversation(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	if err := vm.DeleteMessage("ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}

func TestCheckpointResavesCurrent(t *testing.T) {
	fc, p, cs := newFixture(t)
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	// no current conversation: nothing to do
	if err := vm.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint without conversation: %v", err)
	}

	conv, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if err := vm.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if _, err := cs.Get(conv.ID); err != nil {
		t.Errorf("conversation missing after checkpoint: %v", err)
	}
}

func TestNewConversationSeedsDefaultConfig(t *testing.T) {
	fc, p, cs := newFixture(t)
	cfg := p.DefaultModelConfig()
	cfg.Temperature = 1.3
	if err := p.SetDefaultModelConfig(cfg); err != nil {
		t.Fatalf("SetDefaultModelConfig: %v", err)
	}
	vm := NewChatViewModel(cs, p, fc, logging.Nop())

	conv, err := vm.NewConversation()
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if conv.ModelConfig.Temperature != 1.3 {
		t.Errorf("temperature = %v, want 1.3 from preferences", conv.ModelConfig.Temperature)
	}
}

// =============================================================================
// SETTINGS VIEW-MODEL
// =============================================================================

func TestSetActiveProviderAssignsDefaultModel(t *testing.T) {
	fc, p, _ := newFixture(t)
	fc.models = []string{"gpt-4o"}
	custom := model.ModelProvider{
		ID:      "p1",
		Name:    "Corp",
		Type:    model.ProviderOpenAI,
		BaseURL: "https://llm.corp.example/v1",
		APIKey:  "sk-corp",
		Enabled: true,
	}
	if err := p.UpsertProvider(custom); err != nil {
		t.Fatalf("UpsertProvider: %v", err)
	}
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.SetActiveProvider(context.Background(), "p1"); err != nil {
		t.Fatalf("SetActiveProvider: %v", err)
	}

	st := vm.State()
	if st.ActiveProvider.ID != "p1" {
		t.Fatalf("active provider = %q, want p1", st.ActiveProvider.ID)
	}
	if st.ActiveProvider.SelectedModel == "" {
		t.Error("blank selected model not defaulted on activation")
	}
	if st.Preferences.APIKey != "sk-corp" {
		t.Errorf("global key = %q, want provider's", st.Preferences.APIKey)
	}
	if st.Preferences.APIBaseURL != "https://llm.corp.example/v1" {
		t.Errorf("global base URL = %q, want provider's", st.Preferences.APIBaseURL)
	}
	if fc.provider.APIKey != "sk-corp" {
		t.Error("chat client not reconfigured with new credentials")
	}
	if len(st.AvailableModels) == 0 {
		t.Error("model list not refreshed after switch")
	}
}

func TestSetActiveProviderUnknown(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())
	if err := vm.SetActiveProvider(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown provider id")
	}
}

func TestDeleteActiveProviderReassignsDefault(t *testing.T) {
	fc, p, _ := newFixture(t)
	custom := model.ModelProvider{
		ID: "p1", Name: "Corp", Type: model.ProviderOpenAICompatible,
		BaseURL: "https://llm.corp.example/v1", APIKey: "sk-corp",
		SelectedModel: "llama2", Enabled: true,
	}
	if err := p.UpsertProvider(custom); err != nil {
		t.Fatalf("UpsertProvider: %v", err)
	}
	vm := NewSettingsViewModel(p, fc, logging.Nop())
	if err := vm.SetActiveProvider(context.Background(), "p1"); err != nil {
		t.Fatalf("SetActiveProvider: %v", err)
	}

	if err := vm.DeleteProvider(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteProvider: %v", err)
	}

	st := vm.State()
	if st.Preferences.ActiveProviderID != model.DefaultProviderID {
		t.Errorf("active id = %q, want default", st.Preferences.ActiveProviderID)
	}
	if st.Preferences.APIBaseURL != "https://api.openai.com/v1" {
		t.Errorf("base URL = %q, want default provider's", st.Preferences.APIBaseURL)
	}
	for _, prov := range st.Preferences.Providers {
		if prov.ID == "p1" {
			t.Error("deleted provider still present")
		}
	}
}

func TestDeleteDefaultProviderIsNoOp(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())
	before := len(p.Providers())

	if err := vm.DeleteProvider(context.Background(), model.DefaultProviderID); err != nil {
		t.Fatalf("DeleteProvider: %v", err)
	}
	if got := len(p.Providers()); got != before {
		t.Errorf("provider count changed %d -> %d", before, got)
	}
}

func TestEditBufferLifecycle(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())
	before := len(p.Providers())

	draft := vm.CreateNewProvider()
	if st := vm.State(); !st.IsEditing || st.Editing.ID != draft.ID {
		t.Fatal("draft not held in edit buffer")
	}
	if got := len(p.Providers()); got != before {
		t.Fatal("draft was persisted before save")
	}

	vm.CancelEditingProvider()
	if st := vm.State(); st.IsEditing {
		t.Fatal("edit buffer not cleared on cancel")
	}

	draft.Name = "My Endpoint"
	draft.BaseURL = "http://localhost:11434/v1"
	if err := vm.SaveProvider(context.Background(), draft); err != nil {
		t.Fatalf("SaveProvider: %v", err)
	}
	saved, ok := findByID(p.Providers(), draft.ID)
	if !ok {
		t.Fatal("saved provider not persisted")
	}
	if saved.SelectedModel != model.ProviderOpenAICompatible.DefaultModel() {
		t.Errorf("new provider model = %q, want type default", saved.SelectedModel)
	}
}

func TestSaveProviderPreservesSelectedModel(t *testing.T) {
	fc, p, _ := newFixture(t)
	existing := model.ModelProvider{
		ID: "p1", Name: "Corp", Type: model.ProviderOpenAICompatible,
		SelectedModel: "llama2", Enabled: true,
	}
	if err := p.UpsertProvider(existing); err != nil {
		t.Fatalf("UpsertProvider: %v", err)
	}
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	edit := existing
	edit.Name = "Corp renamed"
	edit.SelectedModel = ""
	if err := vm.SaveProvider(context.Background(), edit); err != nil {
		t.Fatalf("SaveProvider: %v", err)
	}

	saved, _ := findByID(p.Providers(), "p1")
	if saved.SelectedModel != "llama2" {
		t.Errorf("selected model = %q, want preserved %q", saved.SelectedModel, "llama2")
	}
	if saved.Name != "Corp renamed" {
		t.Errorf("name = %q, edit not applied", saved.Name)
	}
}

func TestLoadAvailableModelsRecordsError(t *testing.T) {
	fc, p, _ := newFixture(t)
	fc.models = []string{"gpt-4o", "gpt-4", "gpt-3.5-turbo"}
	fc.modelsErr = errors.New("dial tcp: connection refused")
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.LoadAvailableModels(context.Background()); err != nil {
		t.Fatalf("LoadAvailableModels: %v", err)
	}
	st := vm.State()
	if len(st.AvailableModels) != 3 {
		t.Errorf("fallback models missing: %v", st.AvailableModels)
	}
	if st.Error == "" {
		t.Error("fetch error silently hidden")
	}
	if st.IsLoading {
		t.Error("loading flag stuck")
	}
}

func TestUpdateAPIKeyRechecksAvailability(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.UpdateAPIKey(context.Background(), "sk-new"); err != nil {
		t.Fatalf("UpdateAPIKey: %v", err)
	}
	st := vm.State()
	if !st.IsAPIAvailable {
		t.Error("availability not re-derived after key change")
	}
	if fc.provider.APIKey != "sk-new" {
		t.Errorf("chat client key = %q, want new key", fc.provider.APIKey)
	}
}

func TestUpdateStreamMode(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.UpdateStreamMode(false); err != nil {
		t.Fatalf("UpdateStreamMode: %v", err)
	}
	if p.DefaultModelConfig().Stream {
		t.Error("stream flag not persisted")
	}
}

func TestUpdateAutoSaveEnabled(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.UpdateAutoSaveEnabled(false); err != nil {
		t.Fatalf("UpdateAutoSaveEnabled: %v", err)
	}
	if p.AutoSaveEnabled() {
		t.Error("auto-save flag not persisted")
	}
	if vm.State().Preferences.AutoSaveEnabled {
		t.Error("published state missing the new flag")
	}
}

func TestUpdateModelWritesThroughProvider(t *testing.T) {
	fc, p, _ := newFixture(t)
	vm := NewSettingsViewModel(p, fc, logging.Nop())

	if err := vm.UpdateModel("gpt-4"); err != nil {
		t.Fatalf("UpdateModel: %v", err)
	}
	prov, _ := p.ActiveProvider()
	if prov.SelectedModel != "gpt-4" {
		t.Errorf("selected model = %q, want gpt-4", prov.SelectedModel)
	}
}

func findByID(providers []model.ModelProvider, id string) (model.ModelProvider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return model.ModelProvider{}, false
}
