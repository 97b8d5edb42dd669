package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lingochat/internal/domain"
)

// ErrNoCounterpart is returned by Send when no conversation is selected.
var ErrNoCounterpart = errors.New("no conversation selected")

// DefaultSubmitTimeout bounds a single backend submission. The original
// behaviour was an unbounded wait; a stalled submission would leave the
// optimistic record pending forever.
const DefaultSubmitTimeout = 15 * time.Second

// Deps are the injected collaborators of a Conversation.
type Deps struct {
	API        MessageAPI
	Translator TranslationAPI
	Push       PushChannel
	Identity   Identity
	Settings   SettingsStore
	Notifier   Notifier

	Logger        *slog.Logger
	SubmitTimeout time.Duration

	// OnUpdate, when set, is invoked after every mutation of the message
	// sequence so a UI can re-render. Called without the internal lock held.
	OnUpdate func()
}

// Conversation owns the ordered message sequence of the currently selected
// direct conversation. It is the single writer: the optimistic send
// pipeline, the background translation update, the server-confirmed swap,
// and the push handler all mutate the sequence only through its methods,
// serialized by one mutex.
type Conversation struct {
	deps          Deps
	logger        *slog.Logger
	submitTimeout time.Duration
	tempSeq       atomic.Int64

	mu            sync.Mutex
	counterpartID int64
	messages      []*domain.Message
	autoTranslate bool
	soundEnabled  bool
	ctx           context.Context
	cancel        context.CancelFunc
}

func New(deps Deps) *Conversation {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.SubmitTimeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		deps:          deps,
		logger:        logger,
		submitTimeout: timeout,
		soundEnabled:  true,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// SetCounterpart switches the active conversation: cancels the previous
// conversation's in-flight work, fetches history, and resets the sequence.
// The caller should Subscribe again afterwards to rebind the push handler.
func (c *Conversation) SetCounterpart(ctx context.Context, counterpartID int64) error {
	history, err := c.deps.API.FetchHistory(ctx, counterpartID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	c.mu.Lock()
	c.cancel()
	convCtx, cancel := context.WithCancel(context.Background())
	c.ctx = convCtx
	c.cancel = cancel
	c.counterpartID = counterpartID
	c.messages = append([]*domain.Message(nil), history...)
	c.mu.Unlock()

	c.notifyUpdate()
	return nil
}

// CounterpartID returns the currently selected counterpart, zero if none.
func (c *Conversation) CounterpartID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counterpartID
}

// Messages returns a snapshot of the current sequence.
func (c *Conversation) Messages() []*domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Message(nil), c.messages...)
}

// Close tears the conversation down: cancels in-flight work and unbinds the
// push handler.
func (c *Conversation) Close() {
	c.Unsubscribe()
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
}

// Send appends an optimistic record synchronously, then finishes the send in
// the background: optional translation enrichment followed by exactly one
// backend submission. It returns the temporary ID of the optimistic record.
func (c *Conversation) Send(text, image string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return "", domain.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.counterpartID == 0 {
		c.mu.Unlock()
		return "", ErrNoCounterpart
	}
	counterpartID := c.counterpartID
	convCtx := c.ctx
	autoTranslate := c.autoTranslate
	self := c.deps.Identity.CurrentUserID()

	tempID := fmt.Sprintf("%s%d-%d", domain.TempIDPrefix, time.Now().UnixMilli(), c.tempSeq.Add(1))
	c.messages = append(c.messages, &domain.Message{
		ID:           tempID,
		SenderID:     self,
		ReceiverID:   counterpartID,
		Text:         text,
		Image:        image,
		CreatedAt:    time.Now(),
		IsOptimistic: true,
	})
	c.mu.Unlock()
	c.notifyUpdate()

	go c.finishSend(convCtx, counterpartID, tempID, text, image, autoTranslate)
	return tempID, nil
}

// finishSend runs the asynchronous tail of one send. Submission happens
// exactly once, after the translation chain settles when auto-translate is
// on, immediately otherwise.
func (c *Conversation) finishSend(ctx context.Context, counterpartID int64, tempID, text, image string, autoTranslate bool) {
	draft := MessageDraft{Text: text, Image: image}
	if autoTranslate && text != "" {
		draft = c.enrichDraft(ctx, counterpartID, tempID, draft)
	}
	c.submit(ctx, counterpartID, tempID, draft)
}

// enrichDraft runs the translation chain: counterpart preferred language and
// source language detection concurrently, then the translation call when the
// languages differ. Any failure falls through to the untranslated draft.
func (c *Conversation) enrichDraft(ctx context.Context, counterpartID int64, tempID string, draft MessageDraft) MessageDraft {
	var (
		wg                 sync.WaitGroup
		targetLang, source string
		targetErr, srcErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		targetLang, targetErr = c.deps.Translator.PreferredLanguage(ctx, counterpartID)
	}()
	go func() {
		defer wg.Done()
		source, srcErr = c.deps.Translator.DetectLanguage(ctx, draft.Text)
	}()
	wg.Wait()

	if targetErr != nil || srcErr != nil {
		c.logger.Warn("auto-translate chain failed, sending original",
			"target_err", targetErr, "source_err", srcErr)
		return draft
	}
	if targetLang == "" {
		targetLang = domain.DefaultLanguage
	}
	if source == "" {
		source = domain.DefaultLanguage
	}
	if source == targetLang {
		return draft
	}

	translated, err := c.deps.Translator.Translate(ctx, draft.Text, source, targetLang)
	if err != nil {
		c.logger.Warn("translation failed, sending original", "err", err)
		return draft
	}

	enriched := draft
	enriched.OriginalText = draft.Text
	enriched.Text = translated
	enriched.TranslatedFrom = source
	enriched.TranslatedTo = targetLang

	// Show the translated text on the optimistic record while the
	// submission is still in flight. Lookup is by temporary ID so records
	// appended meanwhile are untouched.
	c.mu.Lock()
	if m := c.findLocked(tempID); m != nil {
		m.Text = enriched.Text
		m.OriginalText = enriched.OriginalText
		m.TranslatedFrom = enriched.TranslatedFrom
		m.TranslatedTo = enriched.TranslatedTo
	}
	c.mu.Unlock()
	c.notifyUpdate()

	return enriched
}

// submit persists the draft and converges the optimistic record: identity
// swap on success, removal plus one failure notification on error. A record
// already gone (conversation switched) makes the completion a no-op, and a
// confirmed ID already present (push echo arrived first) resolves to that
// single record.
func (c *Conversation) submit(ctx context.Context, counterpartID int64, tempID string, draft MessageDraft) {
	sctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	confirmed, err := c.deps.API.SubmitMessage(sctx, counterpartID, draft)
	if err != nil {
		c.logger.Error("message submission failed", "temp_id", tempID, "err", err)
		c.mu.Lock()
		removed := c.removeLocked(tempID)
		c.mu.Unlock()
		if removed {
			c.notifyUpdate()
			c.deps.Notifier.SendFailed("failed to send message")
		}
		return
	}

	c.mu.Lock()
	changed := false
	if c.findLocked(confirmed.ID) != nil {
		// The push echo outran the submission response and already delivered
		// the confirmed record. Keep that copy and drop the optimistic one.
		changed = c.removeLocked(tempID)
	} else {
		for i, m := range c.messages {
			if m.ID == tempID {
				c.messages[i] = confirmed
				changed = true
				break
			}
		}
	}
	c.mu.Unlock()
	if changed {
		c.notifyUpdate()
	}
}

// Subscribe binds the push handler for the active conversation, first
// unbinding any previous handler so conversation switches never stack
// handlers. Relevance is evaluated against the counterpart selected at
// delivery time, not at subscribe time.
func (c *Conversation) Subscribe() {
	c.deps.Push.OffMessage()
	c.deps.Push.OnMessage(c.handleIncoming)
}

// Unsubscribe unbinds the push handler.
func (c *Conversation) Unsubscribe() {
	c.deps.Push.OffMessage()
}

func (c *Conversation) handleIncoming(m *domain.Message) {
	if m == nil {
		return
	}
	self := c.deps.Identity.CurrentUserID()

	c.mu.Lock()
	counterpartID := c.counterpartID
	relevant := counterpartID != 0 &&
		((m.SenderID == counterpartID && m.ReceiverID == self) ||
			(m.SenderID == self && m.ReceiverID == counterpartID))
	if !relevant {
		c.mu.Unlock()
		return
	}
	// The sender's own echo shares its ID with the confirmed record from
	// the submission response; duplicates from the channel are dropped too.
	if c.findLocked(m.ID) != nil {
		c.mu.Unlock()
		return
	}
	c.messages = append(c.messages, m)
	sound := c.soundEnabled
	c.mu.Unlock()
	c.notifyUpdate()

	if m.SenderID != self && sound {
		if err := c.deps.Notifier.PlayIncoming(); err != nil {
			c.logger.Warn("notification playback failed", "err", err)
		}
	}
}

// SyncSettings mirrors the persisted preferences into local state.
func (c *Conversation) SyncSettings(ctx context.Context) error {
	settings, err := c.deps.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	c.mu.Lock()
	c.autoTranslate = settings.AutoTranslate
	c.soundEnabled = settings.SoundEnabled
	c.mu.Unlock()
	return nil
}

// ToggleSound flips the sound preference optimistically and rolls back if
// persisting it fails.
func (c *Conversation) ToggleSound(ctx context.Context) error {
	return c.toggle(ctx, func(s *ClientSettings) { s.SoundEnabled = !s.SoundEnabled })
}

// ToggleAutoTranslate flips the auto-translate preference optimistically and
// rolls back if persisting it fails.
func (c *Conversation) ToggleAutoTranslate(ctx context.Context) error {
	return c.toggle(ctx, func(s *ClientSettings) { s.AutoTranslate = !s.AutoTranslate })
}

func (c *Conversation) toggle(ctx context.Context, flip func(*ClientSettings)) error {
	c.mu.Lock()
	prev := ClientSettings{AutoTranslate: c.autoTranslate, SoundEnabled: c.soundEnabled}
	next := prev
	flip(&next)
	c.autoTranslate = next.AutoTranslate
	c.soundEnabled = next.SoundEnabled
	c.mu.Unlock()

	if err := c.deps.Settings.Save(ctx, next); err != nil {
		c.mu.Lock()
		c.autoTranslate = prev.AutoTranslate
		c.soundEnabled = prev.SoundEnabled
		c.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SoundEnabled reports the current sound preference.
func (c *Conversation) SoundEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.soundEnabled
}

// AutoTranslateEnabled reports the current auto-translate preference.
func (c *Conversation) AutoTranslateEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoTranslate
}

func (c *Conversation) findLocked(id string) *domain.Message {
	for _, m := range c.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (c *Conversation) removeLocked(id string) bool {
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Conversation) notifyUpdate() {
	if c.deps.OnUpdate != nil {
		c.deps.OnUpdate()
	}
}
