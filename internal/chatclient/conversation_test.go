package chatclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingochat/internal/domain"
)

const (
	selfID        = int64(1)
	counterpartID = int64(2)
)

// ── fakes ────────────────────────────────────────────────────────────────

type fakeAPI struct {
	mu         sync.Mutex
	history    []*domain.Message
	historyErr error
	submitErr  error
	submitGate chan struct{} // when set, SubmitMessage blocks until closed
	submitted  []MessageDraft
	seq        int
}

func (f *fakeAPI) FetchHistory(ctx context.Context, counterpart int64) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, f.historyErr
}

func (f *fakeAPI) SubmitMessage(ctx context.Context, counterpart int64, draft MessageDraft) (*domain.Message, error) {
	f.mu.Lock()
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, draft)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.seq++
	return &domain.Message{
		ID:             fmt.Sprintf("srv-%d", f.seq),
		SenderID:       selfID,
		ReceiverID:     counterpart,
		Text:           draft.Text,
		Image:          draft.Image,
		OriginalText:   draft.OriginalText,
		TranslatedFrom: draft.TranslatedFrom,
		TranslatedTo:   draft.TranslatedTo,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeAPI) lastSubmitted() (MessageDraft, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.submitted) == 0 {
		return MessageDraft{}, false
	}
	return f.submitted[len(f.submitted)-1], true
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

type fakeTranslator struct {
	mu           sync.Mutex
	preferred    string
	preferredErr error
	detected     string
	detectErr    error
	translated   string
	translateErr error
	calls        int
}

func (f *fakeTranslator) PreferredLanguage(ctx context.Context, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preferred, f.preferredErr
}

func (f *fakeTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detected, f.detectErr
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.translated, f.translateErr
}

func (f *fakeTranslator) translateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePush struct {
	mu      sync.Mutex
	handler func(*domain.Message)
	binds   int
	unbinds int
}

func (f *fakePush) OnMessage(h func(*domain.Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	f.binds++
}

func (f *fakePush) OffMessage() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.unbinds++
}

// deliver invokes the bound handler synchronously, like the read loop would.
func (f *fakePush) deliver(m *domain.Message) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(m)
	}
}

type fakeIdentity struct{ id int64 }

func (f *fakeIdentity) CurrentUserID() int64 { return f.id }

type fakeSettings struct {
	mu       sync.Mutex
	settings ClientSettings
	saveErr  error
	saves    int
}

func (f *fakeSettings) Load(ctx context.Context) (ClientSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeSettings) Save(ctx context.Context, s ClientSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.settings = s
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	playErr  error
	played   int
	failures []string
}

func (f *fakeNotifier) PlayIncoming() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played++
	return f.playErr
}

func (f *fakeNotifier) SendFailed(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, reason)
}

func (f *fakeNotifier) playedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.played
}

func (f *fakeNotifier) failureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failures)
}

type harness struct {
	conv       *Conversation
	api        *fakeAPI
	translator *fakeTranslator
	push       *fakePush
	settings   *fakeSettings
	notifier   *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:        &fakeAPI{},
		translator: &fakeTranslator{},
		push:       &fakePush{},
		settings:   &fakeSettings{settings: ClientSettings{SoundEnabled: true}},
		notifier:   &fakeNotifier{},
	}
	h.conv = New(Deps{
		API:        h.api,
		Translator: h.translator,
		Push:       h.push,
		Identity:   &fakeIdentity{id: selfID},
		Settings:   h.settings,
		Notifier:   h.notifier,
	})
	require.NoError(t, h.conv.SetCounterpart(context.Background(), counterpartID))
	return h
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// ── send pipeline ────────────────────────────────────────────────────────

func TestSendImmediateVisibility(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.api.submitGate = gate

	tempID, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	// The optimistic record is visible before any asynchronous step
	// resolves.
	msgs := h.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, tempID, msgs[0].ID)
	assert.True(t, msgs[0].IsTemporary())
	assert.True(t, msgs[0].IsOptimistic)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, selfID, msgs[0].SenderID)
	assert.Equal(t, counterpartID, msgs[0].ReceiverID)

	close(gate)
	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1" && !msgs[0].IsOptimistic
	})
}

func TestSendEmptyPayloadRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.conv.Send("   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Empty(t, h.conv.Messages())
	assert.Equal(t, 0, h.api.submitCount())
}

func TestSendWithoutCounterpart(t *testing.T) {
	h := &harness{
		api:      &fakeAPI{},
		push:     &fakePush{},
		settings: &fakeSettings{},
		notifier: &fakeNotifier{},
	}
	conv := New(Deps{
		API:      h.api,
		Push:     h.push,
		Identity: &fakeIdentity{id: selfID},
		Settings: h.settings,
		Notifier: h.notifier,
	})

	_, err := conv.Send("hello", "")
	assert.ErrorIs(t, err, ErrNoCounterpart)
}

func TestSendImageOnly(t *testing.T) {
	h := newHarness(t)

	_, err := h.conv.Send("", "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)

	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1"
	})
	msgs := h.conv.Messages()
	assert.Empty(t, msgs[0].Text)
	assert.NotEmpty(t, msgs[0].Image)
}

func TestRollbackOnSubmissionFailure(t *testing.T) {
	h := newHarness(t)
	h.api.submitErr = errors.New("backend unreachable")

	tempID, err := h.conv.Send("hello", "")
	require.NoError(t, err)
	require.Len(t, h.conv.Messages(), 1)

	eventually(t, func() bool {
		return len(h.conv.Messages()) == 0 && h.notifier.failureCount() == 1
	})
	for _, m := range h.conv.Messages() {
		assert.NotEqual(t, tempID, m.ID)
	}
	// Settle and confirm the notification fired exactly once.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.notifier.failureCount())
}

func TestConcurrentSendsConvergeIndependently(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		_, err := h.conv.Send(fmt.Sprintf("message %d", i), "")
		require.NoError(t, err)
	}

	eventually(t, func() bool {
		msgs := h.conv.Messages()
		if len(msgs) != 5 {
			return false
		}
		for _, m := range msgs {
			if m.IsTemporary() {
				return false
			}
		}
		return true
	})
}

// ── translation chain ────────────────────────────────────────────────────

func enableAutoTranslate(t *testing.T, h *harness) {
	t.Helper()
	h.settings.mu.Lock()
	h.settings.settings.AutoTranslate = true
	h.settings.mu.Unlock()
	require.NoError(t, h.conv.SyncSettings(context.Background()))
}

func TestAutoTranslateEndToEnd(t *testing.T) {
	h := newHarness(t)
	enableAutoTranslate(t, h)
	h.translator.preferred = "fr"
	h.translator.detected = "en"
	h.translator.translated = "bonjour"

	gate := make(chan struct{})
	h.api.submitGate = gate

	tempID, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	// Record shows the original text first, then mutates in place once the
	// background translation lands, while still optimistic.
	assert.Equal(t, "hello", h.conv.Messages()[0].Text)
	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].Text == "bonjour" && msgs[0].ID == tempID
	})
	m := h.conv.Messages()[0]
	assert.Equal(t, "hello", m.OriginalText)
	assert.Equal(t, "en", m.TranslatedFrom)
	assert.Equal(t, "fr", m.TranslatedTo)
	assert.True(t, m.IsOptimistic)

	close(gate)
	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1" && !msgs[0].IsOptimistic
	})
	confirmed := h.conv.Messages()[0]
	assert.Equal(t, "bonjour", confirmed.Text)
	assert.Equal(t, "hello", confirmed.OriginalText)
}

func TestTranslationFailureFallsBackToOriginal(t *testing.T) {
	h := newHarness(t)
	enableAutoTranslate(t, h)
	h.translator.preferred = "fr"
	h.translator.detected = "en"
	h.translator.translateErr = errors.New("translation backend down")

	_, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	eventually(t, func() bool { return h.api.submitCount() == 1 })
	draft, ok := h.api.lastSubmitted()
	require.True(t, ok)
	// The submitted payload is the original, with no partial mutation.
	assert.Equal(t, MessageDraft{Text: "hello"}, draft)
	assert.Equal(t, 0, h.notifier.failureCount())
}

func TestDetectionFailureFallsBackToOriginal(t *testing.T) {
	h := newHarness(t)
	enableAutoTranslate(t, h)
	h.translator.preferred = "fr"
	h.translator.detectErr = errors.New("detect down")

	_, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	eventually(t, func() bool { return h.api.submitCount() == 1 })
	draft, _ := h.api.lastSubmitted()
	assert.Equal(t, MessageDraft{Text: "hello"}, draft)
	assert.Equal(t, 0, h.translator.translateCalls())
}

func TestSameLanguageSkipsTranslation(t *testing.T) {
	h := newHarness(t)
	enableAutoTranslate(t, h)
	h.translator.preferred = "en"
	h.translator.detected = "en"

	_, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	eventually(t, func() bool { return h.api.submitCount() == 1 })
	assert.Equal(t, 0, h.translator.translateCalls())
}

func TestNoTranslationWhenDisabled(t *testing.T) {
	h := newHarness(t)
	h.translator.preferred = "fr"
	h.translator.detected = "en"
	h.translator.translated = "bonjour"

	_, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	eventually(t, func() bool { return h.api.submitCount() == 1 })
	draft, _ := h.api.lastSubmitted()
	assert.Equal(t, "hello", draft.Text)
	assert.Equal(t, 0, h.translator.translateCalls())
}

// ── receive / subscription ───────────────────────────────────────────────

func pushed(id string, sender, receiver int64) *domain.Message {
	return &domain.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       "incoming",
		CreatedAt:  time.Now(),
	}
}

func TestIncomingMessageAppended(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()

	h.push.deliver(pushed("srv-9", counterpartID, selfID))

	msgs := h.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-9", msgs[0].ID)
	assert.Equal(t, 1, h.notifier.playedCount())
}

func TestDuplicateDeliveryIgnored(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()

	h.push.deliver(pushed("srv-9", counterpartID, selfID))
	h.push.deliver(pushed("srv-9", counterpartID, selfID))

	assert.Len(t, h.conv.Messages(), 1)
}

func TestForeignConversationIgnored(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()

	// A message between two unrelated users, and one from a third user to
	// self: neither belongs to the active conversation.
	h.push.deliver(pushed("srv-9", 5, 6))
	h.push.deliver(pushed("srv-10", 7, selfID))

	assert.Empty(t, h.conv.Messages())
	assert.Equal(t, 0, h.notifier.playedCount())
}

func TestOwnEchoDeduplicated(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()

	_, err := h.conv.Send("hello", "")
	require.NoError(t, err)
	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1"
	})

	// The server pushes the sender's own message back; it shares the
	// confirmed ID and must not be appended twice, nor make a sound.
	h.push.deliver(pushed("srv-1", selfID, counterpartID))

	assert.Len(t, h.conv.Messages(), 1)
	assert.Equal(t, 0, h.notifier.playedCount())
}

func TestEchoBeforeConfirmationConvergesToOneRecord(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()
	gate := make(chan struct{})
	h.api.submitGate = gate

	tempID, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	// The push echo can arrive while the submission response is still in
	// flight. It carries the confirmed ID, so dedup against the temp record
	// lets it through and both are briefly visible.
	h.push.deliver(pushed("srv-1", selfID, counterpartID))
	require.Len(t, h.conv.Messages(), 2)

	close(gate)
	eventually(t, func() bool {
		msgs := h.conv.Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1"
	})
	for _, m := range h.conv.Messages() {
		assert.NotEqual(t, tempID, m.ID)
	}
	assert.Equal(t, 0, h.notifier.playedCount())
	assert.Equal(t, 0, h.notifier.failureCount())
}

func TestRebindDoesNotStackHandlers(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()
	h.conv.Subscribe()

	h.push.deliver(pushed("srv-9", counterpartID, selfID))

	assert.Len(t, h.conv.Messages(), 1)
	assert.GreaterOrEqual(t, h.push.unbinds, 2)
}

func TestSoundSuppressedWhenDisabled(t *testing.T) {
	h := newHarness(t)
	h.settings.mu.Lock()
	h.settings.settings.SoundEnabled = false
	h.settings.mu.Unlock()
	require.NoError(t, h.conv.SyncSettings(context.Background()))
	h.conv.Subscribe()

	h.push.deliver(pushed("srv-9", counterpartID, selfID))

	assert.Len(t, h.conv.Messages(), 1)
	assert.Equal(t, 0, h.notifier.playedCount())
}

func TestPlaybackFailureDoesNotAffectSequence(t *testing.T) {
	h := newHarness(t)
	h.notifier.playErr = errors.New("no audio device")
	h.conv.Subscribe()

	h.push.deliver(pushed("srv-9", counterpartID, selfID))

	assert.Len(t, h.conv.Messages(), 1)
}

// ── conversation switching ───────────────────────────────────────────────

func TestSwitchCounterpartResetsSequence(t *testing.T) {
	h := newHarness(t)
	h.conv.Subscribe()
	h.push.deliver(pushed("srv-9", counterpartID, selfID))
	require.Len(t, h.conv.Messages(), 1)

	h.api.mu.Lock()
	h.api.history = []*domain.Message{pushed("srv-20", 3, selfID)}
	h.api.mu.Unlock()

	require.NoError(t, h.conv.SetCounterpart(context.Background(), 3))
	msgs := h.conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-20", msgs[0].ID)

	// Messages for the old counterpart are no longer relevant.
	h.push.deliver(pushed("srv-21", counterpartID, selfID))
	assert.Len(t, h.conv.Messages(), 1)
}

func TestLateConfirmationAfterSwitchIsDropped(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.api.submitGate = gate

	tempID, err := h.conv.Send("hello", "")
	require.NoError(t, err)

	h.api.mu.Lock()
	h.api.submitGate = nil
	h.api.mu.Unlock()
	require.NoError(t, h.conv.SetCounterpart(context.Background(), 3))
	close(gate)

	// The stale completion must not resurrect a record in the new
	// conversation's sequence.
	time.Sleep(50 * time.Millisecond)
	for _, m := range h.conv.Messages() {
		assert.NotEqual(t, tempID, m.ID)
		assert.NotEqual(t, "srv-1", m.ID)
	}
}

// ── preference sync ──────────────────────────────────────────────────────

func TestToggleSoundPersists(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.conv.SoundEnabled())

	require.NoError(t, h.conv.ToggleSound(context.Background()))
	assert.False(t, h.conv.SoundEnabled())
	assert.False(t, h.settings.settings.SoundEnabled)
}

func TestToggleRollsBackOnSaveFailure(t *testing.T) {
	h := newHarness(t)
	h.settings.saveErr = errors.New("persist failed")

	err := h.conv.ToggleAutoTranslate(context.Background())
	assert.Error(t, err)
	assert.False(t, h.conv.AutoTranslateEnabled())
}
