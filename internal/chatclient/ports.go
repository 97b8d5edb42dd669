// Package chatclient implements the client side of a direct conversation:
// an optimistic send pipeline, merge of pushed messages, and preference
// synchronization, over a single ordered message sequence.
package chatclient

import (
	"context"

	"lingochat/internal/domain"
)

// MessageDraft is the payload submitted to the backend for persistence.
// When the background translation step completed in time, Text holds the
// translated text and OriginalText the sender's input.
type MessageDraft struct {
	Text           string `json:"text,omitempty"`
	Image          string `json:"image,omitempty"`
	OriginalText   string `json:"originalText,omitempty"`
	TranslatedFrom string `json:"translatedFrom,omitempty"`
	TranslatedTo   string `json:"translatedTo,omitempty"`
}

// MessageAPI is the request/response transport to the backend.
type MessageAPI interface {
	FetchHistory(ctx context.Context, counterpartID int64) ([]*domain.Message, error)
	SubmitMessage(ctx context.Context, counterpartID int64, draft MessageDraft) (*domain.Message, error)
}

// TranslationAPI covers the best-effort translation chain. Every method may
// fail without consequence: the pipeline falls back to the untranslated text.
type TranslationAPI interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, source, target string) (string, error)
	PreferredLanguage(ctx context.Context, userID int64) (string, error)
}

// PushChannel delivers messages pushed by the server for any conversation
// involving the current user. OnMessage replaces the previously bound
// handler, OffMessage unbinds it.
type PushChannel interface {
	OnMessage(handler func(*domain.Message))
	OffMessage()
}

// Identity provides the current user's identity.
type Identity interface {
	CurrentUserID() int64
}

// ClientSettings are the preferences the pipeline consumes.
type ClientSettings struct {
	AutoTranslate bool
	SoundEnabled  bool
}

// SettingsStore persists the preferences; toggles are optimistic with
// rollback when Save fails.
type SettingsStore interface {
	Load(ctx context.Context) (ClientSettings, error)
	Save(ctx context.Context, s ClientSettings) error
}

// Notifier raises user-facing side effects. Both are best-effort; a playback
// failure must never affect the message sequence.
type Notifier interface {
	PlayIncoming() error
	SendFailed(reason string)
}
