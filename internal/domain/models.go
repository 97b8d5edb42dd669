package domain

import (
	"strings"
	"time"
)

// User represents an application user.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	FullName       string    `db:"full_name" json:"fullName"`
	ProfilePic     string    `db:"profile_pic" json:"profilePic,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"-"`
	IsOnline       bool      `db:"is_online" json:"isOnline"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	LastSeen       time.Time `db:"last_seen" json:"lastSeen"`
}

// TempIDPrefix marks client-minted message IDs that have not been confirmed
// by the server yet. Server-issued IDs are UUIDs and never carry it.
const TempIDPrefix = "temp-"

// Message represents a single direct message between two users.
//
// Text is stored encrypted at rest; the service layer decrypts it before the
// message leaves the server. Image is an inline base64 data URI. The
// translation fields are set only when the sender's client translated the
// text before submission; OriginalText preserves the pre-translation input.
type Message struct {
	ID             string    `db:"id" json:"id"`
	SenderID       int64     `db:"sender_id" json:"senderId"`
	ReceiverID     int64     `db:"receiver_id" json:"receiverId"`
	Text           string    `db:"text" json:"text,omitempty"`
	Image          string    `db:"image" json:"image,omitempty"`
	OriginalText   string    `db:"original_text" json:"originalText,omitempty"`
	TranslatedFrom string    `db:"translated_from" json:"translatedFrom,omitempty"`
	TranslatedTo   string    `db:"translated_to" json:"translatedTo,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`

	// IsOptimistic is true only on the sender's client while the message
	// awaits server confirmation. It is never persisted.
	IsOptimistic bool `db:"-" json:"isOptimistic,omitempty"`
}

// IsTemporary reports whether the message still carries a client-minted ID.
func (m *Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Empty reports whether the message carries neither text nor image.
func (m *Message) Empty() bool {
	return strings.TrimSpace(m.Text) == "" && m.Image == ""
}

// UserSettings holds per-user preferences persisted on the server.
type UserSettings struct {
	UserID            int64  `db:"user_id" json:"userId"`
	PreferredLanguage string `db:"preferred_language" json:"preferredLanguage"`
	AutoTranslate     bool   `db:"auto_translate" json:"autoTranslateEnabled"`
	SoundEnabled      bool   `db:"sound_enabled" json:"soundEnabled"`
	TranslateAPIKey   string `db:"translate_api_key" json:"-"`
}

// DefaultLanguage is assumed when a user never picked a preferred language.
const DefaultLanguage = "en"

// DefaultSettings returns the settings a fresh account starts with.
func DefaultSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:            userID,
		PreferredLanguage: DefaultLanguage,
		AutoTranslate:     false,
		SoundEnabled:      true,
	}
}
