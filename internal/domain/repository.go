package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListContacts(ctx context.Context, excludeUserID int64) ([]*User, error)
	ListChatPartners(ctx context.Context, userID int64) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SetOnlineStatus(ctx context.Context, id int64, isOnline bool) error
}

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id string) (*Message, error)
	ListBetween(ctx context.Context, userA, userB int64, limit int) ([]*Message, error)
	PruneOld(ctx context.Context, userA, userB int64, keepLimit int) error
}

// SettingsRepository defines persistence operations for user settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID int64) (*UserSettings, error)
	Upsert(ctx context.Context, s *UserSettings) error
}
