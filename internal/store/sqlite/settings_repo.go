package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lingochat/internal/domain"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

var _ domain.SettingsRepository = (*SettingsRepo)(nil)

func (r *SettingsRepo) Get(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	query := `
		SELECT user_id, preferred_language, auto_translate, sound_enabled, translate_api_key
		FROM user_settings
		WHERE user_id = ?
	`
	s := &domain.UserSettings{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.PreferredLanguage,
		&s.AutoTranslate,
		&s.SoundEnabled,
		&s.TranslateAPIKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *domain.UserSettings) error {
	query := `
		INSERT INTO user_settings (user_id, preferred_language, auto_translate, sound_enabled, translate_api_key)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			preferred_language = excluded.preferred_language,
			auto_translate = excluded.auto_translate,
			sound_enabled = excluded.sound_enabled,
			translate_api_key = excluded.translate_api_key
	`
	if _, err := r.db.ExecContext(ctx, query,
		s.UserID,
		s.PreferredLanguage,
		s.AutoTranslate,
		s.SoundEnabled,
		s.TranslateAPIKey,
	); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
