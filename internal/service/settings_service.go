package service

import (
	"context"
	"errors"
	"fmt"

	"lingochat/internal/domain"
)

// SettingsService reads and updates per-user preferences.
type SettingsService struct {
	settings domain.SettingsRepository
}

func NewSettingsService(settings domain.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// GetForUser returns the user's settings, falling back to defaults when the
// user never saved any.
func (s *SettingsService) GetForUser(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	settings, err := s.settings.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

type SettingsUpdateInput struct {
	PreferredLanguage *string
	AutoTranslate     *bool
	SoundEnabled      *bool
	TranslateAPIKey   *string
}

// Update applies the provided fields on top of the stored settings and
// persists the result.
func (s *SettingsService) Update(ctx context.Context, userID int64, in SettingsUpdateInput) (*domain.UserSettings, error) {
	settings, err := s.GetForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.PreferredLanguage != nil {
		if *in.PreferredLanguage == "" {
			return nil, errors.New("preferred language must not be empty")
		}
		settings.PreferredLanguage = *in.PreferredLanguage
	}
	if in.AutoTranslate != nil {
		settings.AutoTranslate = *in.AutoTranslate
	}
	if in.SoundEnabled != nil {
		settings.SoundEnabled = *in.SoundEnabled
	}
	if in.TranslateAPIKey != nil {
		settings.TranslateAPIKey = *in.TranslateAPIKey
	}

	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// PreferredLanguage returns the language another user wants to read, used by
// senders to decide whether a message needs translation.
func (s *SettingsService) PreferredLanguage(ctx context.Context, userID int64) (string, error) {
	settings, err := s.GetForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if settings.PreferredLanguage == "" {
		return domain.DefaultLanguage, nil
	}
	return settings.PreferredLanguage, nil
}
