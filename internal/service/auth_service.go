package service

import (
	"context"
	"errors"
	"fmt"

	"lingochat/internal/domain"
	"lingochat/internal/security"
)

// AuthService handles registration, login, and logout.
type AuthService struct {
	users    domain.UserRepository
	settings domain.SettingsRepository
	tokens   *security.TokenService
	hash     *security.PasswordHasher
}

func NewAuthService(
	users domain.UserRepository,
	settings domain.SettingsRepository,
	tokens *security.TokenService,
	hash *security.PasswordHasher,
) *AuthService {
	return &AuthService{
		users:    users,
		settings: settings,
		tokens:   tokens,
		hash:     hash,
	}
}

type RegisterInput struct {
	Username string
	FullName string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, errors.New("username and password are required")
	}

	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       in.Username,
		FullName:       in.FullName,
		HashedPassword: hashed,
		IsActive:       true,
		IsOnline:       false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// Seed default settings so the preferred-language lookup never misses.
	if err := s.settings.Upsert(ctx, domain.DefaultSettings(user.ID)); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.New("incorrect username or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, errors.New("user account is inactive")
	}

	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, errors.New("incorrect username or password")
	}

	if err := s.users.SetOnlineStatus(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	token, err := s.tokens.CreateForUser(user.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.users.SetOnlineStatus(ctx, userID, false)
}
