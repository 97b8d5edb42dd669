package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lingochat/internal/domain"
	"lingochat/internal/security"
)

// UserService provides contact listing and profile management.
type UserService struct {
	users domain.UserRepository
	hash  *security.PasswordHasher

	MaxProfilePicBytes int
}

func NewUserService(users domain.UserRepository, hash *security.PasswordHasher, maxProfilePicBytes int) *UserService {
	return &UserService{
		users:              users,
		hash:               hash,
		MaxProfilePicBytes: maxProfilePicBytes,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// Contacts returns every active user except the caller.
func (s *UserService) Contacts(ctx context.Context, callerID int64) ([]*domain.User, error) {
	return s.users.ListContacts(ctx, callerID)
}

// ChatPartners returns the users the caller has a conversation with.
func (s *UserService) ChatPartners(ctx context.Context, callerID int64) ([]*domain.User, error) {
	return s.users.ListChatPartners(ctx, callerID)
}

type ProfileUpdateInput struct {
	FullName   string
	ProfilePic string
}

func (s *UserService) UpdateProfile(ctx context.Context, callerID int64, in ProfileUpdateInput) (*domain.User, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, errors.New("full name is required")
	}
	if s.MaxProfilePicBytes > 0 && len(in.ProfilePic) > s.MaxProfilePicBytes {
		return nil, errors.New("profile picture too large")
	}

	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.FullName = strings.TrimSpace(in.FullName)
	if in.ProfilePic != "" {
		user.ProfilePic = in.ProfilePic
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, callerID int64, current, next string) error {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.hash.Verify(current, user.HashedPassword); err != nil {
		return errors.New("current password is incorrect")
	}
	hashed, err := s.hash.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = hashed
	return s.users.Update(ctx, user)
}
