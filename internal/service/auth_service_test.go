package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lingochat/internal/domain"
	"lingochat/internal/security"
	"lingochat/internal/service"
)

func newAuthService(users *MockUserRepo, settings *MockSettingsRepo) *service.AuthService {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(users, settings, tokenSvc, hasher)
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		settings := new(MockSettingsRepo)
		svc := newAuthService(users, settings)

		users.On("GetByUsername", mock.Anything, "newuser").Return(nil, domain.ErrNotFound)
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.IsActive
		})).Return(nil)
		settings.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.UserSettings) bool {
			return s.PreferredLanguage == domain.DefaultLanguage && s.SoundEnabled
		})).Return(nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "newuser",
			FullName: "New User",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "newuser", user.Username)
		settings.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		users := new(MockUserRepo)
		settings := new(MockSettingsRepo)
		svc := newAuthService(users, settings)

		existing := &domain.User{Username: "existing"}
		users.On("GetByUsername", mock.Anything, "existing").Return(existing, nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing",
			Password: "Password1!",
		})
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Equal(t, domain.ErrConflict, err)
	})
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hashed, _ := hasher.Hash("Password1!")

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		settings := new(MockSettingsRepo)
		svc := newAuthService(users, settings)

		users.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
			ID:             1,
			Username:       "alice",
			HashedPassword: hashed,
			IsActive:       true,
		}, nil)
		users.On("SetOnlineStatus", mock.Anything, int64(1), true).Return(nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "alice", resp.User.Username)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		users := new(MockUserRepo)
		settings := new(MockSettingsRepo)
		svc := newAuthService(users, settings)

		users.On("GetByUsername", mock.Anything, "alice").Return(&domain.User{
			ID:             1,
			Username:       "alice",
			HashedPassword: hashed,
			IsActive:       true,
		}, nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "nope-nope",
		})
		assert.Error(t, err)
		assert.Nil(t, resp)
	})
}
