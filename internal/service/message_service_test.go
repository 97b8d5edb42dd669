package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lingochat/internal/domain"
	"lingochat/internal/security"
	"lingochat/internal/service"
)

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListBetween(ctx context.Context, a, b int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, a, b, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) PruneOld(ctx context.Context, a, b int64, keepLimit int) error {
	args := m.Called(ctx, a, b, keepLimit)
	return args.Error(0)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) ListContacts(ctx context.Context, excludeUserID int64) ([]*domain.User, error) {
	return nil, nil // not used in message tests
}

func (m *MockUserRepo) ListChatPartners(ctx context.Context, userID int64) ([]*domain.User, error) {
	return nil, nil
}

func (m *MockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return nil
}

func (m *MockUserRepo) SetOnlineStatus(ctx context.Context, userID int64, isOnline bool) error {
	args := m.Called(ctx, userID, isOnline)
	return args.Error(0)
}

func newMessageService(msgs *MockMessageRepo, users *MockUserRepo) *service.MessageService {
	enc, _ := security.NewEncryptor([]byte("test-key"))
	return service.NewMessageService(msgs, users, enc, 1000, 1024*1024)
}

func TestSendMessage(t *testing.T) {
	receiver := &domain.User{ID: 2, Username: "bob", IsActive: true}

	t.Run("Success", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newMessageService(msgs, users)

		users.On("GetByID", mock.Anything, int64(2)).Return(receiver, nil)
		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.SenderID == 1 && m.ReceiverID == 2 && !m.IsTemporary() && m.ID != ""
		})).Return(nil)
		msgs.On("PruneOld", mock.Anything, int64(1), int64(2), 1000).Return(nil)

		out, err := svc.SendMessage(context.Background(), service.MessageSendInput{
			ReceiverID: 2,
			Text:       "hello",
		}, 1)
		assert.NoError(t, err)
		assert.NotNil(t, out)
		// Response carries the plaintext even though storage is encrypted.
		assert.Equal(t, "hello", out.Text)
		msgs.AssertExpectations(t)
	})

	t.Run("EmptyPayloadRejected", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newMessageService(msgs, users)

		out, err := svc.SendMessage(context.Background(), service.MessageSendInput{
			ReceiverID: 2,
		}, 1)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ImageOnlyAccepted", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newMessageService(msgs, users)

		users.On("GetByID", mock.Anything, int64(2)).Return(receiver, nil)
		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Text == "" && m.Image != ""
		})).Return(nil)
		msgs.On("PruneOld", mock.Anything, int64(1), int64(2), 1000).Return(nil)

		out, err := svc.SendMessage(context.Background(), service.MessageSendInput{
			ReceiverID: 2,
			Image:      "data:image/png;base64,iVBORw0KGgo=",
		}, 1)
		assert.NoError(t, err)
		assert.Empty(t, out.Text)
		assert.NotEmpty(t, out.Image)
	})

	t.Run("UnknownReceiver", func(t *testing.T) {
		msgs := new(MockMessageRepo)
		users := new(MockUserRepo)
		svc := newMessageService(msgs, users)

		users.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrNotFound)

		out, err := svc.SendMessage(context.Background(), service.MessageSendInput{
			ReceiverID: 99,
			Text:       "hello",
		}, 1)
		assert.Nil(t, out)
		assert.Error(t, err)
	})
}

func TestHistoryChronologicalOrder(t *testing.T) {
	msgs := new(MockMessageRepo)
	users := new(MockUserRepo)
	svc := newMessageService(msgs, users)

	// Repo returns newest-first, like the underlying query.
	stored := []*domain.Message{
		{ID: "m3", SenderID: 1, ReceiverID: 2},
		{ID: "m2", SenderID: 2, ReceiverID: 1},
		{ID: "m1", SenderID: 1, ReceiverID: 2},
	}
	msgs.On("ListBetween", mock.Anything, int64(1), int64(2), 1000).Return(stored, nil)

	out, err := svc.History(context.Background(), 1, 2, 0)
	assert.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, "m1", out[0].ID)
	assert.Equal(t, "m3", out[2].ID)
}
