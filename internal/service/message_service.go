package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lingochat/internal/domain"
	"lingochat/internal/security"
)

// MessageService validates, persists, and lists direct messages.
type MessageService struct {
	messages  domain.MessageRepository
	users     domain.UserRepository
	encryptor *security.Encryptor

	MaxMessagesPerConversation int
	MaxImageBytes              int
}

func NewMessageService(
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
	maxMessages int,
	maxImageBytes int,
) *MessageService {
	return &MessageService{
		messages:                   messages,
		users:                      users,
		encryptor:                  encryptor,
		MaxMessagesPerConversation: maxMessages,
		MaxImageBytes:              maxImageBytes,
	}
}

type MessageSendInput struct {
	ReceiverID     int64
	Text           string
	Image          string
	OriginalText   string
	TranslatedFrom string
	TranslatedTo   string
}

func (s *MessageService) SendMessage(ctx context.Context, in MessageSendInput, senderID int64) (*domain.Message, error) {
	if in.Text == "" && in.Image == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len([]rune(in.Text)) > 5000 {
		return nil, errors.New("message text exceeds 5000 characters")
	}
	if s.MaxImageBytes > 0 && len(in.Image) > s.MaxImageBytes {
		return nil, errors.New("image too large")
	}

	receiver, err := s.users.GetByID(ctx, in.ReceiverID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errors.New("receiver not found")
		}
		return nil, fmt.Errorf("get receiver: %w", err)
	}
	if !receiver.IsActive {
		return nil, errors.New("receiver not found")
	}

	encText, err := s.encryptor.Encrypt(in.Text)
	if err != nil {
		return nil, fmt.Errorf("encrypt text: %w", err)
	}
	encOriginal, err := s.encryptor.Encrypt(in.OriginalText)
	if err != nil {
		return nil, fmt.Errorf("encrypt original text: %w", err)
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		SenderID:       senderID,
		ReceiverID:     in.ReceiverID,
		Text:           encText,
		Image:          in.Image,
		OriginalText:   encOriginal,
		TranslatedFrom: in.TranslatedFrom,
		TranslatedTo:   in.TranslatedTo,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.MaxMessagesPerConversation > 0 {
		if err := s.messages.PruneOld(ctx, senderID, in.ReceiverID, s.MaxMessagesPerConversation); err != nil {
			return nil, fmt.Errorf("prune old messages: %w", err)
		}
	}

	return s.decrypted(msg)
}

// History returns messages between the caller and another user in
// chronological order, already decrypted.
func (s *MessageService) History(ctx context.Context, callerID, otherID int64, limit int) ([]*domain.Message, error) {
	if limit <= 0 || limit > s.MaxMessagesPerConversation {
		limit = s.MaxMessagesPerConversation
	}

	msgs, err := s.messages.ListBetween(ctx, callerID, otherID, limit)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order (DB returns DESC).
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	res := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		dec, err := s.decrypted(m)
		if err != nil {
			return nil, err
		}
		res = append(res, dec)
	}
	return res, nil
}

// decrypted returns a copy of the message with text fields decrypted.
// On decrypt failure the stored value is passed through unchanged.
func (s *MessageService) decrypted(m *domain.Message) (*domain.Message, error) {
	out := *m
	if text, err := s.encryptor.Decrypt(m.Text); err == nil {
		out.Text = text
	}
	if orig, err := s.encryptor.Decrypt(m.OriginalText); err == nil {
		out.OriginalText = orig
	}
	return &out, nil
}
