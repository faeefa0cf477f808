package mocks

import (
	"context"
	"sync"

	"github.com/ewhitt/stratus/internal/session"
)

var _ session.Sender = (*MockSender)(nil)

// SentMessage is one recorded outbound message.
type SentMessage struct {
	UserID string
	Text   string
}

// SentChoices is one recorded outbound option set.
type SentChoices struct {
	UserID  string
	Options []string
}

// MockSender records outbound traffic for assertions.
type MockSender struct {
	mu sync.Mutex

	// SendErr, when set, is returned by every send operation.
	SendErr error

	messages []SentMessage
	choices  []SentChoices
	typing   []string
}

// SendMessage records a plain message.
func (s *MockSender) SendMessage(_ context.Context, userID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}
	s.messages = append(s.messages, SentMessage{UserID: userID, Text: message})
	return nil
}

// SendChoices records an option set.
func (s *MockSender) SendChoices(_ context.Context, userID string, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}
	s.choices = append(s.choices, SentChoices{UserID: userID, Options: append([]string(nil), options...)})
	return nil
}

// SendTyping records a typing indicator.
func (s *MockSender) SendTyping(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}
	s.typing = append(s.typing, userID)
	return nil
}

// Messages returns the recorded plain messages, in order.
func (s *MockSender) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.messages...)
}

// Choices returns the recorded option sets, in order.
func (s *MockSender) Choices() []SentChoices {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentChoices(nil), s.choices...)
}

// TypingCalls returns the users that received typing indicators.
func (s *MockSender) TypingCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.typing...)
}
