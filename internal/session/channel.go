package session

import (
	"context"
	"fmt"

	"github.com/ewhitt/stratus/internal/chat"
)

// Sender delivers outbound conversation traffic to a user's transport.
// The transport decides how to render each kind natively: plain text,
// quick-reply buttons for option sets, a typing indicator.
type Sender interface {
	// SendMessage emits a plain message to the user.
	SendMessage(ctx context.Context, userID, message string) error

	// SendChoices presents an option set to the user.
	SendChoices(ctx context.Context, userID string, options []string) error

	// SendTyping tells the user the bot is working.
	SendTyping(ctx context.Context, userID string) error
}

// Channel is the event-driven chat.Channel: writes go out through the
// Sender, reads suspend on the session's bridge until the transport
// delivers matching text.
type Channel struct {
	userID string
	bridge *Bridge
	sender Sender
}

var (
	_ chat.Channel        = (*Channel)(nil)
	_ chat.TypingNotifier = (*Channel)(nil)
)

// NewChannel binds a channel to one user's bridge and outbound sender.
func NewChannel(userID string, bridge *Bridge, sender Sender) *Channel {
	return &Channel{
		userID: userID,
		bridge: bridge,
		sender: sender,
	}
}

// Input emits the prompt, then suspends until the transport delivers
// text for this session.
func (c *Channel) Input(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		if err := c.sender.SendMessage(ctx, c.userID, prompt); err != nil {
			return "", fmt.Errorf("sending prompt: %w", err)
		}
	}
	return c.bridge.AwaitInput(ctx)
}

// Print emits a message.
func (c *Channel) Print(ctx context.Context, message string) error {
	if err := c.sender.SendMessage(ctx, c.userID, message); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Choose presents the options and re-solicits input until the reply is
// an exact, case-sensitive label match. Cancellation propagates out of
// the retry loop; it is never absorbed here.
func (c *Channel) Choose(ctx context.Context, options ...string) (string, error) {
	if len(options) == 0 {
		return "", chat.ErrNoOptions
	}

	for {
		if err := c.sender.SendChoices(ctx, c.userID, options); err != nil {
			return "", fmt.Errorf("sending choices: %w", err)
		}

		answer, err := c.bridge.AwaitInput(ctx)
		if err != nil {
			return "", err
		}

		for _, opt := range options {
			if answer == opt {
				return opt, nil
			}
		}

		if err := c.Print(ctx, "Try again"); err != nil {
			return "", err
		}
	}
}

// NotifyTyping forwards a typing indicator to the transport.
func (c *Channel) NotifyTyping(ctx context.Context) error {
	return c.sender.SendTyping(ctx, c.userID)
}
