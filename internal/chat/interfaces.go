// Package chat defines the transport-independent conversation I/O
// contract and its local console implementation.
package chat

import (
	"context"
	"errors"
)

// ErrNoOptions indicates Choose was called with an empty option list.
var ErrNoOptions = errors.New("choose requires at least one option")

// Channel is the capability surface a conversation needs from its
// transport: read a line of user text, emit a message, and have the
// user pick one of a fixed set of options.
//
// Input and Choose may suspend indefinitely; both must honor context
// cancellation. The conversation never issues a second Input before the
// first returns on the same channel.
type Channel interface {
	// Input solicits free text from the user. A non-empty prompt is
	// emitted before waiting.
	Input(ctx context.Context, prompt string) (string, error)

	// Print emits a message to the user. Transport errors propagate to
	// the caller rather than being swallowed.
	Print(ctx context.Context, message string) error

	// Choose presents options and blocks until the user picks one. The
	// returned value is always one of the supplied options.
	Choose(ctx context.Context, options ...string) (string, error)
}

// TypingNotifier is implemented by channels that can tell the user the
// bot is busy, such as ahead of a slow lookup.
type TypingNotifier interface {
	NotifyTyping(ctx context.Context) error
}
