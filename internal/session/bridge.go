package session

import (
	"context"
	"fmt"
	"sync"
)

// Bridge turns out-of-band arrival of user text into a single in-order
// blocking read. At most one read may be pending per session at any
// instant; text that arrives while no read is pending is dropped, not
// buffered.
type Bridge struct {
	mu      sync.Mutex
	pending chan string
}

// NewBridge creates an empty bridge with no pending read.
func NewBridge() *Bridge {
	return &Bridge{}
}

// AwaitInput opens the bridge's slot and blocks until Deliver resolves
// it or ctx is canceled. Opening a second slot while one is pending is
// a contract violation and fails with ErrReadPending rather than
// silently displacing the first reader.
func (b *Bridge) AwaitInput(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.pending != nil {
		b.mu.Unlock()
		return "", ErrReadPending
	}
	slot := make(chan string, 1)
	b.pending = slot
	b.mu.Unlock()

	select {
	case text := <-slot:
		return text, nil
	case <-ctx.Done():
		b.mu.Lock()
		if b.pending == slot {
			b.pending = nil
		}
		b.mu.Unlock()
		return "", fmt.Errorf("awaiting input: %w", ctx.Err())
	}
}

// Deliver resolves the open slot with text, waking the suspended
// AwaitInput, and reports whether anything was waiting. With no open
// slot the text is discarded.
func (b *Bridge) Deliver(text string) bool {
	b.mu.Lock()
	slot := b.pending
	b.pending = nil
	b.mu.Unlock()

	if slot == nil {
		return false
	}
	// The slot is buffered, so this never blocks even if the reader was
	// just canceled.
	slot <- text
	return true
}
