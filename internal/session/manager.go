package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitt/stratus/internal/chat"
)

// DefaultIdleTimeout is how long a session may sit without inbound text
// before CancelIdle reaps it.
const DefaultIdleTimeout = 30 * time.Minute

// Runner executes one conversation over a channel, returning when the
// conversation terminates or ctx is canceled.
type Runner interface {
	Run(ctx context.Context, ch chat.Channel) error
}

// Stats reports registry counters.
type Stats struct {
	Active int `json:"active"`
	Idle   int `json:"idle"`
}

// record is one live conversation.
type record struct {
	id           string
	bridge       *Bridge
	cancel       context.CancelFunc
	lastActivity time.Time
	done         chan struct{}
}

// Manager owns the set of active sessions keyed by user identity. It
// starts conversations, cancels them, and routes inbound text to the
// right session's bridge. All registry mutations happen under one lock;
// sessions themselves run independently.
type Manager struct {
	runner  Runner
	sender  Sender
	limiter *Limiter
	logger  *slog.Logger
	idle    time.Duration

	mu       sync.Mutex
	sessions map[string]*record
	wg       sync.WaitGroup
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLimiter enables per-user start rate limiting.
func WithLimiter(limiter *Limiter) ManagerOption {
	return func(m *Manager) {
		m.limiter = limiter
	}
}

// WithIdleTimeout sets the idle window used by CancelIdle.
func WithIdleTimeout(idle time.Duration) ManagerOption {
	return func(m *Manager) {
		if idle > 0 {
			m.idle = idle
		}
	}
}

// NewManager creates a session manager.
func NewManager(runner Runner, sender Sender, opts ...ManagerOption) (*Manager, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	m := &Manager{
		runner:   runner,
		sender:   sender,
		logger:   slog.Default(),
		idle:     DefaultIdleTimeout,
		sessions: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start spawns a conversation for userID and returns immediately; the
// conversation runs on its own goroutine until it terminates or is
// canceled. The session lives within ctx, so a transport that passes
// its connection context gets sessions that die with the connection. A
// user may have at most one live session.
func (m *Manager) Start(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[userID]; exists {
		return fmt.Errorf("user %s: %w", userID, ErrAlreadyRunning)
	}
	if m.limiter != nil && !m.limiter.Allow(userID) {
		return fmt.Errorf("user %s: %w", userID, ErrRateLimited)
	}

	runCtx, cancel := context.WithCancel(ctx)
	rec := &record{
		id:           uuid.NewString(),
		bridge:       NewBridge(),
		cancel:       cancel,
		lastActivity: time.Now(),
		done:         make(chan struct{}),
	}
	m.sessions[userID] = rec

	channel := NewChannel(userID, rec.bridge, m.sender)
	m.wg.Add(1)
	go m.run(runCtx, userID, rec, channel)

	m.logger.Info("session started", "user", userID, "session", rec.id)
	return nil
}

// run executes one conversation and retires its record afterwards.
func (m *Manager) run(ctx context.Context, userID string, rec *record, ch chat.Channel) {
	defer m.wg.Done()
	defer close(rec.done)
	defer rec.cancel()

	err := m.runner.Run(ctx, ch)

	m.mu.Lock()
	// Cancel may have removed the record already, and the user may even
	// have started a fresh session since; only remove our own.
	if m.sessions[userID] == rec {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	switch {
	case err == nil:
		m.logger.Info("session completed", "user", userID, "session", rec.id)
	case errors.Is(err, context.Canceled):
		m.logger.Info("session canceled", "user", userID, "session", rec.id)
	default:
		m.logger.Error("session failed", "user", userID, "session", rec.id, "error", err)
	}
}

// RouteText forwards inbound text to the user's pending read. Text that
// arrives while the session has no read pending is dropped by the
// bridge, not queued.
func (m *Manager) RouteText(userID, text string) error {
	m.mu.Lock()
	rec, ok := m.sessions[userID]
	if ok {
		rec.lastActivity = time.Now()
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotStarted)
	}

	if !rec.bridge.Deliver(text) {
		m.logger.Debug("dropped text with no pending read", "user", userID, "session", rec.id)
	}
	return nil
}

// Cancel aborts the user's conversation, unblocking any suspended read,
// and removes the session so a later Start is accepted.
func (m *Manager) Cancel(userID string) error {
	m.mu.Lock()
	rec, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotStarted)
	}

	rec.cancel()
	m.logger.Info("session cancel requested", "user", userID, "session", rec.id)
	return nil
}

// Stats returns current registry counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{Active: len(m.sessions)}
	now := time.Now()
	for _, rec := range m.sessions {
		if now.Sub(rec.lastActivity) > m.idle {
			stats.Idle++
		}
	}
	return stats
}

// CancelIdle cancels every session idle past the configured window and
// returns how many were reaped.
func (m *Manager) CancelIdle() int {
	now := time.Now()

	m.mu.Lock()
	var reaped []*record
	for userID, rec := range m.sessions {
		if now.Sub(rec.lastActivity) > m.idle {
			delete(m.sessions, userID)
			reaped = append(reaped, rec)
			m.logger.Info("reaping idle session", "user", userID, "session", rec.id)
		}
	}
	m.mu.Unlock()

	for _, rec := range reaped {
		rec.cancel()
	}
	return len(reaped)
}

// ReapIdle cancels idle sessions on a ticker until ctx is done.
func (m *Manager) ReapIdle(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := m.CancelIdle(); reaped > 0 {
				m.logger.Info("reaped idle sessions", "count", reaped)
			}
		}
	}
}

// Shutdown cancels every live session and waits for their goroutines to
// finish, or until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for userID, rec := range m.sessions {
		rec.cancel()
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions to stop: %w", ctx.Err())
	}
}
