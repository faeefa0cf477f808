package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ewhitt/stratus/internal/session"
)

func TestBridge_DeliverResolvesAwait(t *testing.T) {
	bridge := session.NewBridge()

	type result struct {
		text string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		text, err := bridge.AwaitInput(context.Background())
		resultCh <- result{text, err}
	}()

	// Wait for the slot to open before delivering.
	deadline := time.After(2 * time.Second)
	for {
		if bridge.Deliver("Paris") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("slot never opened")
		case <-time.After(time.Millisecond):
		}
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if res.text != "Paris" {
			t.Errorf("expected %q, got %q", "Paris", res.text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitInput never returned")
	}
}

func TestBridge_DeliverWithNoSlotDropsText(t *testing.T) {
	bridge := session.NewBridge()

	if bridge.Deliver("dropped") {
		t.Error("expected Deliver with no open slot to report false")
	}

	// The dropped text must not satisfy a later read.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := bridge.AwaitInput(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBridge_ConcurrentAwaitIsRejected(t *testing.T) {
	bridge := session.NewBridge()

	firstStarted := make(chan struct{})
	firstDone := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		close(firstStarted)
		_, err := bridge.AwaitInput(ctx)
		firstDone <- err
	}()

	<-firstStarted
	// Give the first reader time to open the slot.
	waitForPending(t, bridge)

	if _, err := bridge.AwaitInput(context.Background()); !errors.Is(err, session.ErrReadPending) {
		t.Errorf("expected ErrReadPending, got %v", err)
	}

	// The first reader must still be resolvable.
	if !bridge.Deliver("still mine") {
		t.Error("expected first reader's slot to survive the rejected read")
	}
	if err := <-firstDone; err != nil {
		t.Errorf("unexpected error for first reader: %v", err)
	}
}

func TestBridge_CancellationUnblocksAndClearsSlot(t *testing.T) {
	bridge := session.NewBridge()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := bridge.AwaitInput(ctx)
		errCh <- err
	}()

	waitForPending(t, bridge)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not unblock AwaitInput")
	}

	// The slot must be cleared: a fresh read works and a stray Deliver
	// before it is dropped.
	if bridge.Deliver("stray") {
		t.Error("expected stray Deliver after cancellation to be dropped")
	}
}

func TestBridge_OneDeliverResolvesExactlyOneRead(t *testing.T) {
	bridge := session.NewBridge()

	const readers = 8
	var wg sync.WaitGroup
	resolved := make(chan string, readers)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if text, err := bridge.AwaitInput(ctx); err == nil {
				resolved <- text
			}
		}()
	}

	waitForPending(t, bridge)
	bridge.Deliver("only once")
	wg.Wait()
	close(resolved)

	count := 0
	for range resolved {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one resolved read, got %d", count)
	}
}

// waitForPending spins until the bridge has an open slot, using a probe
// read rejection as the signal.
func waitForPending(t *testing.T, bridge *session.Bridge) {
	t.Helper()

	probe, cancel := context.WithCancel(context.Background())
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		_, err := bridge.AwaitInput(probe)
		if errors.Is(err, session.ErrReadPending) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("no slot opened in time")
		case <-time.After(time.Millisecond):
		}
	}
}
