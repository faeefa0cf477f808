package session

import "errors"

// Rejections returned by Manager entry points and the input bridge.
var (
	// ErrAlreadyRunning indicates a start request for a user whose
	// conversation has not yet terminated.
	ErrAlreadyRunning = errors.New("conversation already running")

	// ErrNotStarted indicates text routing or cancellation for a user
	// with no active conversation.
	ErrNotStarted = errors.New("conversation not started")

	// ErrReadPending indicates a second concurrent input request on a
	// bridge whose slot is already open.
	ErrReadPending = errors.New("input request already pending")

	// ErrRateLimited indicates the user exceeded their start budget.
	ErrRateLimited = errors.New("too many conversation starts")
)
