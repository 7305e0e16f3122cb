// Package session serializes mutating operations per user session. At most
// one of sync, borrow or repay may be in flight for a session; a second call
// is rejected immediately, never queued. Reads are not serialized.
package session

import (
	"errors"
	"fmt"
	"sync"
)

var ErrActionInProgress = errors.New("another action is already in progress")

type Guard struct {
	mu       sync.Mutex
	inFlight map[string]string
}

func NewGuard() *Guard {
	return &Guard{inFlight: map[string]string{}}
}

// Begin claims the session's busy slot for op. On success the returned
// release func must be deferred at the call site so the slot is freed on
// every path, success or failure. A busy session yields ErrActionInProgress
// naming the operation currently holding the slot.
func (g *Guard) Begin(sessionID, op string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if current, busy := g.inFlight[sessionID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrActionInProgress, current)
	}
	g.inFlight[sessionID] = op

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, sessionID)
			g.mu.Unlock()
		})
	}
	return release, nil
}

// Current returns the operation holding the session's slot, if any.
func (g *Guard) Current(sessionID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	op, busy := g.inFlight[sessionID]
	return op, busy
}
