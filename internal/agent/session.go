package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned by Send after Close.
var ErrSessionClosed = errors.New("session closed")

// Session is one conversation. Turns of a session run one at a time;
// different sessions run concurrently.
type Session struct {
	id   string
	loop *Loop
	conv *Conversation

	// turnMu serializes turns.
	turnMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	usedIDs map[string]bool
}

// NewSession opens a session with an empty conversation.
func (l *Loop) NewSession(ctx context.Context) *Session {
	s := &Session{
		id:      uuid.NewString(),
		loop:    l,
		conv:    NewConversation(),
		usedIDs: make(map[string]bool),
	}
	l.metrics.IncrementActiveSessions(ctx)
	l.logger.Debug("session opened", "session_id", s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Conversation returns the session's log.
func (s *Session) Conversation() *Conversation {
	return s.conv
}

// Send runs one turn for text. It waits for a running turn of the same
// session to finish first. The only errors are ErrSessionClosed and
// context cancellation, checked before the turn starts and between steps.
func (s *Session) Send(ctx context.Context, text string) (Reply, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.isClosed() {
		return Reply{}, ErrSessionClosed
	}
	return s.loop.turn(ctx, s, text)
}

// Close ends the session. A turn in progress finishes; later Sends fail.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.loop.metrics.DecrementActiveSessions(context.Background())
	s.loop.logger.Debug("session closed", "session_id", s.id, "turns", s.conv.Len())
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// invocationID keeps the provider's call id when it is new to the session
// and generates one otherwise.
func (s *Session) invocationID(proposed string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := proposed
	if id == "" || s.usedIDs[id] {
		id = "call_" + uuid.NewString()
	}
	s.usedIDs[id] = true
	return id
}
