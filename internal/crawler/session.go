package crawler

import (
	"sync/atomic"
	"time"

	"campcompass/roompotcrawler/pkg/errors"

	"github.com/google/uuid"
)

// sessionState is the implementation-specific part of a session
type sessionState interface {
	close() error
}

// Session is an open browser/network context owned by one crawler
type Session struct {
	ID       string
	Crawler  string
	OpenedAt time.Time

	closed atomic.Bool
	state  sessionState
}

func newSession(crawler string, state sessionState) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Crawler:  crawler,
		OpenedAt: time.Now(),
		state:    state,
	}
}

// IsOpen reports whether the session can still be used
func (s *Session) IsOpen() bool {
	return s != nil && !s.closed.Load()
}

// Close releases the session; later calls are no-ops
func (s *Session) Close() error {
	_, err := s.release()
	return err
}

// release closes the session and reports whether this call did the closing
func (s *Session) release() (bool, error) {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return false, nil
	}
	if s.state == nil {
		return true, nil
	}
	return true, s.state.close()
}

// checkSession verifies that s is open and belongs to the named crawler
func checkSession(crawler string, s *Session) error {
	switch {
	case s == nil:
		return errors.NewSession(crawler, "Browser context not initialized - call Open() first", nil)
	case s.closed.Load():
		return errors.NewSession(crawler, "session "+s.ID+" is closed", nil)
	case s.Crawler != crawler:
		return errors.NewSession(crawler, "session "+s.ID+" belongs to "+s.Crawler, nil)
	}
	return nil
}
