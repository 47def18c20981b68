package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is one live connection. Outbound payloads go through a
// buffered outbox; publishers never block on a slow client, they drop.
type Session struct {
	id  string
	out chan []byte

	done      chan struct{}
	closeOnce sync.Once

	dropped atomic.Int64
}

// NewSession creates a session with the given outbox capacity.
func NewSession(buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		id:   uuid.NewString(),
		out:  make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// ID returns the session identifier assigned at creation.
func (s *Session) ID() string {
	return s.id
}

// Outbox returns the channel the connection's write pump drains.
func (s *Session) Outbox() <-chan []byte {
	return s.out
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send enqueues a payload without blocking. It returns false when the
// session is closed or its outbox is full; a full outbox counts the
// payload as dropped.
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.out <- payload:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close marks the session closed. Idempotent. The outbox channel is
// left open so concurrent Sends never panic; the write pump exits via
// Done instead.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Dropped returns how many payloads were discarded due to a full outbox.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}
