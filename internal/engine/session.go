package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
)

// Session is the per-connection protocol state created by the initialize
// handshake.
type Session struct {
	id              string
	protocolVersion string
	clientInfo      mcp.ImplementationInfo

	mu          sync.Mutex
	initialized bool
	closed      bool
	inflight    map[string]context.CancelCauseFunc // request id -> cancel
}

func newSession(id, protocolVersion string, req *mcp.InitializeRequest) *Session {
	return &Session{
		id:              id,
		protocolVersion: protocolVersion,
		clientInfo:      req.ClientInfo,
		inflight:        make(map[string]context.CancelCauseFunc),
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) ProtocolVersion() string { return s.protocolVersion }

func (s *Session) ClientInfo() mcp.ImplementationInfo { return s.clientInfo }

// Initialized reports whether the client sent notifications/initialized.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Session) markInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.initialized
	s.initialized = true
	return !was
}

// track registers a cancel function for an in-flight request. It returns
// false when the id is already in flight or the session is closed.
func (s *Session) track(reqID string, cancel context.CancelCauseFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, exists := s.inflight[reqID]; exists {
		return false
	}
	s.inflight[reqID] = cancel
	return true
}

func (s *Session) untrack(reqID string) {
	s.mu.Lock()
	delete(s.inflight, reqID)
	s.mu.Unlock()
}

func (s *Session) cancel(reqID string, cause error) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[reqID]
	s.mu.Unlock()
	if ok {
		cancel(cause)
	}
	return ok
}

// ErrSessionClosed is the cancellation cause of requests still running when
// their session is closed.
var ErrSessionClosed = errors.New("session closed")

// Close cancels every in-flight request of the session. Later requests are
// rejected. It reports whether this call closed the session.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	cancels := make([]context.CancelCauseFunc, 0, len(s.inflight))
	for _, c := range s.inflight {
		cancels = append(cancels, c)
	}
	s.mu.Unlock()
	for _, c := range cancels {
		c(ErrSessionClosed)
	}
	return true
}
