package streaminghttp

import (
	"errors"
	"sync"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/internal/engine"
)

// ErrSessionNotFound is returned for session ids that were never issued,
// have been deleted or have expired.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	sess *engine.Session
	done chan struct{}
	once sync.Once

	// guarded by sessionTable.mu
	lastSeen time.Time
	streams  int
}

func (e *sessionEntry) close() {
	e.once.Do(func() { close(e.done) })
}

// sessionTable is the process-local registry of live sessions. Entries idle
// for longer than idleTTL are evicted lazily on the next add or load; an
// entry with an open GET stream never expires.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	idleTTL  time.Duration
	now      func() time.Time
	onEvict  func(*sessionEntry)
}

func newSessionTable(idleTTL time.Duration, onEvict func(*sessionEntry)) *sessionTable {
	return &sessionTable{
		sessions: make(map[string]*sessionEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
		onEvict:  onEvict,
	}
}

func (t *sessionTable) add(sess *engine.Session) *sessionEntry {
	e := &sessionEntry{sess: sess, done: make(chan struct{})}

	t.mu.Lock()
	expired := t.sweepLocked()
	e.lastSeen = t.now()
	t.sessions[sess.ID()] = e
	t.mu.Unlock()

	t.evict(expired)
	return e
}

func (t *sessionTable) load(id string) (*sessionEntry, error) {
	t.mu.Lock()
	expired := t.sweepLocked()
	e, ok := t.sessions[id]
	if ok {
		e.lastSeen = t.now()
	}
	t.mu.Unlock()

	t.evict(expired)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (t *sessionTable) remove(id string) (*sessionEntry, error) {
	t.mu.Lock()
	e, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// drain removes and returns every entry.
func (t *sessionTable) drain() []*sessionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*sessionEntry, 0, len(t.sessions))
	for id, e := range t.sessions {
		out = append(out, e)
		delete(t.sessions, id)
	}
	return out
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *sessionTable) acquireStream(e *sessionEntry) {
	t.mu.Lock()
	e.streams++
	t.mu.Unlock()
}

func (t *sessionTable) releaseStream(e *sessionEntry) {
	t.mu.Lock()
	e.streams--
	e.lastSeen = t.now()
	t.mu.Unlock()
}

func (t *sessionTable) sweepLocked() []*sessionEntry {
	if t.idleTTL <= 0 {
		return nil
	}
	now := t.now()
	var expired []*sessionEntry
	for id, e := range t.sessions {
		if e.streams > 0 || now.Sub(e.lastSeen) <= t.idleTTL {
			continue
		}
		delete(t.sessions, id)
		expired = append(expired, e)
	}
	return expired
}

func (t *sessionTable) evict(entries []*sessionEntry) {
	for _, e := range entries {
		if t.onEvict != nil {
			t.onEvict(e)
		}
	}
}
