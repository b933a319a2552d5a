package streaminghttp

import (
	"errors"
	"testing"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/internal/engine"
	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
)

func newTestSession(t *testing.T, eng *engine.Engine, id string) *engine.Session {
	t.Helper()
	sess, _, err := eng.InitializeSession(t.Context(), id, &mcp.InitializeRequest{
		ProtocolVersion: mcp.LatestProtocolVersion,
		ClientInfo:      mcp.ImplementationInfo{Name: "test", Version: "0"},
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return sess
}

func TestSessionTable_IdleExpiry(t *testing.T) {
	t.Parallel()

	eng := engine.NewEngine(mcpservice.NewServer())
	now := time.Unix(1_700_000_000, 0)

	var evicted []string
	table := newSessionTable(time.Minute, func(e *sessionEntry) {
		evicted = append(evicted, e.sess.ID())
		e.close()
	})
	table.now = func() time.Time { return now }

	idle := table.add(newTestSession(t, eng, "idle"))
	streaming := table.add(newTestSession(t, eng, "streaming"))
	table.acquireStream(streaming)

	now = now.Add(30 * time.Second)
	if _, err := table.load("idle"); err != nil {
		t.Fatalf("load before ttl: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := table.load("idle"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if len(evicted) != 1 || evicted[0] != "idle" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	select {
	case <-idle.done:
	default:
		t.Fatalf("evicted entry was not closed")
	}

	if _, err := table.load("streaming"); err != nil {
		t.Fatalf("session with open stream expired: %v", err)
	}

	table.releaseStream(streaming)
	now = now.Add(2 * time.Minute)
	if got := table.len(); got != 1 {
		t.Fatalf("len before sweep: got %d", got)
	}
	if _, err := table.load("streaming"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after release, got %v", err)
	}
}

func TestSessionTable_NoTTL(t *testing.T) {
	t.Parallel()

	eng := engine.NewEngine(mcpservice.NewServer())
	now := time.Unix(1_700_000_000, 0)
	table := newSessionTable(0, nil)
	table.now = func() time.Time { return now }

	table.add(newTestSession(t, eng, "s1"))
	now = now.Add(24 * time.Hour)
	if _, err := table.load("s1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := table.remove("s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := table.remove("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
