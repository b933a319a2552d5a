package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerAddsContextGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Wrap(slog.New(slog.NewJSONHandler(&buf, nil))).With(slog.String("component", "test"))

	ctx := context.Background()
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/call", ID: "7", Type: "request"})
	ctx = WithToolCallData(ctx, &ToolCallData{ToolName: "count_words"})
	ctx = WithSessionData(ctx, &SessionData{SessionID: "s1", ProtocolVersion: "2025-06-18"})
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if rec["component"] != "test" {
		t.Errorf("component attr lost: %v", rec)
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if rpc["method"] != "tools/call" || rpc["id"] != "7" {
		t.Errorf("unexpected rpc group: %v", rec["rpc"])
	}
	tool, _ := rec["tool"].(map[string]any)
	if tool["name"] != "count_words" {
		t.Errorf("unexpected tool group: %v", rec["tool"])
	}
	sess, _ := rec["sess"].(map[string]any)
	if sess["id"] != "s1" {
		t.Errorf("unexpected sess group: %v", rec["sess"])
	}
	if _, ok := rec["req"]; ok {
		t.Errorf("req group present without request data: %v", rec)
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	t.Parallel()

	l := Wrap(slog.Default())
	if Wrap(l) != l {
		t.Fatal("expected Wrap to return the already wrapped logger")
	}
}
