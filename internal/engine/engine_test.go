package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/internal/jsonrpc"
	"github.com/ggoodman/text-analyzer-mcp/internal/metrics"
	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
	"github.com/ggoodman/text-analyzer-mcp/textanalyzer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, srv mcpservice.ServerCapabilities, opts ...EngineOption) (*Engine, *Session) {
	t.Helper()
	e := NewEngine(srv, append([]EngineOption{WithLogger(discardLogger())}, opts...)...)
	sess, _, err := e.InitializeSession(t.Context(), "sess-1", &mcp.InitializeRequest{
		ProtocolVersion: mcp.LatestProtocolVersion,
		ClientInfo:      mcp.ImplementationInfo{Name: "test-client", Version: "1.0.0"},
	})
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if err := e.HandleNotification(t.Context(), sess, &jsonrpc.Request{JSONRPCVersion: jsonrpc.ProtocolVersion, Method: string(mcp.InitializedNotificationMethod)}); err != nil {
		t.Fatalf("initialized notification: %v", err)
	}
	return e, sess
}

func request(id int, method string, params string) *jsonrpc.Request {
	req := &jsonrpc.Request{JSONRPCVersion: jsonrpc.ProtocolVersion, Method: method, ID: jsonrpc.NewRequestID(id)}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func TestInitializeSession(t *testing.T) {
	t.Parallel()

	e := NewEngine(textanalyzer.New(), WithLogger(discardLogger()))

	tests := []struct {
		requested string
		want      string
	}{
		{requested: "2025-03-26", want: "2025-03-26"},
		{requested: "2024-11-05", want: "2024-11-05"},
		{requested: "1999-01-01", want: mcp.LatestProtocolVersion},
		{requested: "", want: mcp.LatestProtocolVersion},
	}
	for _, tt := range tests {
		sess, res, err := e.InitializeSession(t.Context(), "s", &mcp.InitializeRequest{ProtocolVersion: tt.requested})
		if err != nil {
			t.Fatalf("InitializeSession(%q): %v", tt.requested, err)
		}
		if res.ProtocolVersion != tt.want || sess.ProtocolVersion() != tt.want {
			t.Errorf("requested %q: negotiated %q (session %q), want %q", tt.requested, res.ProtocolVersion, sess.ProtocolVersion(), tt.want)
		}
		if res.Capabilities.Tools == nil || res.Capabilities.Resources == nil {
			t.Errorf("expected tools and resources capabilities, got %+v", res.Capabilities)
		}
		if res.ServerInfo.Name != textanalyzer.ServerName {
			t.Errorf("unexpected server info: %+v", res.ServerInfo)
		}
		if sess.Initialized() {
			t.Errorf("session should not be initialized before notifications/initialized")
		}
	}

	if _, _, err := e.InitializeSession(t.Context(), "s", nil); err == nil {
		t.Fatal("expected error for nil initialize request")
	}
}

func TestInitializeWireShape(t *testing.T) {
	t.Parallel()

	var req mcp.InitializeRequest
	raw := `{"protocolVersion":"2025-06-18","capabilities":{"roots":{"listChanged":true},"sampling":{}},"clientInfo":{"name":"c","version":"1","title":"C"}}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode initialize: %v", err)
	}

	e := NewEngine(textanalyzer.New(), WithLogger(discardLogger()))
	_, res, err := e.InitializeSession(t.Context(), "s", &req)
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	caps, err := json.Marshal(res.Capabilities)
	if err != nil {
		t.Fatalf("encode capabilities: %v", err)
	}
	if got, want := string(caps), `{"resources":{},"tools":{}}`; got != want {
		t.Fatalf("capabilities = %s, want %s", got, want)
	}
	info, err := json.Marshal(res.ServerInfo)
	if err != nil {
		t.Fatalf("encode server info: %v", err)
	}
	if got, want := string(info), `{"name":"`+textanalyzer.ServerName+`","version":"`+textanalyzer.Version+`"}`; got != want {
		t.Fatalf("server info = %s, want %s", got, want)
	}
}

func TestHandleRequest(t *testing.T) {
	t.Parallel()

	e, sess := newTestEngine(t, textanalyzer.New())
	if !sess.Initialized() {
		t.Fatal("expected session to be initialized")
	}

	tests := []struct {
		name     string
		method   string
		params   string
		wantCode jsonrpc.ErrorCode
		check    func(t *testing.T, result json.RawMessage)
	}{
		{
			name:   "ping",
			method: "ping",
			check: func(t *testing.T, result json.RawMessage) {
				if string(result) != "{}" {
					t.Fatalf("expected empty object, got %s", result)
				}
			},
		},
		{
			name:   "tools list",
			method: "tools/list",
			check: func(t *testing.T, result json.RawMessage) {
				var res mcp.ListToolsResult
				if err := json.Unmarshal(result, &res); err != nil {
					t.Fatal(err)
				}
				if len(res.Tools) != 5 || res.NextCursor != "" {
					t.Fatalf("expected 5 tools on one page, got %d (cursor %q)", len(res.Tools), res.NextCursor)
				}
			},
		},
		{
			name:   "tools call",
			method: "tools/call",
			params: `{"name":"count_words","arguments":{"text":"Hello world! Hello."}}`,
			check: func(t *testing.T, result json.RawMessage) {
				var res mcp.CallToolResult
				if err := json.Unmarshal(result, &res); err != nil {
					t.Fatal(err)
				}
				if res.IsError || res.StructuredContent["word_count"] != float64(3) || res.StructuredContent["unique_words"] != float64(2) {
					t.Fatalf("unexpected result: %+v", res)
				}
			},
		},
		{
			name:   "tools call bad arguments",
			method: "tools/call",
			params: `{"name":"count_words","arguments":{"text":1}}`,
			check: func(t *testing.T, result json.RawMessage) {
				var res mcp.CallToolResult
				if err := json.Unmarshal(result, &res); err != nil {
					t.Fatal(err)
				}
				if !res.IsError {
					t.Fatalf("expected isError result, got %+v", res)
				}
			},
		},
		{name: "unknown tool", method: "tools/call", params: `{"name":"nope","arguments":{}}`, wantCode: jsonrpc.ErrorCodeInvalidParams},
		{name: "tools call missing name", method: "tools/call", params: `{}`, wantCode: jsonrpc.ErrorCodeInvalidParams},
		{
			name:   "resources list",
			method: "resources/list",
			check: func(t *testing.T, result json.RawMessage) {
				var res mcp.ListResourcesResult
				if err := json.Unmarshal(result, &res); err != nil {
					t.Fatal(err)
				}
				if len(res.Resources) != 1 || res.Resources[0].URI != "file://help" {
					t.Fatalf("unexpected resources: %+v", res.Resources)
				}
			},
		},
		{
			name:   "resources read",
			method: "resources/read",
			params: `{"uri":"file://help"}`,
			check: func(t *testing.T, result json.RawMessage) {
				var res mcp.ReadResourceResult
				if err := json.Unmarshal(result, &res); err != nil {
					t.Fatal(err)
				}
				if len(res.Contents) != 1 || res.Contents[0].Text == "" {
					t.Fatalf("unexpected contents: %+v", res.Contents)
				}
			},
		},
		{name: "resources read unknown", method: "resources/read", params: `{"uri":"file://nope"}`, wantCode: jsonrpc.ErrorCodeResourceNotFound},
		{name: "resources read missing uri", method: "resources/read", params: `{}`, wantCode: jsonrpc.ErrorCodeInvalidParams},
		{
			name:   "resource templates",
			method: "resources/templates/list",
			check: func(t *testing.T, result json.RawMessage) {
				if string(result) != `{"resourceTemplates":[]}` {
					t.Fatalf("unexpected result: %s", result)
				}
			},
		},
		{name: "unknown method", method: "prompts/list", wantCode: jsonrpc.ErrorCodeMethodNotFound},
		{name: "initialize again", method: "initialize", params: `{"protocolVersion":"2025-06-18"}`, wantCode: jsonrpc.ErrorCodeInvalidRequest},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.HandleRequest(t.Context(), sess, request(i+1, tt.method, tt.params))
			if err != nil {
				t.Fatalf("HandleRequest: %v", err)
			}
			if res.ID.String() != jsonrpc.NewRequestID(i+1).String() {
				t.Fatalf("response id %s does not match request", res.ID)
			}
			if tt.wantCode != 0 {
				if res.Error == nil || res.Error.Code != tt.wantCode {
					t.Fatalf("expected error code %d, got %+v", tt.wantCode, res.Error)
				}
				return
			}
			if res.Error != nil {
				t.Fatalf("unexpected error: %+v", res.Error)
			}
			tt.check(t, res.Result)
		})
	}
}

func TestHandleRequestMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	e, sess := newTestEngine(t, textanalyzer.New(), WithMetrics(m))

	if _, err := e.HandleRequest(t.Context(), sess, request(1, "tools/call", `{"name":"count_words","arguments":{"text":"a b"}}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.HandleRequest(t.Context(), sess, request(2, "tools/call", `{"name":"count_words","arguments":{}}`)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.HandleRequest(t.Context(), sess, request(3, "bogus", "")); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("count_words", metrics.OutcomeOK)); got != 1 {
		t.Errorf("tool ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("count_words", metrics.OutcomeToolError)); got != 1 {
		t.Errorf("tool error calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("tools/call", metrics.OutcomeOK)); got != 2 {
		t.Errorf("rpc ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("bogus", metrics.OutcomeError)); got != 1 {
		t.Errorf("rpc error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}

	e.CloseSession(t.Context(), sess)
	e.CloseSession(t.Context(), sess)
	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Errorf("active sessions after close = %v, want 0", got)
	}
}

func inflight(sess *Session) int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.inflight)
}

func TestCancelledNotification(t *testing.T) {
	t.Parallel()

	causes := make(chan error, 1)
	block := mcpservice.NewTool("block", func(ctx context.Context, _ struct{}) (struct{}, error) {
		<-ctx.Done()
		causes <- context.Cause(ctx)
		return struct{}{}, ctx.Err()
	})
	srv := mcpservice.NewServer(mcpservice.WithToolsCapability(mcpservice.NewToolsContainer(block)))
	e, sess := newTestEngine(t, srv)

	done := make(chan *jsonrpc.Response, 1)
	go func() {
		res, _ := e.HandleRequest(t.Context(), sess, request(42, "tools/call", `{"name":"block","arguments":{}}`))
		done <- res
	}()

	deadline := time.Now().Add(5 * time.Second)
	for inflight(sess) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("request never became in-flight")
		}
		time.Sleep(time.Millisecond)
	}

	note := &jsonrpc.Request{
		JSONRPCVersion: jsonrpc.ProtocolVersion,
		Method:         string(mcp.CancelledNotificationMethod),
		Params:         json.RawMessage(`{"requestId":42,"reason":"user abort"}`),
	}
	if err := e.HandleNotification(t.Context(), sess, note); err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}

	select {
	case res := <-done:
		if res == nil || res.Error == nil || res.Error.Message != "cancelled" {
			t.Fatalf("expected cancelled error response, got %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not finish")
	}
	if n := inflight(sess); n != 0 {
		t.Fatalf("expected no in-flight requests, got %d", n)
	}
	if cause := <-causes; !errors.Is(cause, ErrCancelled) {
		t.Fatalf("expected ErrCancelled cause, got %v", cause)
	}
}

func TestClosedSessionRejectsRequests(t *testing.T) {
	t.Parallel()

	e, sess := newTestEngine(t, textanalyzer.New())
	e.CloseSession(t.Context(), sess)

	res, err := e.HandleRequest(t.Context(), sess, request(1, "ping", ""))
	if err != nil {
		t.Fatal(err)
	}
	if res.Error == nil || res.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request error, got %+v", res)
	}
}
