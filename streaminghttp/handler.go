package streaminghttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/text-analyzer-mcp/internal/engine"
	"github.com/ggoodman/text-analyzer-mcp/internal/jsonrpc"
	"github.com/ggoodman/text-analyzer-mcp/internal/logctx"
	"github.com/ggoodman/text-analyzer-mcp/internal/metrics"
	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	jsonMediaType         = contenttype.NewMediaType("application/json")
	eventStreamMediaType  = contenttype.NewMediaType("text/event-stream")
	eventStreamMediaTypes = []contenttype.MediaType{eventStreamMediaType}
	responseMediaTypes    = []contenttype.MediaType{eventStreamMediaType, jsonMediaType}
)

const (
	mcpSessionIDHeader       = "Mcp-Session-Id"
	mcpProtocolVersionHeader = "Mcp-Protocol-Version"

	defaultEndpoint          = "/mcp"
	defaultSessionIdleTTL    = 30 * time.Minute
	defaultKeepAliveInterval = 30 * time.Second
	maxBodyBytes             = 8 << 20
)

// writeJSONError writes a minimal JSON error payload with the provided status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	// Only set content-type if not already committed to SSE.
	if ct := w.Header().Get("Content-Type"); ct == "" || ct == jsonMediaType.String() {
		w.Header().Set("Content-Type", jsonMediaType.String())
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	endpoint  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	rateLimit float64
	rateBurst int
	idleTTL   time.Duration
	keepAlive time.Duration
}

// WithEndpoint sets the path the MCP endpoint is mounted on. Defaults to /mcp.
func WithEndpoint(path string) Option {
	return func(c *newConfig) { c.endpoint = path }
}

// WithLogger sets the logger used by the handler and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithMetrics records HTTP, RPC and tool metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *newConfig) { c.metrics = m }
}

// WithRateLimit admits at most perSecond requests per second across all
// clients with the given burst. Excess requests get 429. A non-positive
// perSecond disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *newConfig) {
		c.rateLimit = perSecond
		c.rateBurst = burst
	}
}

// WithSessionIdleTTL sets how long a session may go unused before it is
// discarded. Zero keeps sessions until they are deleted.
func WithSessionIdleTTL(d time.Duration) Option {
	return func(c *newConfig) { c.idleTTL = d }
}

// WithKeepAliveInterval sets how often a comment frame is written on idle GET
// streams. Zero disables keep-alives.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *newConfig) { c.keepAlive = d }
}

// Handler serves the MCP streamable HTTP transport on a single endpoint.
type Handler struct {
	log       *slog.Logger
	eng       *engine.Engine
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	sessions  *sessionTable
	keepAlive time.Duration
	mux       *http.ServeMux
}

// New constructs a Handler for server.
func New(server mcpservice.ServerCapabilities, opts ...Option) (*Handler, error) {
	if server == nil {
		return nil, fmt.Errorf("server is required")
	}

	cfg := &newConfig{
		endpoint:  defaultEndpoint,
		logger:    slog.Default(),
		idleTTL:   defaultSessionIdleTTL,
		keepAlive: defaultKeepAliveInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if !strings.HasPrefix(cfg.endpoint, "/") {
		return nil, fmt.Errorf("endpoint must be an absolute path, got %q", cfg.endpoint)
	}
	if cfg.rateLimit > 0 && cfg.rateBurst < 1 {
		return nil, fmt.Errorf("rate burst must be at least 1, got %d", cfg.rateBurst)
	}

	h := &Handler{
		log:       logctx.Wrap(cfg.logger),
		metrics:   cfg.metrics,
		keepAlive: cfg.keepAlive,
	}
	h.eng = engine.NewEngine(server, engine.WithLogger(h.log), engine.WithMetrics(cfg.metrics))
	h.sessions = newSessionTable(cfg.idleTTL, h.expireSession)
	if cfg.rateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+cfg.endpoint, h.handlePostMCP)
	mux.HandleFunc("GET "+cfg.endpoint, h.handleGetMCP)
	mux.HandleFunc("DELETE "+cfg.endpoint, h.handleDeleteMCP)
	h.mux = mux

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w}
	defer func() { h.metrics.ObserveHTTP(r.Method, rec.statusCode()) }()

	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.RateLimited()
		h.log.WarnContext(ctx, "http.rate_limited")
		rec.Header().Set("Retry-After", "1")
		writeJSONError(rec, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	h.mux.ServeHTTP(rec, r.WithContext(ctx))
}

// Close ends every session and any GET streams attached to them. Call it
// before shutting down the enclosing http.Server so open streams do not hold
// the shutdown open.
func (h *Handler) Close(ctx context.Context) {
	for _, e := range h.sessions.drain() {
		h.eng.CloseSession(ctx, e.sess)
		e.close()
	}
}

// SessionCount reports the number of live sessions.
func (h *Handler) SessionCount() int {
	return h.sessions.len()
}

func (h *Handler) expireSession(e *sessionEntry) {
	ctx := logctx.WithSessionData(context.Background(), &logctx.SessionData{
		SessionID:       e.sess.ID(),
		ProtocolVersion: e.sess.ProtocolVersion(),
		ClientName:      e.sess.ClientInfo().Name,
	})
	h.eng.CloseSession(ctx, e.sess)
	e.close()
	h.log.InfoContext(ctx, "session.expire")
}

// loadSession resolves the session named by the request headers. It writes
// the error response itself and returns nil when the request must stop.
func (h *Handler) loadSession(ctx context.Context, w http.ResponseWriter, r *http.Request, mismatchStatus int) (context.Context, *sessionEntry) {
	sessID := r.Header.Get(mcpSessionIDHeader)
	if sessID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing session id")
		h.log.WarnContext(ctx, "session.missing_id")
		return ctx, nil
	}

	e, err := h.sessions.load(sessID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			h.log.InfoContext(ctx, "session.load.miss")
			return ctx, nil
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		h.log.ErrorContext(ctx, "session.load.fail", slog.String("err", err.Error()))
		return ctx, nil
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       e.sess.ID(),
		ProtocolVersion: e.sess.ProtocolVersion(),
		ClientName:      e.sess.ClientInfo().Name,
	})

	if pv := r.Header.Get(mcpProtocolVersionHeader); pv != "" && pv != e.sess.ProtocolVersion() {
		writeJSONError(w, mismatchStatus, "protocol version mismatch")
		h.log.WarnContext(ctx, "protocol.version.mismatch", slog.String("client_version", pv))
		return ctx, nil
	}

	return ctx, e
}

// handlePostMCP handles POST requests, which carry one client message each
// and establish the session when that message is initialize.
func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		}
		h.log.WarnContext(ctx, "json.decode.fail", slog.String("err", err.Error()))
		return
	}
	if len(raw) > 0 && raw[0] == '[' {
		writeJSONError(w, http.StatusBadRequest, "JSON-RPC batch arrays are not supported")
		h.log.WarnContext(ctx, "jsonrpc.batch.forbidden")
		return
	}

	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON-RPC message: "+err.Error())
		h.log.WarnContext(ctx, "jsonrpc.message.invalid", slog.String("err", err.Error()))
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})

	if r.Header.Get(mcpSessionIDHeader) == "" {
		h.handleInitialize(ctx, w, &msg, start)
		return
	}

	ctx, e := h.loadSession(ctx, w, r, http.StatusBadRequest)
	if e == nil {
		return
	}
	sess := e.sess

	switch msg.Type() {
	case jsonrpc.TypeNotification:
		if err := h.eng.HandleNotification(ctx, sess, msg.AsRequest()); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid notification")
			h.log.WarnContext(ctx, "notification.inbound.fail", slog.String("err", err.Error()))
			return
		}
		w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "notification.inbound.ok", slog.Duration("dur", time.Since(start)))

	case jsonrpc.TypeResponse:
		// The server never issues requests, so client responses are dropped.
		w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())
		w.WriteHeader(http.StatusAccepted)
		h.log.DebugContext(ctx, "response.inbound.ignored")

	case jsonrpc.TypeRequest:
		req := msg.AsRequest()
		if req.Method == string(mcp.InitializeMethod) {
			writeJSONError(w, http.StatusConflict, "session already initialized")
			h.log.WarnContext(ctx, "session.initialize.redundant")
			return
		}
		h.handleRequest(ctx, w, r, sess, req, start)
	}
}

func (h *Handler) handleInitialize(ctx context.Context, w http.ResponseWriter, msg *jsonrpc.AnyMessage, start time.Time) {
	req := msg.AsRequest()
	if req == nil || req.IsNotification() || req.Method != string(mcp.InitializeMethod) {
		writeJSONError(w, http.StatusBadRequest, "expected initialize request")
		h.log.InfoContext(ctx, "session.initialize.invalid")
		return
	}

	var initReq mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &initReq); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid initialize params")
		h.log.InfoContext(ctx, "session.initialize.params.fail", slog.String("err", err.Error()))
		return
	}

	sess, initRes, err := h.eng.InitializeSession(ctx, uuid.NewString(), &initReq)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to initialize session")
		h.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		return
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.ID(),
		ProtocolVersion: sess.ProtocolVersion(),
		ClientName:      initReq.ClientInfo.Name,
	})

	resp, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode initialize response")
		h.log.ErrorContext(ctx, "session.initialize.encode.fail", slog.String("err", err.Error()))
		return
	}

	h.sessions.add(sess)

	w.Header().Set(mcpSessionIDHeader, sess.ID())
	w.Header().Set(mcpProtocolVersionHeader, initRes.ProtocolVersion)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.ErrorContext(ctx, "session.initialize.write.fail", slog.String("err", err.Error()))
	}
	h.log.InfoContext(ctx, "session.initialize.ok", slog.Duration("dur", time.Since(start)))
}

// handleRequest answers a request either as a single-event SSE stream or as a
// plain JSON body, whichever the client's Accept header prefers.
func (h *Handler) handleRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *engine.Session, req *jsonrpc.Request, start time.Time) {
	accepted := jsonMediaType
	if acc := r.Header.Get("Accept"); acc != "" {
		mt, _, err := contenttype.GetAcceptableMediaType(r, responseMediaTypes)
		if err != nil {
			writeJSONError(w, http.StatusNotAcceptable, "accept must allow text/event-stream or application/json")
			h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", acc))
			return
		}
		accepted = mt
	}

	var wf *lockedWriteFlusher
	if accepted.Matches(eventStreamMediaType) {
		f, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			h.log.ErrorContext(ctx, "flusher.missing")
			return
		}
		wf = &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}

		w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())
		w.Header().Set("Content-Type", eventStreamMediaType.String())
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		wf.Flush()
	}

	res, err := h.eng.HandleRequest(ctx, sess, req)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.inbound.fail", slog.String("err", err.Error()))
		res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal server error", nil)
	}

	b, err := json.Marshal(res)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.response.marshal.fail", slog.String("err", err.Error()))
		if wf == nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
		return
	}

	if wf != nil {
		if err := writeSSEEvent(wf, b); err != nil {
			h.log.ErrorContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
			return
		}
	} else {
		w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion())
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(b); err != nil {
			h.log.ErrorContext(ctx, "rpc.response.write.fail", slog.String("err", err.Error()))
			return
		}
	}
	h.log.InfoContext(ctx, "rpc.inbound.ok", slog.Duration("dur", time.Since(start)))
}

// handleGetMCP opens the server-to-client stream of a session. This server
// sends nothing unsolicited, so the stream only carries keep-alives until the
// client disconnects or the session ends.
func (h *Handler) handleGetMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	if _, _, err := contenttype.GetAcceptableMediaType(r, eventStreamMediaTypes); err != nil {
		writeJSONError(w, http.StatusNotAcceptable, "accept must allow text/event-stream")
		h.log.WarnContext(ctx, "accept.unsupported", slog.String("accept", r.Header.Get("Accept")))
		return
	}

	f, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		h.log.ErrorContext(ctx, "flusher.missing")
		return
	}

	ctx, e := h.loadSession(ctx, w, r, http.StatusPreconditionFailed)
	if e == nil {
		return
	}

	h.sessions.acquireStream(e)
	defer h.sessions.releaseStream(e)

	wf := &lockedWriteFlusher{Writer: w, Flusher: f, ctx: ctx}
	w.Header().Set(mcpProtocolVersionHeader, e.sess.ProtocolVersion())
	w.Header().Set("Content-Type", eventStreamMediaType.String())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	wf.Flush()

	h.log.InfoContext(ctx, "sse.stream.start")

	var tick <-chan time.Time
	if h.keepAlive > 0 {
		t := time.NewTicker(h.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.log.InfoContext(ctx, "sse.stream.end", slog.String("reason", "client"), slog.Duration("dur", time.Since(start)))
			return
		case <-e.done:
			h.log.InfoContext(ctx, "sse.stream.end", slog.String("reason", "session"), slog.Duration("dur", time.Since(start)))
			return
		case <-tick:
			if err := writeSSEComment(wf, "keepalive"); err != nil {
				h.log.InfoContext(ctx, "sse.write.fail", slog.String("err", err.Error()))
				return
			}
		}
	}
}

// handleDeleteMCP terminates a session.
func (h *Handler) handleDeleteMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.delete.start")

	ctx, e := h.loadSession(ctx, w, r, http.StatusPreconditionFailed)
	if e == nil {
		return
	}

	if _, err := h.sessions.remove(e.sess.ID()); err != nil {
		// Lost a race with another delete or with expiry.
		writeJSONError(w, http.StatusNotFound, "session not found")
		h.log.InfoContext(ctx, "session.delete.miss")
		return
	}
	h.eng.CloseSession(ctx, e.sess)
	e.close()

	w.Header().Set(mcpProtocolVersionHeader, e.sess.ProtocolVersion())
	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "http.delete.ok", slog.Duration("dur", time.Since(start)))
}

type lockedWriteFlusher struct {
	io.Writer
	http.Flusher
	mu  sync.Mutex
	ctx context.Context
}

func (l *lockedWriteFlusher) Write(p []byte) (int, error) {
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return 0, l.ctx.Err()
	}
	return l.Writer.Write(p)
}

func (l *lockedWriteFlusher) Flush() {
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil && l.ctx.Err() != nil {
		return
	}
	l.Flusher.Flush()
}

// writeSSEEvent writes payload as the data field of one Server-Sent Event.
func writeSSEEvent(wf *lockedWriteFlusher, payload []byte) error {
	if _, err := wf.Write([]byte("data: ")); err != nil {
		return fmt.Errorf("failed to write SSE data prefix: %w", err)
	}
	if _, err := wf.Write(payload); err != nil {
		return fmt.Errorf("failed to write SSE payload: %w", err)
	}
	if _, err := wf.Write([]byte("\n\n")); err != nil {
		return fmt.Errorf("failed to write SSE frame terminator: %w", err)
	}
	wf.Flush()
	return nil
}

func writeSSEComment(wf *lockedWriteFlusher, text string) error {
	if _, err := fmt.Fprintf(wf, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write SSE comment: %w", err)
	}
	wf.Flush()
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

func (s *statusRecorder) Flush() {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
