package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/internal/engine"
	"github.com/ggoodman/text-analyzer-mcp/internal/jsonrpc"
	"github.com/ggoodman/text-analyzer-mcp/internal/logctx"
	"github.com/ggoodman/text-analyzer-mcp/internal/metrics"
	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/ggoodman/text-analyzer-mcp/mcpservice"
	"github.com/google/uuid"
)

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout.
//
// The handler is transport-only; it delegates all MCP semantics to the provided
// mcpservice.ServerCapabilities.
type Handler struct {
	srv     mcpservice.ServerCapabilities
	r       io.Reader
	w       io.Writer
	l       *slog.Logger
	metrics *metrics.Metrics

	writeMu sync.Mutex
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv mcpservice.ServerCapabilities, opts ...Option) *Handler {
	h := &Handler{
		srv: srv,
		r:   os.Stdin,
		w:   os.Stdout,
		l:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type line struct {
	data []byte
	err  error
}

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It is safe to call at most once per Handler. On EOF it waits for
// in-flight requests to be answered and returns nil.
func (h *Handler) Serve(ctx context.Context) error {
	log := logctx.Wrap(h.l)
	eng := engine.NewEngine(h.srv, engine.WithLogger(log), engine.WithMetrics(h.metrics))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan line)
	go func() {
		br := bufio.NewReader(h.r)
		for {
			b, err := br.ReadBytes('\n')
			if len(b) > 0 {
				select {
				case lines <- line{data: b}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case lines <- line{err: err}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	c := &conn{h: h, eng: eng, log: log}
	defer func() {
		c.inflight.Wait()
		if c.sess != nil {
			eng.CloseSession(context.WithoutCancel(ctx), c.sess)
		}
	}()

	log.InfoContext(ctx, "stdio.serve.start")

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "stdio.serve.stop", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case ln := <-lines:
			if ln.err != nil {
				if errors.Is(ln.err, io.EOF) {
					log.InfoContext(ctx, "stdio.serve.eof")
					return nil
				}
				log.ErrorContext(ctx, "stdio.serve.read.fail", slog.String("err", ln.err.Error()))
				return fmt.Errorf("read input: %w", ln.err)
			}
			c.handleLine(ctx, ln.data)
		}
	}
}

func (h *Handler) writeMessage(ctx context.Context, msg jsonrpc.Message) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if _, err := h.w.Write(append(msg, '\n')); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// conn is the state of the single stdio connection. sess is only touched by
// the read loop.
type conn struct {
	h        *Handler
	eng      *engine.Engine
	log      *slog.Logger
	sess     *engine.Session
	inflight sync.WaitGroup
}

func (c *conn) write(ctx context.Context, res *jsonrpc.Response) {
	b, err := json.Marshal(res)
	if err != nil {
		c.log.ErrorContext(ctx, "stdio.write.marshal.fail", slog.String("err", err.Error()))
		return
	}
	if err := engine.MessageWriterFunc(c.h.writeMessage).WriteMessage(ctx, b); err != nil {
		c.log.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
	}
}

func (c *conn) handleLine(ctx context.Context, data []byte) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return
	}

	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		if !json.Valid(data) {
			c.log.InfoContext(ctx, "stdio.handle_message.parse_error", slog.String("err", err.Error()))
			c.write(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "parse error", nil))
			return
		}
		c.log.InfoContext(ctx, "stdio.handle_message.invalid", slog.String("err", err.Error()))
		c.write(ctx, jsonrpc.NewErrorResponse(probeID(data), jsonrpc.ErrorCodeInvalidRequest, "invalid request", nil))
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})

	switch msg.Type() {
	case jsonrpc.TypeResponse:
		// This server never issues requests to the client.
		c.log.DebugContext(ctx, "stdio.handle_message.unexpected_response")
	case jsonrpc.TypeNotification:
		c.handleNotification(ctx, msg.AsRequest())
	case jsonrpc.TypeRequest:
		c.handleRequest(ctx, msg.AsRequest())
	}
}

func (c *conn) handleNotification(ctx context.Context, note *jsonrpc.Request) {
	if c.sess == nil {
		c.log.InfoContext(ctx, "stdio.handle_notification.before_initialize")
		return
	}
	if err := c.eng.HandleNotification(ctx, c.sess, note); err != nil {
		c.log.InfoContext(ctx, "stdio.handle_notification.fail", slog.String("err", err.Error()))
	}
}

func (c *conn) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	if req.Method == string(mcp.InitializeMethod) {
		c.handleInitialize(ctx, req)
		return
	}
	if c.sess == nil {
		c.log.InfoContext(ctx, "stdio.handle_request.before_initialize")
		c.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "server not initialized", nil))
		return
	}

	sess := c.sess
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		start := time.Now()
		res, err := c.eng.HandleRequest(ctx, sess, req)
		if err != nil {
			c.log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			res = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
		c.write(ctx, res)
	}()
}

func (c *conn) handleInitialize(ctx context.Context, req *jsonrpc.Request) {
	if c.sess != nil {
		c.log.InfoContext(ctx, "session.initialize.fail", slog.String("err", "already initialized"))
		c.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil))
		return
	}

	var initReq mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &initReq); err != nil {
		c.log.InfoContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		c.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil))
		return
	}

	sess, initRes, err := c.eng.InitializeSession(ctx, uuid.NewString(), &initReq)
	if err != nil {
		c.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		c.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil))
		return
	}

	res, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		c.log.ErrorContext(ctx, "session.initialize.fail", slog.String("err", err.Error()))
		c.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil))
		return
	}
	c.sess = sess
	c.log.InfoContext(ctx, "session.initialize.ok", slog.String("session_id", sess.ID()))
	c.write(ctx, res)
}

// probeID extracts the id of a well-formed JSON value that failed JSON-RPC
// validation so the error can be correlated.
func probeID(data []byte) *jsonrpc.RequestID {
	var probe struct {
		ID *jsonrpc.RequestID `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}
	return probe.ID
}
