package engine

import (
	"context"

	"github.com/ggoodman/text-analyzer-mcp/internal/jsonrpc"
)

// MessageWriter delivers an encoded JSON-RPC message to a client.
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg jsonrpc.Message) error
}

// MessageWriterFunc adapts a function to MessageWriter.
type MessageWriterFunc func(ctx context.Context, msg jsonrpc.Message) error

func (f MessageWriterFunc) WriteMessage(ctx context.Context, msg jsonrpc.Message) error {
	return f(ctx, msg)
}
