package mcpservice

import (
	"context"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
)

// ServerCapabilities is what the protocol engine needs from a server
// implementation. Implementations MUST be safe for concurrent use.
type ServerCapabilities interface {
	// GetServerInfo returns the implementation information surfaced in the
	// initialize result.
	GetServerInfo(ctx context.Context) (mcp.ImplementationInfo, error)

	// GetInstructions returns optional human-readable instructions for the
	// client. If ok is false no instructions are sent.
	GetInstructions(ctx context.Context) (instructions string, ok bool, err error)

	// GetToolsCapability returns the tools capability. If ok is false, tools
	// are not advertised.
	GetToolsCapability(ctx context.Context) (cap ToolsCapability, ok bool, err error)

	// GetResourcesCapability returns the resources capability. If ok is false,
	// resources are not advertised.
	GetResourcesCapability(ctx context.Context) (cap ResourcesCapability, ok bool, err error)
}

// ToolsCapability lists and invokes tools.
type ToolsCapability interface {
	// ListTools returns a page of tool descriptors. A nil cursor requests the
	// first page.
	ListTools(ctx context.Context, cursor *string) (Page[mcp.Tool], error)

	// CallTool invokes the named tool. Unknown names MUST be reported with an
	// error wrapping ErrToolNotFound. Failures of the tool itself belong in the
	// result with IsError set.
	CallTool(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}

// ResourcesCapability lists and reads resources.
type ResourcesCapability interface {
	ListResources(ctx context.Context, cursor *string) (Page[mcp.Resource], error)
	ListResourceTemplates(ctx context.Context, cursor *string) (Page[mcp.ResourceTemplate], error)

	// ReadResource returns the contents of uri. Unknown URIs MUST be reported
	// with an error wrapping ErrResourceNotFound.
	ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error)
}
