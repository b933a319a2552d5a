// Package mcpservice provides the building blocks an MCP server is assembled
// from: capability interfaces consumed by the protocol engine, typed tools with
// reflected JSON schemas, and static tool and resource containers.
//
// Quick start:
//
//	type GreetArgs struct {
//	    Name string `json:"name" jsonschema:"description=Who to greet"`
//	}
//	type Greeting struct {
//	    Message string `json:"message"`
//	}
//
//	tools := mcpservice.NewToolsContainer(
//	    mcpservice.NewTool("greet", func(ctx context.Context, a GreetArgs) (Greeting, error) {
//	        return Greeting{Message: "hello " + a.Name}, nil
//	    }, mcpservice.WithToolDescription("Greet someone")),
//	)
//	resources := mcpservice.NewResourcesContainer(
//	    mcpservice.TextResource("file://readme", "readme", "text/plain", "read me"),
//	)
//
//	srv := mcpservice.NewServer(
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "example", Version: "1.0.0"}),
//	    mcpservice.WithToolsCapability(tools),
//	    mcpservice.WithResourcesCapability(resources),
//	)
//
// Conventions:
//   - Capability discovery methods return (cap, ok, err). A false ok means the
//     capability is not offered; err is reserved for unexpected failures.
//   - Pagination uses Page[T]; a nil cursor requests the first page.
//   - Unknown tool names and resource URIs are reported with ErrToolNotFound
//     and ErrResourceNotFound so transports can map them to protocol errors.
package mcpservice
