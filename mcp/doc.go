// Package mcp contains the Model Context Protocol data types used by the
// text analyzer's transports and capabilities. Only the parts of the protocol
// the server speaks are modelled: the initialize handshake, tools, resources
// and a handful of housekeeping methods.
//
// The package has no transport logic. stdio and streaminghttp frame these
// types as JSON-RPC messages; mcpservice builds them.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//		Content:           []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: `{"word_count":3}`}},
//		StructuredContent: map[string]any{"word_count": 3},
//	}
package mcp
