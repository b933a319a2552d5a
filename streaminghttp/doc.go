// Package streaminghttp implements the MCP streamable HTTP transport. It
// mounts as a standard net/http handler serving POST, GET and DELETE on a
// single endpoint.
//
// # Construction
//
//	h, err := streaminghttp.New(
//	    textanalyzer.New(),
//	    streaminghttp.WithEndpoint("/mcp"),
//	    streaminghttp.WithRateLimit(50, 100),
//	)
//
// # Sessions
//
// A POST carrying initialize and no Mcp-Session-Id header creates a session;
// its id and negotiated protocol version are returned in the Mcp-Session-Id
// and Mcp-Protocol-Version response headers. Every later request must carry
// the session id. Sessions live in memory, are discarded after an idle period
// (see WithSessionIdleTTL) and end on DELETE.
//
// # Responses
//
// Requests are answered with a single Server-Sent Event when the client
// accepts text/event-stream and with a plain JSON body otherwise.
// Notifications and client responses are acknowledged with 202 Accepted. GET
// opens a stream for server-initiated messages; this server sends none, so
// the stream carries only keep-alive comments until the session ends.
//
// # Error Handling
//
// Transport-level errors map to HTTP status codes with a small JSON body;
// MCP-level errors are serialized as JSON-RPC error responses.
//
// Example (mount in net/http):
//
//	mux := http.NewServeMux()
//	mux.Handle("/mcp", h)
//	http.ListenAndServe(":8080", mux)
package streaminghttp
