// Package stdio implements a single-connection MCP transport over
// stdin/stdout. It is intended for running the server as a subprocess of an
// MCP client, which is how desktop assistants launch local tools.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Sessions         : one, created by initialize, memory only
//	Framing          : newline-delimited JSON-RPC 2.0
//	Concurrency      : requests run concurrently; writes are serialized
//
// Messages received before initialize are rejected with an invalid request
// error. Lines that are not valid JSON are answered with a parse error whose
// id is null. Logs never go to the output stream; point the logger at stderr.
//
// Example:
//
//	h := stdio.NewHandler(textanalyzer.New(), stdio.WithLogger(logger))
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
package stdio
