package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
	"github.com/invopop/jsonschema"
)

// ErrToolNotFound is returned by ToolsCapability.CallTool for unknown names.
var ErrToolNotFound = errors.New("tool not found")

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// ToolOption configures NewTool behavior.
type ToolOption func(*toolConfig)

type toolConfig struct {
	description string
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// NewTool constructs a StaticTool from a function with typed arguments A and a
// typed result O.
//
// The input schema is reflected from A and the output schema from O using
// invopop/jsonschema. Fields without omitempty are required; jsonschema
// "default=" tags are advertised as parameter defaults. The input schema sets
// additionalProperties=false and decoding rejects unknown fields. At call time the raw
// arguments are decoded into A. Decoding failures and missing required
// arguments are reported in-band as an error result rather than as a protocol
// error. The value returned by fn is sent both as structuredContent and as a
// single JSON text block.
func NewTool[A, O any](name string, fn func(ctx context.Context, args A) (O, error), opts ...ToolOption) StaticTool {
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	input := reflectInputSchema[A]()
	output := reflectOutputSchema[O]()
	desc := mcp.Tool{
		Name:         name,
		Description:  cfg.description,
		InputSchema:  input,
		OutputSchema: &output,
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
		args, err := decodeArguments[A](req.Arguments, input.Required)
		if err != nil {
			return Errorf("invalid arguments: %v", err), nil
		}
		out, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		return StructuredResult(out)
	}

	return StaticTool{Descriptor: desc, Handler: handler}
}

func decodeArguments[A any](raw json.RawMessage, required []string) (A, error) {
	var a A
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if len(required) > 0 {
			return a, fmt.Errorf("missing required argument %q", required[0])
		}
		return a, nil
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &present); err != nil {
		return a, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	for _, name := range required {
		if _, ok := present[name]; !ok {
			return a, fmt.Errorf("missing required argument %q", name)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return a, err
	}
	return a, nil
}

// StructuredResult renders v as a tool result carrying v as structuredContent
// and as one indented JSON text block. Values that do not encode to a JSON
// object only produce the text block.
func StructuredResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	text := bytes.TrimRight(buf.Bytes(), "\n")

	res := TextResult(string(text))
	var structured map[string]any
	if err := json.Unmarshal(text, &structured); err == nil {
		res.StructuredContent = structured
	}
	return res, nil
}

// TextResult is a small helper to build a text CallToolResult.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: s}}}
}

// Errorf returns an error CallToolResult with a single text block and IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	msg := fmt.Sprintf(format, a...)
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: msg}}, IsError: true}
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
}

// reflectInputSchema reflects A into the simplified mcp.ToolInputSchema.
// Non-object types yield an empty object schema.
func reflectInputSchema[A any]() mcp.ToolInputSchema {
	s := newReflector().Reflect(new(A))
	props, required := objectShape(s)
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func reflectOutputSchema[O any]() mcp.ToolOutputSchema {
	s := newReflector().Reflect(new(O))
	props, required := objectShape(s)
	return mcp.ToolOutputSchema{Type: "object", Properties: props, Required: required}
}

func objectShape(s *jsonschema.Schema) (map[string]mcp.SchemaProperty, []string) {
	props := make(map[string]mcp.SchemaProperty)
	if s == nil || s.Type != "object" || s.Properties == nil {
		return props, nil
	}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		props[el.Key] = toMCPProperty(el.Value)
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return props, required
}

// toMCPProperty recursively maps a jsonschema.Schema to the simplified MCP SchemaProperty.
func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Default:     s.Default,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" {
		p.Properties, p.Required = objectShape(s)
	}
	return p
}

// ToolsContainer owns an immutable set of tool descriptors and handlers and
// implements ToolsCapability over them. It is safe for concurrent use.
type ToolsContainer struct {
	tools    []mcp.Tool             // descriptors in registration order
	handlers map[string]ToolHandler // name -> handler

	pageSize int
}

var _ ToolsCapability = (*ToolsContainer)(nil)

// NewToolsContainer constructs a ToolsContainer with the given tool
// definitions. On duplicate names the last definition wins.
func NewToolsContainer(defs ...StaticTool) *ToolsContainer {
	tc := &ToolsContainer{
		handlers: make(map[string]ToolHandler, len(defs)),
		pageSize: defaultPageSize,
	}
	for _, d := range defs {
		tc.put(d)
	}
	return tc
}

func (tc *ToolsContainer) put(d StaticTool) {
	name := d.Descriptor.Name
	if _, exists := tc.handlers[name]; exists {
		for i := range tc.tools {
			if tc.tools[i].Name == name {
				tc.tools[i] = d.Descriptor
			}
		}
	} else {
		tc.tools = append(tc.tools, d.Descriptor)
	}
	tc.handlers[name] = d.Handler
}

// Snapshot returns a copy of the current tool descriptors.
func (tc *ToolsContainer) Snapshot() []mcp.Tool {
	out := make([]mcp.Tool, len(tc.tools))
	copy(out, tc.tools)
	return out
}

// ListTools implements ToolsCapability.
func (tc *ToolsContainer) ListTools(ctx context.Context, cursor *string) (Page[mcp.Tool], error) {
	return paginate(tc.tools, tc.pageSize, cursor), nil
}

// CallTool implements ToolsCapability.
func (tc *ToolsContainer) CallTool(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	h := tc.handlers[req.Name]
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, req.Name)
	}
	return h(ctx, req)
}
