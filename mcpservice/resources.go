package mcpservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/ggoodman/text-analyzer-mcp/mcp"
)

// ErrResourceNotFound is returned by ResourcesCapability.ReadResource for
// unknown URIs.
var ErrResourceNotFound = errors.New("resource not found")

// StaticResource pairs a resource descriptor with its contents.
type StaticResource struct {
	Descriptor mcp.Resource
	Contents   []mcp.ResourceContents
}

// TextResource builds a StaticResource holding a single text body.
func TextResource(uri, name, mimeType, text string) StaticResource {
	return StaticResource{
		Descriptor: mcp.Resource{URI: uri, Name: name, MimeType: mimeType},
		Contents:   []mcp.ResourceContents{{URI: uri, MimeType: mimeType, Text: text}},
	}
}

// ResourcesContainer owns an immutable set of static resources and implements
// ResourcesCapability over them. It advertises no templates and is safe for
// concurrent use.
type ResourcesContainer struct {
	resources []mcp.Resource
	contents  map[string][]mcp.ResourceContents

	pageSize int
}

var _ ResourcesCapability = (*ResourcesContainer)(nil)

// NewResourcesContainer constructs a ResourcesContainer. On duplicate URIs the
// last definition wins.
func NewResourcesContainer(defs ...StaticResource) *ResourcesContainer {
	rc := &ResourcesContainer{
		contents: make(map[string][]mcp.ResourceContents, len(defs)),
		pageSize: defaultPageSize,
	}
	for _, d := range defs {
		uri := d.Descriptor.URI
		if _, exists := rc.contents[uri]; exists {
			for i := range rc.resources {
				if rc.resources[i].URI == uri {
					rc.resources[i] = d.Descriptor
				}
			}
		} else {
			rc.resources = append(rc.resources, d.Descriptor)
		}
		rc.contents[uri] = append([]mcp.ResourceContents(nil), d.Contents...)
	}
	return rc
}

func (rc *ResourcesContainer) ListResources(ctx context.Context, cursor *string) (Page[mcp.Resource], error) {
	return paginate(rc.resources, rc.pageSize, cursor), nil
}

func (rc *ResourcesContainer) ListResourceTemplates(ctx context.Context, cursor *string) (Page[mcp.ResourceTemplate], error) {
	return paginate[mcp.ResourceTemplate](nil, rc.pageSize, cursor), nil
}

func (rc *ResourcesContainer) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	c, ok := rc.contents[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}
	out := make([]mcp.ResourceContents, len(c))
	copy(out, c)
	return out, nil
}
