package mcpservice

import (
	"errors"
	"testing"
)

func TestResourcesContainer(t *testing.T) {
	t.Parallel()

	rc := NewResourcesContainer(
		TextResource("file://a", "a", "text/plain", "first"),
		TextResource("file://b", "b", "text/plain", "second"),
		TextResource("file://a", "a", "text/plain", "replaced"),
	)
	ctx := t.Context()

	page, err := rc.ListResources(ctx, nil)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].URI != "file://a" || page.Items[1].URI != "file://b" {
		t.Fatalf("unexpected resources: %+v", page.Items)
	}

	contents, err := rc.ReadResource(ctx, "file://a")
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(contents) != 1 || contents[0].Text != "replaced" || contents[0].MimeType != "text/plain" {
		t.Fatalf("unexpected contents: %+v", contents)
	}

	if _, err := rc.ReadResource(ctx, "file://missing"); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}

	tpls, err := rc.ListResourceTemplates(ctx, nil)
	if err != nil {
		t.Fatalf("ListResourceTemplates: %v", err)
	}
	if tpls.Items == nil || len(tpls.Items) != 0 {
		t.Fatalf("expected empty non-nil templates, got %#v", tpls.Items)
	}
}

func TestParseCursor(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]int{"": 0, "3": 3, "-1": 0, "x": 0} {
		s := in
		if got := parseCursor(&s); got != want {
			t.Errorf("parseCursor(%q) = %d, want %d", in, got, want)
		}
	}
	if got := parseCursor(nil); got != 0 {
		t.Errorf("parseCursor(nil) = %d", got)
	}
}
