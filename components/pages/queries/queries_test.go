package queries

import (
	"context"
	"testing"

	"github.com/goliatone/go-pages/components/pages"
)

type stubSnapshotService struct {
	calls int
	page  string
}

func (s *stubSnapshotService) Snapshot(_ context.Context, page string) (pages.DocumentSnapshot, error) {
	s.calls++
	s.page = page
	return pages.DocumentSnapshot{Page: page}, nil
}

func TestDocumentQuery(t *testing.T) {
	service := &stubSnapshotService{}
	query := NewDocumentQuery(service)
	snap, err := query.Query(context.Background(), DocumentInput{Page: pages.PageImpact})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if service.calls != 1 || snap.Page != pages.PageImpact {
		t.Fatalf("expected 1 call for impact, got %d %s", service.calls, snap.Page)
	}
}

func TestPagesQuery(t *testing.T) {
	query := NewPagesQuery(pages.NewRegistry())
	list, err := query.Query(context.Background(), PagesInput{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(list) != len(pages.DefaultPageDefinitions()) {
		t.Fatalf("expected %d pages, got %d", len(pages.DefaultPageDefinitions()), len(list))
	}
	if list[0].Code != pages.PageAbout || list[0].Resource != "/about-page" {
		t.Fatalf("expected pages sorted by code, got %#v", list[0])
	}
	if len(list[0].Sections) == 0 || list[0].Sections[0].Name != "hero" {
		t.Fatalf("expected section summaries, got %#v", list[0].Sections)
	}
}
