package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-pages/components/pages"
)

// DocumentInput selects a page document.
type DocumentInput struct {
	Page string `json:"page"`
}

type snapshotService interface {
	Snapshot(ctx context.Context, page string) (pages.DocumentSnapshot, error)
}

// DocumentQuery returns a read-only copy of a page document.
type DocumentQuery struct {
	service snapshotService
}

// NewDocumentQuery builds the query.
func NewDocumentQuery(service snapshotService) *DocumentQuery {
	return &DocumentQuery{service: service}
}

var _ gocommand.Querier[DocumentInput, pages.DocumentSnapshot] = (*DocumentQuery)(nil)

// Query loads the page on first use and snapshots it.
func (q *DocumentQuery) Query(ctx context.Context, input DocumentInput) (pages.DocumentSnapshot, error) {
	return q.service.Snapshot(ctx, input.Page)
}
