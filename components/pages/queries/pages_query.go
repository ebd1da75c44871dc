package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-pages/components/pages"
)

// PagesInput lists registered pages. It has no filters yet.
type PagesInput struct{}

// SectionSummary describes one section of a page.
type SectionSummary struct {
	Name string            `json:"name"`
	Kind pages.SectionKind `json:"kind"`
}

// PageSummary describes a registered page without its defaults.
type PageSummary struct {
	Code     string           `json:"code"`
	Name     string           `json:"name"`
	Resource string           `json:"resource"`
	Sections []SectionSummary `json:"sections"`
}

type pageLister interface {
	Pages() []pages.PageDefinition
}

// PagesQuery lists the pages an admin can edit.
type PagesQuery struct {
	registry pageLister
}

// NewPagesQuery builds the query.
func NewPagesQuery(registry pageLister) *PagesQuery {
	return &PagesQuery{registry: registry}
}

var _ gocommand.Querier[PagesInput, []PageSummary] = (*PagesQuery)(nil)

// Query returns the registered pages sorted by code.
func (q *PagesQuery) Query(_ context.Context, _ PagesInput) ([]PageSummary, error) {
	defs := q.registry.Pages()
	out := make([]PageSummary, len(defs))
	for i, def := range defs {
		sections := make([]SectionSummary, len(def.Sections))
		for j, section := range def.Sections {
			sections[j] = SectionSummary{Name: section.Name, Kind: section.Kind}
		}
		out[i] = PageSummary{Code: def.Code, Name: def.Name, Resource: def.Resource, Sections: sections}
	}
	return out, nil
}
