package pages

import (
	core "github.com/goliatone/go-pages/components/pages"
)

// Service exposes the underlying components/pages.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// PageDefinition re-export for applications registering their own pages.
type PageDefinition = core.PageDefinition

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}
