package goadmin

import (
	"context"
	"errors"
	"path"

	pagespkg "github.com/goliatone/go-pages/pkg/pages"
)

// MenuBuilder ensures page editor entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures page editor link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Parent   string
	Position int
}

// Config wires the page service + feature flags into an admin shell.
type Config struct {
	EnablePages     bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Service         *pagespkg.Service
	BasePath        string
	DefaultMenuItem MenuItem
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed page editor menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnablePages && cfg.Service == nil {
		return nil, errors.New("goadmin: pages service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/admin/pages"
	}
	if cfg.DefaultMenuItem.Label == "" {
		cfg.DefaultMenuItem.Label = "Pages"
	}
	if cfg.DefaultMenuItem.Route == "" {
		cfg.DefaultMenuItem.Route = cfg.BasePath
	}
	if cfg.DefaultMenuItem.Icon == "" {
		cfg.DefaultMenuItem.Icon = "file-text"
	}
	return &Admin{cfg: cfg}, nil
}

// Pages exposes the configured page service when enabled.
func (a *Admin) Pages() *pagespkg.Service {
	if !a.cfg.EnablePages {
		return nil
	}
	return a.cfg.Service
}

// Bootstrap seeds the "Pages" menu entry plus one child entry per registered page.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnablePages || a.cfg.MenuBuilder == nil {
		return nil
	}
	parent := a.cfg.DefaultMenuItem
	if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, parent); err != nil {
		return err
	}
	for idx, def := range a.cfg.Service.Registry().Pages() {
		item := MenuItem{
			Label:    def.Name,
			Route:    path.Join(a.cfg.BasePath, def.Code),
			Parent:   parent.Label,
			Position: idx,
		}
		if item.Label == "" {
			item.Label = def.Code
		}
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return err
		}
	}
	return nil
}
