package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-pages/components/pages"
	"github.com/goliatone/go-pages/pkg/cmsapi"
)

type cli struct {
	BaseURL  string     `name:"base-url" env:"PAGES_BASE_URL" help:"Root URL of the CMS REST API."`
	APIKey   string     `name:"api-key" env:"PAGES_API_KEY" help:"Bearer token sent to the CMS API."`
	Manifest []string   `help:"Page manifest files registering extra pages (repeatable)."`
	LogLevel slog.Level `name:"log-level" default:"info" help:"Log level (debug, info, warn, error)."`

	Pages    pagesCmd    `cmd:"" help:"List editable pages and their sections."`
	Show     showCmd     `cmd:"" help:"Print the stored document of a page."`
	Push     pushCmd     `cmd:"" help:"Apply section values from a YAML/JSON file and save the page."`
	Scaffold scaffoldCmd `cmd:"" help:"Add a page entry to a manifest file."`
	Serve    serveCmd    `cmd:"" help:"Serve the page editor admin API."`
}

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Description("Page content utility for go-pages CMS documents."),
		kong.UsageOnError(),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run(&root)
	ctx.FatalIfErrorf(err)
}

func (g *cli) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: g.LogLevel}))
}

func (g *cli) registry() (*pages.Registry, error) {
	reg := pages.NewRegistry()
	for _, path := range g.Manifest {
		if _, err := reg.LoadManifestFile(path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (g *cli) service(logger *slog.Logger, hook pages.DocumentHook) (*pages.Service, error) {
	if g.BaseURL == "" {
		return nil, fmt.Errorf("pagectl: --base-url (or PAGES_BASE_URL) is required")
	}
	reg, err := g.registry()
	if err != nil {
		return nil, err
	}
	client, err := cmsapi.NewClient(cmsapi.Config{BaseURL: g.BaseURL, APIKey: g.APIKey})
	if err != nil {
		return nil, err
	}
	return pages.NewService(pages.Options{
		Backend:   client,
		Registry:  reg,
		Telemetry: pages.NewSlogTelemetry(logger),
		Notifier:  pages.LogNotifier{Logger: logger},
		Hook:      hook,
	}), nil
}
