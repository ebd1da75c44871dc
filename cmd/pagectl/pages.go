package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pages/components/pages"
	"github.com/goliatone/go-pages/components/pages/queries"
)

type pagesCmd struct{}

func (cmd *pagesCmd) Run(ctx context.Context, g *cli) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	list, err := queries.NewPagesQuery(reg).Query(ctx, queries.PagesInput{})
	if err != nil {
		return err
	}
	return writePages(os.Stdout, list)
}

func writePages(out io.Writer, list []queries.PageSummary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tRESOURCE\tSECTIONS")
	for _, page := range list {
		names := make([]string, len(page.Sections))
		for i, s := range page.Sections {
			names[i] = s.Name
			if s.Kind == pages.SectionCollection {
				names[i] += "[]"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", page.Code, page.Name, page.Resource, strings.Join(names, ", "))
	}
	return tw.Flush()
}

type showCmd struct {
	Page string `arg:"" help:"Page code (home, about, ...)."`
}

func (cmd *showCmd) Run(ctx context.Context, g *cli) error {
	svc, err := g.service(g.logger(), nil)
	if err != nil {
		return err
	}
	defer svc.Close(cmd.Page)
	snap, err := queries.NewDocumentQuery(svc).Query(ctx, queries.DocumentInput{Page: cmd.Page})
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("pagectl: encode document: %w", err)
	}
	return nil
}
