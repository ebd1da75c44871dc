package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pages/components/pages"
)

type pushCmd struct {
	Page     string   `arg:"" help:"Page code to update."`
	File     string   `arg:"" type:"path" help:"YAML or JSON file mapping section names to values."`
	Sections []string `help:"Save only these sections, one request each (defaults to the whole document)."`
	Prune    bool     `help:"Remove collection items whose id is not listed in the file."`
}

func (cmd *pushCmd) Run(ctx context.Context, g *cli) error {
	values, err := readSectionValues(cmd.File)
	if err != nil {
		return err
	}
	svc, err := g.service(g.logger(), nil)
	if err != nil {
		return err
	}
	defer svc.Close(cmd.Page)
	if err := applySectionValues(ctx, svc, cmd.Page, values, cmd.Prune); err != nil {
		return err
	}
	if len(cmd.Sections) > 0 {
		err = svc.SaveSections(ctx, cmd.Page, cmd.Sections)
	} else {
		err = svc.Save(ctx, cmd.Page)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Pushed %s from %s\n", cmd.Page, cmd.File)
	return nil
}

// readSectionValues decodes a file of section values. JSON parses as YAML.
func readSectionValues(path string) (map[string]any, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("pagectl: open %s: %w", path, err)
	}
	defer f.Close()
	return decodeSectionValues(f)
}

func decodeSectionValues(r io.Reader) (map[string]any, error) {
	var values map[string]any
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("pagectl: parse section values: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("pagectl: section values file is empty")
	}
	return values, nil
}

// applySectionValues writes scalar sections and upserts collection items. Items
// carrying an "id" update that item; the rest are added in file order.
func applySectionValues(ctx context.Context, svc *pages.Service, page string, values map[string]any, prune bool) error {
	editor, err := svc.Open(ctx, page)
	if err != nil {
		return err
	}
	def := editor.Definition()
	for name, value := range values {
		section, ok := def.Section(name)
		if !ok {
			return fmt.Errorf("pagectl: page %s has no section %s", page, name)
		}
		if section.Kind != pages.SectionCollection {
			fields, ok := value.(map[string]any)
			if !ok {
				return fmt.Errorf("pagectl: section %s expects an object", name)
			}
			if err := svc.SetFields(ctx, page, name, fields); err != nil {
				return err
			}
			continue
		}
		list, ok := value.([]any)
		if !ok {
			return fmt.Errorf("pagectl: section %s expects a list", name)
		}
		if err := applyItems(ctx, svc, page, name, list, prune); err != nil {
			return err
		}
	}
	return nil
}

func applyItems(ctx context.Context, svc *pages.Service, page, section string, list []any, prune bool) error {
	listed := map[string]struct{}{}
	for idx, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			return fmt.Errorf("pagectl: %s item %d is not an object", section, idx)
		}
		fields = pages.Fields(fields).Clone()
		id, _ := fields["id"].(string)
		delete(fields, "id")
		if id != "" {
			listed[id] = struct{}{}
		}
		req := pages.ItemRequest{Page: page, Section: section, ID: id, Fields: fields}
		if _, err := svc.EditItem(ctx, req); err != nil {
			return fmt.Errorf("pagectl: %s item %d: %w", section, idx, err)
		}
	}
	if !prune {
		return nil
	}
	snap, err := svc.Snapshot(ctx, page)
	if err != nil {
		return err
	}
	for _, item := range snap.Collections[section] {
		if item.Temporary {
			continue
		}
		if _, keep := listed[item.ID]; keep {
			continue
		}
		if err := svc.RemoveItem(ctx, page, section, item.ID); err != nil {
			return err
		}
	}
	return nil
}
