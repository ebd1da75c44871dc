package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pages/components/pages"
)

type scaffoldCmd struct {
	Name         string            `required:"" help:"Display name of the page."`
	Code         string            `help:"Page code (defaults to the snake_case name)."`
	Resource     string            `help:"REST resource of the page (defaults to /<code>-page)."`
	Section      []string          `help:"Section as name or name:kind with kind fields|collection (repeatable)."`
	Schema       map[string]string `help:"JSON schema file per section, as section=path (repeatable)."`
	ManifestPath string            `required:"" type:"path" help:"Path to the page manifest YAML file to update."`
	Overwrite    bool              `help:"Replace an existing manifest entry with the same code."`
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	entry, err := cmd.page()
	if err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("pagectl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	if err := upsertPage(doc, entry, cmd.Overwrite); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s\n", entry.Code, manifestPath)
	return nil
}

func (cmd *scaffoldCmd) page() (pages.PageDefinition, error) {
	code := cmd.Code
	if code == "" {
		code = strcase.ToSnake(cmd.Name)
	}
	if code == "" {
		return pages.PageDefinition{}, errors.New("pagectl: page code is required")
	}
	resource := cmd.Resource
	if resource == "" {
		resource = "/" + strcase.ToKebab(code) + "-page"
	}
	def := pages.PageDefinition{Code: code, Name: cmd.Name, Resource: resource}
	for _, raw := range cmd.Section {
		section, err := parseSection(raw)
		if err != nil {
			return pages.PageDefinition{}, err
		}
		def.Sections = append(def.Sections, section)
	}
	for name, path := range cmd.Schema {
		idx := sectionIndex(def.Sections, strcase.ToSnake(name))
		if idx < 0 {
			return pages.PageDefinition{}, fmt.Errorf("pagectl: schema given for unknown section %s", name)
		}
		schema, err := loadSchema(path)
		if err != nil {
			return pages.PageDefinition{}, err
		}
		def.Sections[idx].Schema = schema
	}
	// Registering validates the entry the same way loading the manifest will.
	if err := pages.NewEmptyRegistry().RegisterPage(def); err != nil {
		return pages.PageDefinition{}, err
	}
	return def, nil
}

func parseSection(raw string) (pages.SectionDefinition, error) {
	name, kind, _ := strings.Cut(raw, ":")
	name = strcase.ToSnake(strings.TrimSpace(name))
	if name == "" {
		return pages.SectionDefinition{}, fmt.Errorf("pagectl: invalid section %q", raw)
	}
	section := pages.SectionDefinition{Name: name, Kind: pages.SectionFields}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", string(pages.SectionFields):
	case string(pages.SectionCollection), "list":
		section.Kind = pages.SectionCollection
	default:
		return pages.SectionDefinition{}, fmt.Errorf("pagectl: section %s has unknown kind %q", name, kind)
	}
	return section, nil
}

func sectionIndex(sections []pages.SectionDefinition, name string) int {
	for i, s := range sections {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func loadSchema(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("pagectl: read schema file: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("pagectl: parse schema JSON: %w", err)
	}
	return schema, nil
}

func upsertPage(doc *pages.PageManifestDocument, entry pages.PageDefinition, overwrite bool) error {
	replaced := false
	for idx := range doc.Pages {
		if doc.Pages[idx].Code != entry.Code {
			continue
		}
		if !overwrite {
			return fmt.Errorf("pagectl: manifest already defines page %s (use --overwrite to replace)", entry.Code)
		}
		doc.Pages[idx] = entry
		replaced = true
		break
	}
	if !replaced {
		doc.Pages = append(doc.Pages, entry)
	}
	sort.Slice(doc.Pages, func(i, j int) bool { return doc.Pages[i].Code < doc.Pages[j].Code })
	return nil
}

func loadOrInitManifest(path string) (*pages.PageManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &pages.PageManifestDocument{
				Version: pages.ManifestVersion,
				Pages:   []pages.PageDefinition{},
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("pagectl: stat manifest: %w", err)
	}
	return pages.ReadManifest(path)
}

func writeManifest(path string, doc *pages.PageManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pagectl: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmpDoc := *doc
	tmpDoc.Source = ""

	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("pagectl: create manifest %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(tmpDoc); err != nil {
		return fmt.Errorf("pagectl: write manifest: %w", err)
	}
	return nil
}
