package pages

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// PageManifestDocument models a YAML manifest declaring extra editable pages.
type PageManifestDocument struct {
	Version string           `json:"version" yaml:"version"`
	Name    string           `json:"name,omitempty" yaml:"name,omitempty"`
	Pages   []PageDefinition `json:"pages" yaml:"pages"`
	Source  string           `json:"-" yaml:"-"`
}

// LoadManifestFile reads a manifest from disk and registers its pages.
func (r *Registry) LoadManifestFile(path string) (*PageManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers the pages of a decoded manifest.
func (r *Registry) LoadManifestDocument(doc *PageManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("pages: manifest document is nil")
	}
	for _, page := range doc.Pages {
		if err := r.RegisterPage(page); err != nil {
			return fmt.Errorf("pages: register page %s from %s: %w", page.Code, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file without registering it.
func ReadManifest(path string) (*PageManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("pages: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("pages: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*PageManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc PageManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("pages: manifest is empty")
		}
		return nil, fmt.Errorf("pages: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *PageManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("pages: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Pages))
	for idx, page := range doc.Pages {
		if page.Code == "" {
			return fmt.Errorf("pages: manifest page at index %d is missing code", idx)
		}
		if page.Name == "" {
			return fmt.Errorf("pages: manifest page %s missing name", page.Code)
		}
		if _, exists := seen[page.Code]; exists {
			return fmt.Errorf("pages: manifest duplicates page code %s", page.Code)
		}
		seen[page.Code] = struct{}{}
	}
	return nil
}

func (doc *PageManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
}
