package pages

import (
	"context"
	"fmt"
	"sync"
)

// Options configures the pages Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	Backend   Backend
	Registry  PageRegistry
	Telemetry Telemetry
	Notifier  Notifier
	Hook      DocumentHook
	Uploads   UploadPolicy
	NewID     func() string
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	o.Telemetry = normalizeTelemetry(o.Telemetry)
	if o.Notifier == nil {
		o.Notifier = noopNotifier{}
	}
	if o.Hook == nil {
		o.Hook = noopDocumentHook{}
	}
	if o.Uploads.MaxImageBytes == 0 && o.Uploads.MaxDocumentBytes == 0 && len(o.Uploads.AllowedTypes) == 0 {
		o.Uploads = DefaultUploadPolicy()
	}
	if o.NewID == nil {
		o.NewID = NewTempID
	}
	return o
}

// Service keeps one Editor per page and routes admin operations to it.
type Service struct {
	opts Options

	mu      sync.Mutex
	editors map[string]*Editor
}

// NewService builds a Service with safe defaults.
func NewService(opts Options) *Service {
	return &Service{
		opts:    opts.withDefaults(),
		editors: map[string]*Editor{},
	}
}

// Registry exposes the page registry.
func (s *Service) Registry() PageRegistry { return s.opts.Registry }

// Open returns the editor for page, loading the document on first use.
func (s *Service) Open(ctx context.Context, page string) (*Editor, error) {
	if page == "" {
		return nil, errInvalidPage
	}
	if s.opts.Backend == nil {
		return nil, errMissingBackend
	}
	s.mu.Lock()
	editor, ok := s.editors[page]
	s.mu.Unlock()
	if ok {
		return editor, nil
	}
	def, ok := s.opts.Registry.Page(page)
	if !ok {
		return nil, fmt.Errorf("pages: page %s: %w", page, ErrNotFound)
	}
	editor, err := NewEditor(def, s.opts)
	if err != nil {
		return nil, err
	}
	if err := editor.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.editors[page]; ok {
		editor.Close()
		return existing, nil
	}
	s.editors[page] = editor
	return editor, nil
}

// Snapshot returns a read-only copy of the page document.
func (s *Service) Snapshot(ctx context.Context, page string) (DocumentSnapshot, error) {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return DocumentSnapshot{}, err
	}
	doc, err := editor.loaded()
	if err != nil {
		return DocumentSnapshot{}, err
	}
	return doc.Snapshot(), nil
}

// Reload discards local edits and fetches the page again.
func (s *Service) Reload(ctx context.Context, page string) error {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return err
	}
	return editor.Load(ctx)
}

// Save persists the whole page document.
func (s *Service) Save(ctx context.Context, page string) error {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return err
	}
	return editor.Save(ctx)
}

// SaveSections persists the named sections with concurrent requests.
func (s *Service) SaveSections(ctx context.Context, page string, sections []string) error {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return err
	}
	return editor.SaveSections(ctx, sections...)
}

// MoveItemRequest captures a drag-and-drop reorder.
type MoveItemRequest struct {
	Page    string `json:"page"`
	Section string `json:"section"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

// MoveItem reorders a collection and persists the order immediately.
func (s *Service) MoveItem(ctx context.Context, req MoveItemRequest) error {
	editor, err := s.Open(ctx, req.Page)
	if err != nil {
		return err
	}
	return editor.Move(ctx, req.Section, req.From, req.To)
}

// Upload sends a file through the page's upload endpoint and merges the URL.
func (s *Service) Upload(ctx context.Context, page string, req UploadRequest) (string, error) {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return "", err
	}
	return editor.Upload(ctx, req)
}

// ItemRequest edits one collection item. An empty ID adds a new item.
type ItemRequest struct {
	Page    string `json:"page"`
	Section string `json:"section"`
	ID      string `json:"id,omitempty"`
	Fields  Fields `json:"fields"`
}

// EditItem adds or updates a collection item locally.
func (s *Service) EditItem(ctx context.Context, req ItemRequest) (Item, error) {
	editor, err := s.Open(ctx, req.Page)
	if err != nil {
		return Item{}, err
	}
	return editor.EditItem(ctx, req.Section, IdentityFromServer(req.ID), req.Fields)
}

// RemoveItem deletes a collection item locally.
func (s *Service) RemoveItem(ctx context.Context, page, section, id string) error {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return err
	}
	return editor.RemoveItem(section, IdentityFromServer(id))
}

// SetFields writes scalar section fields locally.
func (s *Service) SetFields(ctx context.Context, page, section string, fields Fields) error {
	editor, err := s.Open(ctx, page)
	if err != nil {
		return err
	}
	return editor.SetFields(section, fields)
}

// Close tears down the editor for page. In-flight results are discarded.
func (s *Service) Close(page string) {
	s.mu.Lock()
	editor, ok := s.editors[page]
	delete(s.editors, page)
	s.mu.Unlock()
	if ok {
		editor.Close()
	}
}
