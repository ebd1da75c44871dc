package pages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

var errNotLoaded = errors.New("pages: document not loaded")

// Editor aggregates one page document and persists it through a Backend. Edits are
// local until Save; reorders and uploads go to the backend immediately.
type Editor struct {
	def       PageDefinition
	backend   Backend
	telemetry Telemetry
	notifier  Notifier
	hook      DocumentHook
	uploads   UploadPolicy
	newID     func() string

	mu     sync.RWMutex
	doc    *Document
	closed bool
}

// NewEditor builds an editor for def. Load must be called before editing.
func NewEditor(def PageDefinition, opts Options) (*Editor, error) {
	if opts.Backend == nil {
		return nil, errMissingBackend
	}
	if def.Code == "" {
		return nil, errInvalidPage
	}
	opts = opts.withDefaults()
	return &Editor{
		def:       def,
		backend:   opts.Backend,
		telemetry: opts.Telemetry,
		notifier:  opts.Notifier,
		hook:      opts.Hook,
		uploads:   opts.Uploads,
		newID:     opts.NewID,
	}, nil
}

// Definition returns the page definition.
func (e *Editor) Definition() PageDefinition { return e.def }

// Document returns the current document, nil before the first Load. The pointer
// is replaced wholesale by every reload.
func (e *Editor) Document() *Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Load fetches the document. A missing document installs the page defaults.
func (e *Editor) Load(ctx context.Context) error {
	if err := e.load(ctx); err != nil {
		e.fail(ctx, "load", err)
		return err
	}
	return nil
}

func (e *Editor) load(ctx context.Context) error {
	if e.isClosed() {
		return ErrClosed
	}
	source := "remote"
	raw, err := e.backend.FetchDocument(ctx, e.def.Resource)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		raw = defaultDocument(e.def)
		source = "defaults"
	}
	doc, err := NewDocument(e.def, raw, e.newID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.doc = doc
	e.mu.Unlock()
	event := "pages.document.load"
	if source == "defaults" {
		event = "pages.document.default"
	}
	e.telemetry.Record(ctx, event, map[string]any{
		"page":     e.def.Code,
		"resource": e.def.Resource,
	})
	return nil
}

// Save validates every section, writes the whole document and reloads it. Nothing
// is sent when validation fails.
func (e *Editor) Save(ctx context.Context) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		e.fail(ctx, "save", err)
		return err
	}
	payload := doc.Payload()
	op := "update"
	err = e.backend.UpdateDocument(ctx, e.def.Resource, payload)
	if errors.Is(err, ErrNotFound) {
		op = "create"
		err = e.backend.CreateDocument(ctx, e.def.Resource, payload)
	}
	if err != nil {
		e.fail(ctx, "save", err)
		return err
	}
	if e.isClosed() {
		return nil
	}
	e.telemetry.Record(ctx, "pages.document.save", map[string]any{
		"page": e.def.Code,
		"op":   op,
	})
	e.committed(ctx, DocumentEvent{Page: e.def.Code, Reason: "save"})
	if err := e.load(ctx); err != nil {
		err = fmt.Errorf("pages: reload %s after save: %w", e.def.Code, err)
		e.fail(ctx, "reload", err)
		return err
	}
	e.notify(ctx, "save", "Page saved")
	return nil
}

// SaveSections writes each named section (all when none given) with its own request,
// concurrently. Every failure is reported in a *SaveError even though other
// sections may have been committed. The document is reloaded only when all succeed.
func (e *Editor) SaveSections(ctx context.Context, names ...string) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = doc.SectionNames()
	}
	if err := doc.Validate(names...); err != nil {
		e.fail(ctx, "save", err)
		return err
	}
	payloads := make(map[string]any, len(names))
	for _, name := range names {
		payload, ok := doc.SectionPayload(name)
		if !ok {
			err := fmt.Errorf("pages: section %s: %w", name, ErrNotFound)
			e.fail(ctx, "save", err)
			return err
		}
		payloads[name] = payload
	}

	var (
		mu       sync.Mutex
		failures []SectionFailure
		g        errgroup.Group
	)
	for _, name := range names {
		payload := payloads[name]
		g.Go(func() error {
			if err := e.backend.UpdateSection(ctx, e.def.Resource, name, payload); err != nil {
				mu.Lock()
				failures = append(failures, SectionFailure{Section: name, Err: err})
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		rank := make(map[string]int, len(names))
		for i, name := range names {
			rank[name] = i
		}
		sort.Slice(failures, func(i, j int) bool {
			return rank[failures[i].Section] < rank[failures[j].Section]
		})
		saveErr := &SaveError{Page: e.def.Code, Failures: failures}
		e.fail(ctx, "save", saveErr)
		return saveErr
	}
	if e.isClosed() {
		return nil
	}
	e.telemetry.Record(ctx, "pages.sections.save", map[string]any{
		"page":     e.def.Code,
		"sections": len(names),
	})
	for _, name := range names {
		e.committed(ctx, DocumentEvent{Page: e.def.Code, Section: name, Reason: "save"})
	}
	if err := e.load(ctx); err != nil {
		err = fmt.Errorf("pages: reload %s after save: %w", e.def.Code, err)
		e.fail(ctx, "reload", err)
		return err
	}
	e.notify(ctx, "save", "Page saved")
	return nil
}

// Move reorders a collection locally and persists the new order right away. If the
// reorder request fails the document is reloaded, discarding the local move.
func (e *Editor) Move(ctx context.Context, section string, from, to int) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	c, ok := doc.Collection(section)
	if !ok {
		err := fmt.Errorf("pages: collection %s: %w", section, ErrNotFound)
		e.fail(ctx, "reorder", err)
		return err
	}
	if err := c.Move(from, to); err != nil {
		e.fail(ctx, "reorder", err)
		return err
	}
	if from == to {
		return nil
	}
	req := ReorderPayload(c)
	if len(req.Items) == 0 {
		return nil
	}
	if err := e.backend.ReorderSection(ctx, e.def.Resource, req); err != nil {
		e.fail(ctx, "reorder", err)
		if rerr := e.load(ctx); rerr != nil {
			return errors.Join(err, fmt.Errorf("pages: revert %s: %w", section, rerr))
		}
		return err
	}
	e.telemetry.Record(ctx, "pages.section.reorder", map[string]any{
		"page":    e.def.Code,
		"section": section,
		"count":   len(req.Items),
	})
	e.committed(ctx, DocumentEvent{Page: e.def.Code, Section: section, Reason: "reorder"})
	return nil
}

// Upload checks the file locally, posts it and merges the returned URL into the
// document right away so it is visible before the next save.
func (e *Editor) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if _, err := e.loaded(); err != nil {
		return "", err
	}
	file, err := e.uploads.Check(req.Field, req.File)
	if err != nil {
		e.fail(ctx, "upload", err)
		return "", err
	}
	url, err := e.backend.Upload(ctx, e.def.Resource, req.Field, file)
	if err != nil {
		e.fail(ctx, "upload", err)
		return "", err
	}
	if e.isClosed() {
		return url, nil
	}
	if err := e.mergeUpload(e.Document(), req, url); err != nil {
		e.fail(ctx, "upload", err)
		return url, err
	}
	e.telemetry.Record(ctx, "pages.asset.upload", map[string]any{
		"page":    e.def.Code,
		"section": req.Section,
		"field":   req.Field,
		"size":    file.Size,
	})
	e.notify(ctx, "upload", "File uploaded")
	return url, nil
}

func (e *Editor) mergeUpload(doc *Document, req UploadRequest, url string) error {
	c, ok := doc.Collection(req.Section)
	if !ok {
		return doc.SetField(req.Section, req.Field, url)
	}
	if !req.Item.IsZero() {
		return c.SetField(req.Item, req.Field, url)
	}
	s := c.Session()
	if s.Mode() == SessionIdle {
		s.BeginAdd(nil)
	}
	return s.Set(req.Field, url)
}

// EditItem applies fields to a collection item through the section's edit session.
// A zero id adds a new item, reusing an add draft already in progress (for example
// one holding an uploaded image). Nothing is sent until the next save. On
// validation failure the draft stays active for correction.
func (e *Editor) EditItem(ctx context.Context, section string, id Identity, fields Fields) (Item, error) {
	doc, err := e.loaded()
	if err != nil {
		return Item{}, err
	}
	c, ok := doc.Collection(section)
	if !ok {
		err := fmt.Errorf("pages: collection %s: %w", section, ErrNotFound)
		e.fail(ctx, "edit", err)
		return Item{}, err
	}
	s := c.Session()
	switch {
	case id.IsZero():
		if s.Mode() != SessionAdding {
			s.BeginAdd(nil)
		}
	case s.Mode() != SessionEditing || s.Target() != id:
		if err := s.BeginEdit(id); err != nil {
			e.fail(ctx, "edit", err)
			return Item{}, err
		}
	}
	for k, v := range fields {
		if err := s.Set(k, v); err != nil {
			return Item{}, err
		}
	}
	item, err := s.Save()
	if err != nil {
		e.fail(ctx, "edit", err)
		return Item{}, err
	}
	return item, nil
}

// CancelEdit discards the active draft of a collection.
func (e *Editor) CancelEdit(section string) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	c, ok := doc.Collection(section)
	if !ok {
		return fmt.Errorf("pages: collection %s: %w", section, ErrNotFound)
	}
	c.Session().Cancel()
	return nil
}

// RemoveItem deletes an item locally. Unknown identities are ignored.
func (e *Editor) RemoveItem(section string, id Identity) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	c, ok := doc.Collection(section)
	if !ok {
		return fmt.Errorf("pages: collection %s: %w", section, ErrNotFound)
	}
	c.Remove(id)
	return nil
}

// SetFields writes scalar section fields locally. They are validated on save.
func (e *Editor) SetFields(section string, fields Fields) error {
	doc, err := e.loaded()
	if err != nil {
		return err
	}
	for k, v := range fields {
		if err := doc.SetField(section, k, v); err != nil {
			return err
		}
	}
	return nil
}

// Close tears the editor down. Requests still in flight complete, and their
// results are discarded.
func (e *Editor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *Editor) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func (e *Editor) loaded() (*Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.doc == nil {
		return nil, errNotLoaded
	}
	return e.doc, nil
}

func (e *Editor) committed(ctx context.Context, event DocumentEvent) {
	if err := e.hook.DocumentUpdated(ctx, event); err != nil {
		e.telemetry.Record(ctx, "pages.hook.error", map[string]any{
			"page":   event.Page,
			"reason": event.Reason,
			"error":  err.Error(),
		})
	}
}

func (e *Editor) notify(ctx context.Context, op, message string) {
	if e.isClosed() {
		return
	}
	e.notifier.Notify(ctx, Notification{Level: LevelInfo, Page: e.def.Code, Op: op, Message: message})
}

func (e *Editor) fail(ctx context.Context, op string, err error) {
	e.telemetry.Record(ctx, "pages.operation.error", map[string]any{
		"page":  e.def.Code,
		"op":    op,
		"error": err.Error(),
	})
	if e.isClosed() {
		return
	}
	e.notifier.Notify(ctx, Notification{
		Level:   LevelError,
		Page:    e.def.Code,
		Op:      op,
		Message: err.Error(),
		Err:     err,
	})
}

func defaultDocument(def PageDefinition) map[string]any {
	if def.Defaults == nil {
		return map[string]any{}
	}
	out, _ := cloneValue(def.Defaults).(map[string]any)
	return out
}
