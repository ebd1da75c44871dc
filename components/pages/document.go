package pages

import (
	"fmt"
	"sort"
	"sync"
)

// Document is the in-memory page document: top-level attributes, scalar sections
// and one Collection per repeatable section.
type Document struct {
	page  string
	newID func() string

	mu          sync.RWMutex
	attributes  Fields
	sections    map[string]Fields
	collections map[string]*Collection
	validators  map[string]ItemValidator
	order       []string
	dirty       bool
}

// NewDocument decodes raw into a document shaped by def. Declared sections are
// decoded by kind; undeclared keys become collections (lists of objects), scalar
// sections (objects) or attributes (anything else).
func NewDocument(def PageDefinition, raw map[string]any, newID func() string) (*Document, error) {
	if newID == nil {
		newID = NewTempID
	}
	doc := &Document{
		page:        def.Code,
		newID:       newID,
		attributes:  Fields{},
		sections:    map[string]Fields{},
		collections: map[string]*Collection{},
		validators:  map[string]ItemValidator{},
	}
	declared := make(map[string]struct{}, len(def.Sections))
	for _, section := range def.Sections {
		declared[section.Name] = struct{}{}
		validator := section.Validator
		if validator == nil {
			validator = AcceptAll
		}
		value := raw[section.Name]
		switch section.Kind {
		case SectionCollection:
			list, err := asList(value)
			if err != nil {
				return nil, fmt.Errorf("pages: %s.%s: %w", def.Code, section.Name, err)
			}
			if err := doc.addCollection(section.Name, validator, list); err != nil {
				return nil, err
			}
		default:
			obj, err := asObject(value)
			if err != nil {
				return nil, fmt.Errorf("pages: %s.%s: %w", def.Code, section.Name, err)
			}
			doc.validators[section.Name] = validator
			doc.sections[section.Name] = obj
			doc.order = append(doc.order, section.Name)
		}
	}
	extra := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := declared[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		switch v := raw[k].(type) {
		case map[string]any:
			doc.sections[k] = Fields(v).Clone()
			doc.validators[k] = AcceptAll
			doc.order = append(doc.order, k)
		case []any:
			if isObjectList(v) {
				if err := doc.addCollection(k, AcceptAll, v); err != nil {
					return nil, err
				}
				continue
			}
			doc.attributes[k] = cloneValue(v)
		default:
			doc.attributes[k] = cloneValue(v)
		}
	}
	return doc, nil
}

func (d *Document) addCollection(name string, validator ItemValidator, list []any) error {
	items, err := ItemsFromServer(list, d.newID)
	if err != nil {
		return fmt.Errorf("pages: %s.%s: %w", d.page, name, err)
	}
	c := NewCollection(name, validator, WithIDGenerator(d.newID))
	c.Replace(items)
	d.collections[name] = c
	d.order = append(d.order, name)
	return nil
}

// Page returns the page code.
func (d *Document) Page() string { return d.page }

// SectionNames returns every section name, declared ones first.
func (d *Document) SectionNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Attribute returns a top-level value that is neither a section nor a collection.
func (d *Document) Attribute(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.attributes[name]
	return cloneValue(v), ok
}

// Section returns a copy of a scalar section.
func (d *Document) Section(name string) (Fields, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sections[name]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SetField writes one scalar section field. Unknown sections are created.
func (d *Document) SetField(section, field string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.collections[section]; ok {
		return fmt.Errorf("pages: %s is a collection, not a field section", section)
	}
	s, ok := d.sections[section]
	if !ok {
		s = Fields{}
		d.sections[section] = s
		d.validators[section] = AcceptAll
		d.order = append(d.order, section)
	}
	s[field] = value
	d.dirty = true
	return nil
}

// Collection returns the collection backing a repeatable section.
func (d *Document) Collection(name string) (*Collection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[name]
	return c, ok
}

// Dirty reports whether any section or collection changed since load.
func (d *Document) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.dirty {
		return true
	}
	for _, c := range d.collections {
		if c.Dirty() {
			return true
		}
	}
	return false
}

// MarkClean clears every dirty flag.
func (d *Document) MarkClean() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = false
	for _, c := range d.collections {
		c.MarkClean()
	}
}

// Validate runs the named sections (all when none given) through their validators
// and returns the first failure.
func (d *Document) Validate(names ...string) error {
	if len(names) == 0 {
		names = d.SectionNames()
	}
	for _, name := range names {
		if c, ok := d.Collection(name); ok {
			if err := c.Validate(); err != nil {
				return err
			}
			continue
		}
		fields, ok := d.Section(name)
		d.mu.RLock()
		validator := d.validators[name]
		d.mu.RUnlock()
		if !ok {
			return fmt.Errorf("pages: section %s: %w", name, ErrNotFound)
		}
		if _, err := validator.Validate(fields); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				out := *verr
				out.Section = name
				return &out
			}
			return err
		}
	}
	return nil
}

// Payload serializes the whole document for a save request.
func (d *Document) Payload() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.attributes)+len(d.order))
	for k, v := range d.attributes {
		out[k] = cloneValue(v)
	}
	for name, s := range d.sections {
		out[name] = map[string]any(s.Clone())
	}
	for name, c := range d.collections {
		out[name] = PrepareForSave(c)
	}
	return out
}

// SectionPayload serializes a single section for a per-section save.
func (d *Document) SectionPayload(name string) (any, bool) {
	if c, ok := d.Collection(name); ok {
		return PrepareForSave(c), true
	}
	s, ok := d.Section(name)
	if !ok {
		return nil, false
	}
	return map[string]any(s), true
}

// ItemSnapshot is the read model of an item.
type ItemSnapshot struct {
	ID        string `json:"id"`
	Temporary bool   `json:"temporary"`
	Position  int    `json:"position"`
	Fields    Fields `json:"fields"`
}

// DocumentSnapshot is a read-only copy of a document for queries and transports.
type DocumentSnapshot struct {
	Page        string                    `json:"page"`
	Attributes  Fields                    `json:"attributes,omitempty"`
	Sections    map[string]Fields         `json:"sections"`
	Collections map[string][]ItemSnapshot `json:"collections"`
	Dirty       bool                      `json:"dirty"`
}

// Snapshot copies the document.
func (d *Document) Snapshot() DocumentSnapshot {
	dirty := d.Dirty()
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := DocumentSnapshot{
		Page:        d.page,
		Attributes:  d.attributes.Clone(),
		Sections:    make(map[string]Fields, len(d.sections)),
		Collections: make(map[string][]ItemSnapshot, len(d.collections)),
		Dirty:       dirty,
	}
	for name, s := range d.sections {
		snap.Sections[name] = s.Clone()
	}
	for name, c := range d.collections {
		items := c.Items()
		list := make([]ItemSnapshot, len(items))
		for i, item := range items {
			list[i] = ItemSnapshot{
				ID:        item.ID.String(),
				Temporary: !item.ID.IsServer(),
				Position:  item.Position,
				Fields:    item.Fields,
			}
		}
		snap.Collections[name] = list
	}
	return snap
}

func asList(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}

func asObject(v any) (Fields, error) {
	switch t := v.(type) {
	case nil:
		return Fields{}, nil
	case map[string]any:
		return Fields(t).Clone(), nil
	case Fields:
		return t.Clone(), nil
	default:
		return nil, fmt.Errorf("expected object, got %T", v)
	}
}

func isObjectList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, v := range list {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}
