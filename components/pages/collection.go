package pages

import (
	"fmt"
	"sync"
)

// Item is one entry of a repeatable section. Position mirrors the index in the
// owning collection at the time the item was read.
type Item struct {
	ID       Identity
	Fields   Fields
	Position int
}

// CollectionOption customizes a Collection.
type CollectionOption func(*Collection)

// WithIDGenerator overrides the generator used for client-temporary identities.
func WithIDGenerator(fn func() string) CollectionOption {
	return func(c *Collection) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Collection is an ordered list of items with stable identity. Positions are never
// stored; they are the slice index, so they stay contiguous after every mutation.
type Collection struct {
	name      string
	validator ItemValidator
	newID     func() string

	mu    sync.RWMutex
	items []Item
	dirty bool

	session *Session
}

// NewCollection builds an empty collection. A nil validator accepts any fields.
func NewCollection(name string, validator ItemValidator, opts ...CollectionOption) *Collection {
	if validator == nil {
		validator = AcceptAll
	}
	c := &Collection{
		name:      name,
		validator: validator,
		newID:     NewTempID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = &Session{store: c}
	return c
}

// Name returns the section name backing the collection.
func (c *Collection) Name() string { return c.name }

// Session returns the single edit session bound to this collection.
func (c *Collection) Session() *Session { return c.session }

// Len returns the number of items.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns copies of all items in order.
func (c *Collection) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	for i, item := range c.items {
		out[i] = snapshotItem(item, i)
	}
	return out
}

// Get returns a copy of the item with the given identity.
func (c *Collection) Get(id Identity) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return Item{}, false
	}
	return snapshotItem(c.items[idx], idx), true
}

// At returns a copy of the item at position.
func (c *Collection) At(position int) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if position < 0 || position >= len(c.items) {
		return Item{}, false
	}
	return snapshotItem(c.items[position], position), true
}

// Add validates fields and appends a new item with a client-temporary identity.
func (c *Collection) Add(fields Fields) (Item, error) {
	return c.AddItem(Item{Fields: fields})
}

// AddItem validates and appends item. A zero identity is replaced by a
// client-temporary one; a duplicate identity is rejected.
func (c *Collection) AddItem(item Item) (Item, error) {
	normalized, err := c.validate(item.ID, item.Fields)
	if err != nil {
		return Item{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := item.ID
	if id.IsZero() {
		id = ClientID(c.newID())
	}
	if c.indexOf(id) >= 0 {
		return Item{}, fmt.Errorf("%w: %s in %s", errDuplicateIdentity, id, c.name)
	}
	stored := Item{ID: id, Fields: normalized}
	c.items = append(c.items, stored)
	c.dirty = true
	return snapshotItem(stored, len(c.items)-1), nil
}

// Update merges fields over the stored item, validates the result and replaces
// the item in place.
func (c *Collection) Update(id Identity, fields Fields) (Item, error) {
	current, ok := c.Get(id)
	if !ok {
		return Item{}, &ItemNotFoundError{Collection: c.name, ID: id}
	}
	merged := current.Fields.Clone()
	for k, v := range fields {
		merged[k] = cloneValue(v)
	}
	normalized, err := c.validate(id, merged)
	if err != nil {
		return Item{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return Item{}, &ItemNotFoundError{Collection: c.name, ID: id}
	}
	c.items[idx].Fields = normalized
	c.dirty = true
	return snapshotItem(c.items[idx], idx), nil
}

// SetField writes a single value without validation. It backs upload results,
// which are merged immediately and validated with the next save.
func (c *Collection) SetField(id Identity, field string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return &ItemNotFoundError{Collection: c.name, ID: id}
	}
	if c.items[idx].Fields == nil {
		c.items[idx].Fields = Fields{}
	}
	c.items[idx].Fields[field] = value
	c.dirty = true
	return nil
}

// Remove deletes the item. Unknown identities are ignored.
func (c *Collection) Remove(id Identity) {
	c.mu.Lock()
	idx := c.indexOf(id)
	if idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		c.dirty = true
	}
	c.mu.Unlock()
	if idx >= 0 {
		c.session.forget(id)
	}
}

// Move removes the item at from and reinserts it at to.
func (c *Collection) Move(from, to int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d in %s (len %d)", errPositionOutOfRange, from, to, c.name, n)
	}
	if from == to {
		return nil
	}
	moved := c.items[from]
	if from < to {
		copy(c.items[from:to], c.items[from+1:to+1])
	} else {
		copy(c.items[to+1:from+1], c.items[to:from])
	}
	c.items[to] = moved
	c.dirty = true
	return nil
}

// Replace swaps the contents wholesale and clears the dirty flag. Any active
// session is reset because its target may no longer exist. Missing or repeated
// identities are replaced with temporary ones.
func (c *Collection) Replace(items []Item) {
	c.mu.Lock()
	c.items = make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		id := item.ID
		if _, dup := seen[id.String()]; dup || id.IsZero() {
			id = ClientID(c.newID())
		}
		seen[id.String()] = struct{}{}
		c.items = append(c.items, Item{ID: id, Fields: item.Fields.Clone()})
	}
	c.dirty = false
	c.mu.Unlock()
	c.session.reset()
}

// Dirty reports whether the collection changed since the last load or MarkClean.
func (c *Collection) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// MarkClean clears the dirty flag.
func (c *Collection) MarkClean() {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}

// Validate runs every stored item through the validator and returns the first failure.
func (c *Collection) Validate() error {
	for _, item := range c.Items() {
		if _, err := c.validate(item.ID, item.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) validate(id Identity, fields Fields) (Fields, error) {
	normalized, err := c.validator.Validate(fields)
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			out := *verr
			out.Section = c.name
			out.Item = id
			return nil, &out
		}
		return nil, err
	}
	return normalized, nil
}

func (c *Collection) indexOf(id Identity) int {
	if id.IsZero() {
		return -1
	}
	for i, item := range c.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func snapshotItem(item Item, position int) Item {
	return Item{ID: item.ID, Fields: item.Fields.Clone(), Position: position}
}
