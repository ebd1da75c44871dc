package pages

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PageHook lets packages register pages during init().
type PageHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []PageHook
)

// RegisterPageHook registers a hook executed against new registries.
func RegisterPageHook(h PageHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry implements PageRegistry with hook + manifest support.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]PageDefinition
}

// NewRegistry builds a registry holding the built-in pages and applies global hooks.
func NewRegistry() *Registry {
	reg := NewEmptyRegistry()
	for _, def := range DefaultPageDefinitions() {
		_ = reg.RegisterPage(def)
	}
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptyRegistry builds a registry without built-in pages or hooks.
func NewEmptyRegistry() *Registry {
	return &Registry{pages: map[string]PageDefinition{}}
}

// ApplyHooks executes registered page hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPage validates and stores a page definition, replacing any previous one
// with the same code. Sections declaring only a JSON schema get a schema validator.
func (r *Registry) RegisterPage(def PageDefinition) error {
	if def.Code == "" {
		return fmt.Errorf("pages: page definition code is required")
	}
	if def.Resource == "" {
		def.Resource = "/" + def.Code
	}
	if !strings.HasPrefix(def.Resource, "/") {
		def.Resource = "/" + def.Resource
	}
	seen := make(map[string]struct{}, len(def.Sections))
	sections := make([]SectionDefinition, len(def.Sections))
	for i, section := range def.Sections {
		if section.Name == "" {
			return fmt.Errorf("pages: page %s section %d is missing a name", def.Code, i)
		}
		if _, dup := seen[section.Name]; dup {
			return fmt.Errorf("pages: page %s declares section %s twice", def.Code, section.Name)
		}
		seen[section.Name] = struct{}{}
		switch section.Kind {
		case "":
			section.Kind = SectionFields
		case SectionFields, SectionCollection:
		default:
			return fmt.Errorf("pages: page %s section %s has unknown kind %q", def.Code, section.Name, section.Kind)
		}
		if section.Validator == nil && len(section.Schema) > 0 {
			section.Validator = NewJSONSchemaValidator(def.Code+"."+section.Name, section.Schema)
		}
		sections[i] = section
	}
	def.Sections = sections
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[def.Code] = def
	return nil
}

// Page fetches a page definition by code.
func (r *Registry) Page(code string) (PageDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.pages[code]
	return def, ok
}

// Pages returns all registered definitions sorted by code.
func (r *Registry) Pages() []PageDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]PageDefinition, 0, len(r.pages))
	for _, def := range r.pages {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}
