package pages

import (
	"context"
	"io"
)

// Backend is the REST surface the editor persists through. Implementations return
// errors wrapping ErrNotFound for 404 responses and *RemoteError for other failures.
type Backend interface {
	FetchDocument(ctx context.Context, resource string) (map[string]any, error)
	UpdateDocument(ctx context.Context, resource string, doc map[string]any) error
	CreateDocument(ctx context.Context, resource string, doc map[string]any) error
	UpdateSection(ctx context.Context, resource, section string, payload any) error
	ReorderSection(ctx context.Context, resource string, req ReorderRequest) error
	Upload(ctx context.Context, resource, field string, file UploadFile) (string, error)
}

// PageRegistry resolves page definitions by code.
type PageRegistry interface {
	RegisterPage(def PageDefinition) error
	Page(code string) (PageDefinition, bool)
	Pages() []PageDefinition
}

// Notifier surfaces operation outcomes to the admin user (toasts, banners, CLI output).
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// DocumentHook notifies transports about committed document changes.
type DocumentHook interface {
	DocumentUpdated(ctx context.Context, event DocumentEvent) error
}

// Fields holds the editable values of an item or scalar section.
type Fields map[string]any

// Clone returns a deep copy so drafts never alias stored values.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the field as a string, or "" when missing or not a string.
func (f Fields) String(name string) string {
	s, _ := f[name].(string)
	return s
}

// SectionKind distinguishes scalar sections from repeatable collections.
type SectionKind string

const (
	SectionFields     SectionKind = "fields"
	SectionCollection SectionKind = "collection"
)

// SectionDefinition describes one named region of a page document.
type SectionDefinition struct {
	Name      string         `json:"name" yaml:"name"`
	Kind      SectionKind    `json:"kind" yaml:"kind"`
	Schema    map[string]any `json:"schema,omitempty" yaml:"schema,omitempty"`
	Validator ItemValidator  `json:"-" yaml:"-"`
}

// PageDefinition describes an editable page and the REST resource backing it.
type PageDefinition struct {
	Code     string              `json:"code" yaml:"code"`
	Name     string              `json:"name" yaml:"name"`
	Resource string              `json:"resource" yaml:"resource"`
	Sections []SectionDefinition `json:"sections" yaml:"sections"`
	Defaults map[string]any      `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// Section returns the named section definition.
func (def PageDefinition) Section(name string) (SectionDefinition, bool) {
	for _, s := range def.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return SectionDefinition{}, false
}

// ReorderItem is one entry of a reorder request.
type ReorderItem struct {
	ID           string `json:"id"`
	DisplayOrder int    `json:"display_order"`
}

// ReorderRequest reorders a single collection without touching other fields.
type ReorderRequest struct {
	Section string        `json:"section"`
	Items   []ReorderItem `json:"items"`
}

// UploadFile is a file queued for a side-channel upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadRequest targets the field receiving the uploaded URL. Item selects a
// collection entry; when Item is zero on a collection the active session draft
// receives the URL.
type UploadRequest struct {
	Section string
	Field   string
	Item    Identity
	File    UploadFile
}

// NotificationLevel grades a notification.
type NotificationLevel string

const (
	LevelInfo  NotificationLevel = "info"
	LevelError NotificationLevel = "error"
)

// Notification is a user-visible operation outcome.
type Notification struct {
	Level   NotificationLevel
	Page    string
	Op      string
	Message string
	Err     error
}

// DocumentEvent describes a committed change.
type DocumentEvent struct {
	Page    string `json:"page"`
	Section string `json:"section,omitempty"`
	Reason  string `json:"reason"`
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Fields:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}

type noopDocumentHook struct{}

func (noopDocumentHook) DocumentUpdated(context.Context, DocumentEvent) error { return nil }
