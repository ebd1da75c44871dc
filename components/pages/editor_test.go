package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

type fakeBackend struct {
	mu sync.Mutex

	docs        map[string]map[string]any
	fetchCalls  int
	updateCalls int
	createCalls int
	sections    []string
	reorders    []ReorderRequest
	uploads     []UploadFile

	updateErr  error
	sectionErr map[string]error
	reorderErr error
	uploadURL  string
	entered    chan struct{}
	block      chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{docs: map[string]map[string]any{}, sectionErr: map[string]error{}}
}

func (f *fakeBackend) FetchDocument(_ context.Context, resource string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	doc, ok := f.docs[resource]
	if !ok {
		return nil, &RemoteError{Op: "fetch " + resource, StatusCode: 404, Err: ErrNotFound}
	}
	out, _ := cloneValue(doc).(map[string]any)
	return out, nil
}

func (f *fakeBackend) UpdateDocument(_ context.Context, resource string, doc map[string]any) error {
	f.mu.Lock()
	entered, block := f.entered, f.block
	f.mu.Unlock()
	if block != nil {
		close(entered)
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.docs[resource]; !ok {
		return fmt.Errorf("update %s: %w", resource, ErrNotFound)
	}
	f.docs[resource] = storedDocument(doc)
	return nil
}

func (f *fakeBackend) CreateDocument(_ context.Context, resource string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.docs[resource] = storedDocument(doc)
	return nil
}

func (f *fakeBackend) UpdateSection(_ context.Context, resource, section string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sections = append(f.sections, section)
	if err := f.sectionErr[section]; err != nil {
		return err
	}
	return nil
}

func (f *fakeBackend) ReorderSection(_ context.Context, resource string, req ReorderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorders = append(f.reorders, req)
	return f.reorderErr
}

func (f *fakeBackend) Upload(_ context.Context, resource, field string, file UploadFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, file)
	if f.uploadURL == "" {
		return "/uploads/" + file.Name, nil
	}
	return f.uploadURL, nil
}

func (f *fakeBackend) counts() (fetch, update, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.updateCalls, f.createCalls
}

// storedDocument mimics the backend assigning ids to new items.
func storedDocument(doc map[string]any) map[string]any {
	out := map[string]any{}
	next := 0xa0
	for k, v := range doc {
		list, ok := v.([]ServerItem)
		if !ok {
			out[k] = cloneValue(v)
			continue
		}
		items := make([]any, len(list))
		for i, entry := range list {
			m := map[string]any{}
			for ek, ev := range entry {
				m[ek] = ev
			}
			if _, has := m[IDField]; !has {
				m[IDField] = fmt.Sprintf("64b7f0c2a1e4d3b2c1a0%04x", next)
				next++
			}
			items[i] = m
		}
		out[k] = items
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type recordingHook struct {
	mu     sync.Mutex
	events []DocumentEvent
}

func (r *recordingHook) DocumentUpdated(_ context.Context, event DocumentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type editorFixture struct {
	backend   *fakeBackend
	notifier  *recordingNotifier
	telemetry *recordingTelemetry
	hook      *recordingHook
	editor    *Editor
}

func newEditorFixture(t *testing.T, stored map[string]any) *editorFixture {
	t.Helper()
	def := homeDefinition(t)
	fx := &editorFixture{
		backend:   newFakeBackend(),
		notifier:  &recordingNotifier{},
		telemetry: &recordingTelemetry{},
		hook:      &recordingHook{},
	}
	if stored != nil {
		fx.backend.docs[def.Resource] = stored
	}
	editor, err := NewEditor(def, Options{
		Backend:   fx.backend,
		Notifier:  fx.notifier,
		Telemetry: fx.telemetry,
		Hook:      fx.hook,
		NewID:     sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("NewEditor returned error: %v", err)
	}
	if err := editor.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	fx.editor = editor
	return fx
}

func TestNewEditorRequiresBackend(t *testing.T) {
	if _, err := NewEditor(PageDefinition{Code: "home"}, Options{}); !errors.Is(err, errMissingBackend) {
		t.Fatalf("expected missing backend error, got %v", err)
	}
	if _, err := NewEditor(PageDefinition{}, Options{Backend: newFakeBackend()}); !errors.Is(err, errInvalidPage) {
		t.Fatalf("expected invalid page error, got %v", err)
	}
}

func TestEditorLoadFallsBackToDefaults(t *testing.T) {
	fx := newEditorFixture(t, nil)
	doc := fx.editor.Document()
	hero, ok := doc.Section("hero")
	if !ok || hero.String("heading") != "Building stronger communities together" {
		t.Fatalf("expected default hero, got %#v", hero)
	}
	stats, _ := doc.Collection("statistics")
	if stats.Len() != 3 {
		t.Fatalf("expected default statistics, got %d", stats.Len())
	}
	if !fx.telemetry.has("pages.document.default") {
		t.Fatalf("expected default document telemetry")
	}
	if n, ok := fx.notifier.last(); ok && n.Level == LevelError {
		t.Fatalf("expected no error notification, got %#v", n)
	}
}

func TestEditorLoadPropagatesRemoteErrors(t *testing.T) {
	backend := &failingFetchBackend{fakeBackend: newFakeBackend()}
	notifier := &recordingNotifier{}
	editor, _ := NewEditor(homeDefinition(t), Options{Backend: backend, Notifier: notifier})
	err := editor.Load(context.Background())
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 500 {
		t.Fatalf("expected remote error, got %v", err)
	}
	if n, ok := notifier.last(); !ok || n.Level != LevelError || n.Op != "load" {
		t.Fatalf("expected load error notification, got %#v", n)
	}
	if editor.Document() != nil {
		t.Fatalf("expected no document after failed load")
	}
}

type failingFetchBackend struct {
	*fakeBackend
}

func (f *failingFetchBackend) FetchDocument(context.Context, string) (map[string]any, error) {
	return nil, &RemoteError{Op: "fetch", StatusCode: 500, Message: "boom"}
}

func TestEditorSaveCreatesMissingDocumentAndReloads(t *testing.T) {
	fx := newEditorFixture(t, nil)
	slides, _ := fx.editor.Document().Collection("banner_slides")
	if _, err := slides.Add(Fields{"title": "Second slide", "image": "/b.png"}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := fx.editor.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	fetch, update, create := fx.backend.counts()
	if update != 1 || create != 1 {
		t.Fatalf("expected PUT then POST fallback, got update=%d create=%d", update, create)
	}
	if fetch != 2 {
		t.Fatalf("expected reload after save, got %d fetches", fetch)
	}
	reloaded, _ := fx.editor.Document().Collection("banner_slides")
	for _, item := range reloaded.Items() {
		if !item.ID.IsServer() {
			t.Fatalf("expected server identities after reload, got %s", item.ID)
		}
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 slides after reload, got %d", reloaded.Len())
	}
	if n, _ := fx.notifier.last(); n.Level != LevelInfo || n.Op != "save" {
		t.Fatalf("expected save notification, got %#v", n)
	}
	if len(fx.hook.events) != 1 || fx.hook.events[0].Reason != "save" {
		t.Fatalf("expected save hook event, got %#v", fx.hook.events)
	}
}

func TestEditorSaveUpdatesExistingDocument(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	if err := fx.editor.Document().SetField("hero", "heading", "New heading"); err != nil {
		t.Fatalf("SetField returned error: %v", err)
	}
	if err := fx.editor.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	_, update, create := fx.backend.counts()
	if update != 1 || create != 0 {
		t.Fatalf("expected single PUT, got update=%d create=%d", update, create)
	}
	hero, _ := fx.editor.Document().Section("hero")
	if hero.String("heading") != "New heading" {
		t.Fatalf("expected reloaded heading, got %#v", hero)
	}
	if fx.editor.Document().Dirty() {
		t.Fatalf("expected clean document after reload")
	}
}

func TestEditorSaveBlockedByValidation(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	_ = fx.editor.Document().SetField("hero", "heading", "")
	err := fx.editor.Save(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Section != "hero" {
		t.Fatalf("expected hero validation error, got %v", err)
	}
	if _, update, create := fx.backend.counts(); update != 0 || create != 0 {
		t.Fatalf("expected no network calls, got update=%d create=%d", update, create)
	}
	if n, _ := fx.notifier.last(); n.Level != LevelError {
		t.Fatalf("expected error notification, got %#v", n)
	}
	hero, _ := fx.editor.Document().Section("hero")
	if hero.String("heading") != "" {
		t.Fatalf("expected local edits kept for correction")
	}
}

func TestEditorSaveSectionsPartialFailure(t *testing.T) {
	stored := homeDocument()
	delete(stored, "partners")
	fx := newEditorFixture(t, stored)
	fx.backend.sectionErr["banner_slides"] = &RemoteError{Op: "update banner_slides", StatusCode: 500, Message: "db down"}
	names := fx.editor.Document().SectionNames()
	if len(names) != 6 {
		t.Fatalf("expected 6 sections, got %v", names)
	}
	err := fx.editor.SaveSections(context.Background())
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if len(saveErr.Failures) != 1 || saveErr.Failures[0].Section != "banner_slides" {
		t.Fatalf("unexpected failures %#v", saveErr.Failures)
	}
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 500 {
		t.Fatalf("expected remote error to unwrap from SaveError")
	}
	fx.backend.mu.Lock()
	sent := len(fx.backend.sections)
	fx.backend.mu.Unlock()
	if sent != 6 {
		t.Fatalf("expected all 6 section requests to be issued, got %d", sent)
	}
	if n, _ := fx.notifier.last(); n.Level != LevelError || n.Op != "save" {
		t.Fatalf("expected failure notification, got %#v", n)
	}
	if fetch, _, _ := fx.backend.counts(); fetch != 1 {
		t.Fatalf("expected no reload after partial failure, got %d fetches", fetch)
	}
}

func TestEditorSaveSectionsSubset(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	if err := fx.editor.SaveSections(context.Background(), "hero", "statistics"); err != nil {
		t.Fatalf("SaveSections returned error: %v", err)
	}
	fx.backend.mu.Lock()
	sent := append([]string(nil), fx.backend.sections...)
	fx.backend.mu.Unlock()
	if len(sent) != 2 {
		t.Fatalf("expected 2 section requests, got %v", sent)
	}
	if !fx.telemetry.has("pages.sections.save") {
		t.Fatalf("expected sections telemetry")
	}
	if err := fx.editor.SaveSections(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown section, got %v", err)
	}
}

func TestEditorMovePersistsReorder(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	if err := fx.editor.Move(context.Background(), "banner_slides", 0, 1); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if len(fx.backend.reorders) != 1 {
		t.Fatalf("expected one reorder request, got %d", len(fx.backend.reorders))
	}
	req := fx.backend.reorders[0]
	want := []ReorderItem{{ID: serverB, DisplayOrder: 0}, {ID: serverA, DisplayOrder: 1}}
	for i := range want {
		if req.Items[i] != want[i] {
			t.Fatalf("item %d: expected %#v, got %#v", i, want[i], req.Items[i])
		}
	}
	if len(fx.hook.events) != 1 || fx.hook.events[0].Reason != "reorder" {
		t.Fatalf("expected reorder hook event, got %#v", fx.hook.events)
	}
}

func TestEditorMoveRevertsOnFailure(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	fx.backend.reorderErr = &RemoteError{Op: "reorder", StatusCode: 502}
	err := fx.editor.Move(context.Background(), "banner_slides", 0, 1)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	slides, _ := fx.editor.Document().Collection("banner_slides")
	if got := slides.Items()[0].Fields.String("title"); got != "First" {
		t.Fatalf("expected order reverted by reload, got %s first", got)
	}
	if n, _ := fx.notifier.last(); n.Level != LevelError || n.Op != "reorder" {
		t.Fatalf("expected reorder failure notification, got %#v", n)
	}
}

func TestEditorMoveSkipsNetworkForTemporaryItems(t *testing.T) {
	fx := newEditorFixture(t, nil)
	if err := fx.editor.Move(context.Background(), "statistics", 0, 2); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}
	if len(fx.backend.reorders) != 0 {
		t.Fatalf("expected no reorder request for unsaved items")
	}
	if err := fx.editor.Move(context.Background(), "statistics", 0, 9); !errors.Is(err, errPositionOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if err := fx.editor.Move(context.Background(), "missing", 0, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEditorUploadPrecheckBlocksRequest(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	_, err := fx.editor.Upload(context.Background(), UploadRequest{
		Section: "hero",
		Field:   "image",
		File:    UploadFile{Name: "huge.png", ContentType: "image/png", Size: 5 << 20},
	})
	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if len(fx.backend.uploads) != 0 {
		t.Fatalf("expected no upload request")
	}
}

func TestEditorUploadMergesURL(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	ctx := context.Background()
	file := func(name string) UploadFile {
		return UploadFile{Name: name, Size: 4, Content: io.NopCloser(strings.NewReader("data"))}
	}

	url, err := fx.editor.Upload(ctx, UploadRequest{Section: "hero", Field: "image", File: file("hero.png")})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	hero, _ := fx.editor.Document().Section("hero")
	if hero.String("image") != url || url != "/uploads/hero.png" {
		t.Fatalf("expected hero image merged, got %#v", hero)
	}

	if _, err := fx.editor.Upload(ctx, UploadRequest{Section: "banner_slides", Field: "image", Item: ServerID(serverA), File: file("a2.png")}); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	slides, _ := fx.editor.Document().Collection("banner_slides")
	item, _ := slides.Get(ServerID(serverA))
	if item.Fields.String("image") != "/uploads/a2.png" {
		t.Fatalf("expected slide image merged, got %#v", item.Fields)
	}

	slides.Session().BeginAdd(Fields{"title": "Draft slide"})
	if _, err := fx.editor.Upload(ctx, UploadRequest{Section: "banner_slides", Field: "image", File: file("draft.png")}); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if got := slides.Session().Draft().String("image"); got != "/uploads/draft.png" {
		t.Fatalf("expected draft image merged, got %s", got)
	}
	if fx.backend.uploads[0].ContentType != "image/png" {
		t.Fatalf("expected content type resolved before upload, got %s", fx.backend.uploads[0].ContentType)
	}
	if !fx.telemetry.has("pages.asset.upload") {
		t.Fatalf("expected upload telemetry")
	}
}

func TestEditorCloseDiscardsLateResults(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	entered, block := make(chan struct{}), make(chan struct{})
	fx.backend.mu.Lock()
	fx.backend.entered, fx.backend.block = entered, block
	fx.backend.mu.Unlock()
	before := fx.notifier.count()

	done := make(chan error, 1)
	go func() { done <- fx.editor.Save(context.Background()) }()
	<-entered
	fx.editor.Close()
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("expected discarded save to return nil, got %v", err)
	}
	if fx.notifier.count() != before {
		t.Fatalf("expected no notifications after close")
	}
	if fetch, _, _ := fx.backend.counts(); fetch != 1 {
		t.Fatalf("expected no reload after close, got %d fetches", fetch)
	}
	if err := fx.editor.Save(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestEditorEditItemAddsAndUpdates(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	ctx := context.Background()

	added, err := fx.editor.EditItem(ctx, "banner_slides", Identity{}, Fields{"title": "Third slide", "image": "/c.png"})
	if err != nil {
		t.Fatalf("EditItem add returned error: %v", err)
	}
	if added.ID.IsServer() || added.Position != 2 {
		t.Fatalf("unexpected added item %#v", added)
	}

	updated, err := fx.editor.EditItem(ctx, "banner_slides", ServerID(serverA), Fields{"title": "First edited"})
	if err != nil {
		t.Fatalf("EditItem update returned error: %v", err)
	}
	if updated.Position != 0 || updated.Fields.String("image") != "/a.png" {
		t.Fatalf("expected merge over stored fields, got %#v", updated)
	}

	_, err = fx.editor.EditItem(ctx, "banner_slides", Identity{}, Fields{"title": "ab"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	slides, _ := fx.editor.Document().Collection("banner_slides")
	if slides.Session().Mode() != SessionAdding {
		t.Fatalf("expected draft kept after validation failure")
	}
	if err := fx.editor.CancelEdit("banner_slides"); err != nil {
		t.Fatalf("CancelEdit returned error: %v", err)
	}
	if slides.Session().Mode() != SessionIdle {
		t.Fatalf("expected idle session after cancel")
	}

	if _, err := fx.editor.EditItem(ctx, "banner_slides", ClientID("temp-404"), Fields{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.editor.EditItem(ctx, "hero", Identity{}, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-collection section, got %v", err)
	}
}

func TestEditorUploadStartsDraftForNewItem(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	ctx := context.Background()
	if _, err := fx.editor.Upload(ctx, UploadRequest{
		Section: "banner_slides",
		Field:   "image",
		File:    UploadFile{Name: "new.png", Size: 4},
	}); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	item, err := fx.editor.EditItem(ctx, "banner_slides", Identity{}, Fields{"title": "With upload"})
	if err != nil {
		t.Fatalf("EditItem returned error: %v", err)
	}
	if item.Fields.String("image") != "/uploads/new.png" {
		t.Fatalf("expected uploaded image in the new item, got %#v", item.Fields)
	}
}

func TestEditorRemoveItemAndSetFields(t *testing.T) {
	fx := newEditorFixture(t, homeDocument())
	if err := fx.editor.RemoveItem("banner_slides", ServerID(serverA)); err != nil {
		t.Fatalf("RemoveItem returned error: %v", err)
	}
	if err := fx.editor.RemoveItem("banner_slides", ServerID(serverA)); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}
	if err := fx.editor.RemoveItem("hero", ServerID(serverA)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := fx.editor.SetFields("hero", Fields{"heading": "Changed heading"}); err != nil {
		t.Fatalf("SetFields returned error: %v", err)
	}
	if err := fx.editor.SetFields("banner_slides", Fields{"title": "x"}); err == nil {
		t.Fatalf("expected error setting fields on a collection")
	}
	if err := fx.editor.Save(context.Background()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	doc := fx.editor.Document()
	slides, _ := doc.Collection("banner_slides")
	hero, _ := doc.Section("hero")
	if slides.Len() != 1 || hero.String("heading") != "Changed heading" {
		t.Fatalf("unexpected saved document: %d slides, hero %#v", slides.Len(), hero)
	}
}
