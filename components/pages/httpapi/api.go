package httpapi

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-pages/components/pages"
	"github.com/goliatone/go-pages/components/pages/commands"
	"github.com/goliatone/go-pages/components/pages/queries"
)

// DefaultMaxUploadBytes bounds multipart bodies; per-type limits are enforced by
// the editor's upload policy.
const DefaultMaxUploadBytes int64 = 12 << 20

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Pages        gocommand.Querier[queries.PagesInput, []queries.PageSummary]
	Document     gocommand.Querier[queries.DocumentInput, pages.DocumentSnapshot]
	Save         gocommand.Commander[commands.SaveDocumentInput]
	SaveSections gocommand.Commander[commands.SaveSectionsInput]
	Reload       gocommand.Commander[commands.ReloadDocumentInput]
	Move         gocommand.Commander[pages.MoveItemRequest]
	EditItem     gocommand.Commander[commands.EditItemInput]
	RemoveItem   gocommand.Commander[commands.RemoveItemInput]
	SetFields    gocommand.Commander[commands.SetFieldsInput]
	Upload       gocommand.Commander[commands.UploadAssetInput]

	MaxUploadBytes int64
}

// NewHandlers wires every endpoint to the commands and queries of svc.
func NewHandlers(svc *pages.Service, telemetry commands.Telemetry) *Handlers {
	return &Handlers{
		Pages:        queries.NewPagesQuery(svc.Registry()),
		Document:     queries.NewDocumentQuery(svc),
		Save:         commands.NewSaveDocumentCommand(svc, telemetry),
		SaveSections: commands.NewSaveSectionsCommand(svc, telemetry),
		Reload:       commands.NewReloadDocumentCommand(svc, telemetry),
		Move:         commands.NewMoveItemCommand(svc, telemetry),
		EditItem:     commands.NewEditItemCommand(svc, telemetry),
		RemoveItem:   commands.NewRemoveItemCommand(svc, telemetry),
		SetFields:    commands.NewSetFieldsCommand(svc, telemetry),
		Upload:       commands.NewUploadAssetCommand(svc, telemetry),
	}
}

func (h *Handlers) HandleListPages(w http.ResponseWriter, r *http.Request) {
	list, err := h.Pages.Query(r.Context(), queries.PagesInput{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) HandleGetDocument(w http.ResponseWriter, r *http.Request, page string) {
	snap, err := h.Document.Query(r.Context(), queries.DocumentInput{Page: page})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) HandleSaveDocument(w http.ResponseWriter, r *http.Request, page string) {
	if err := h.Save.Execute(r.Context(), commands.SaveDocumentInput{Page: page}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleSaveSections(w http.ResponseWriter, r *http.Request, page string) {
	var payload commands.SaveSectionsInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Page = page
	if err := h.SaveSections.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleReload(w http.ResponseWriter, r *http.Request, page string) {
	if err := h.Reload.Execute(r.Context(), commands.ReloadDocumentInput{Page: page}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleMoveItem(w http.ResponseWriter, r *http.Request, page string) {
	var payload pages.MoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload.Page = page
	if err := h.Move.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleEditItem adds an item when id is empty and updates it otherwise.
func (h *Handlers) HandleEditItem(w http.ResponseWriter, r *http.Request, page, section, id string) {
	var fields pages.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var item pages.Item
	input := commands.EditItemInput{
		ItemRequest: pages.ItemRequest{Page: page, Section: section, ID: id, Fields: fields},
		Result:      &item,
	}
	if err := h.EditItem.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, ItemResponse(item))
}

func (h *Handlers) HandleRemoveItem(w http.ResponseWriter, r *http.Request, page, section, id string) {
	input := commands.RemoveItemInput{Page: page, Section: section, ID: id}
	if err := h.RemoveItem.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleSetFields(w http.ResponseWriter, r *http.Request, page, section string) {
	var fields pages.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input := commands.SetFieldsInput{Page: page, Section: section, Fields: fields}
	if err := h.SetFields.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpload reads a multipart body with a "file" part plus "section", "field"
// and optional "item" values, and responds with the stored URL.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request, page string) {
	limit := h.UploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var url string
	input, closeFile, err := UploadInput(page, r.MultipartForm, &url)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeFile()
	if err := h.Upload.Execute(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// UploadLimit returns the multipart body limit used by the upload endpoint.
func (h *Handlers) UploadLimit() int64 {
	if h.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return h.MaxUploadBytes
}

// UploadInput builds the upload command input from a parsed multipart form. The
// returned func closes the opened file part.
func UploadInput(page string, form *multipart.Form, result *string) (commands.UploadAssetInput, func() error, error) {
	if form == nil || len(form.File["file"]) == 0 {
		return commands.UploadAssetInput{}, nil, errors.New("file is required")
	}
	field := strings.TrimSpace(formValue(form, "field"))
	if field == "" {
		return commands.UploadAssetInput{}, nil, errors.New("field is required")
	}
	header := form.File["file"][0]
	file, err := header.Open()
	if err != nil {
		return commands.UploadAssetInput{}, nil, err
	}
	input := commands.UploadAssetInput{
		Page: page,
		Request: pages.UploadRequest{
			Section: strings.TrimSpace(formValue(form, "section")),
			Field:   field,
			Item:    pages.IdentityFromServer(formValue(form, "item")),
			File: pages.UploadFile{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			},
		},
		Result: result,
	}
	return input, file.Close, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// ItemResponse is the body returned for an added or updated item.
func ItemResponse(item pages.Item) pages.ItemSnapshot {
	return pages.ItemSnapshot{
		ID:        item.ID.String(),
		Temporary: !item.ID.IsServer(),
		Position:  item.Position,
		Fields:    item.Fields,
	}
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string             `json:"error"`
	Fields []pages.FieldError `json:"fields,omitempty"`
}

// ErrorStatus maps an editor error to its HTTP status and response body.
func ErrorStatus(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}
	var (
		verr   *pages.ValidationError
		uerr   *pages.UploadError
		remote *pages.RemoteError
		saved  *pages.SaveError
	)
	switch {
	case errors.As(err, &verr):
		resp.Fields = []pages.FieldError{verr.FieldError}
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &uerr):
		return http.StatusBadRequest, resp
	case errors.Is(err, pages.ErrClosed):
		return http.StatusConflict, resp
	case errors.As(err, &saved):
		return http.StatusBadGateway, resp
	case errors.As(err, &remote):
		resp.Fields = remote.ValidationErrors
		return http.StatusBadGateway, resp
	case errors.Is(err, pages.ErrNotFound):
		return http.StatusNotFound, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, resp := ErrorStatus(err)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
