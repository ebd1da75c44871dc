package httpapi

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-pages/components/pages"
)

// RouteConfig customizes the mount point of the admin endpoints.
type RouteConfig struct {
	BasePath  string
	WebSocket string
	Events    string
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.BasePath == "" {
		routes.BasePath = "/admin/pages"
	}
	routes.BasePath = "/" + strings.Trim(routes.BasePath, "/")
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	if routes.Events == "" {
		routes.Events = "/events"
	}
	return routes
}

// Register mounts the page editor endpoints on mux. The broadcast hook is
// optional; without it the live update endpoints are not mounted.
func (h *Handlers) Register(mux *http.ServeMux, routes RouteConfig, broadcast *pages.BroadcastHook) {
	routes = defaultRouteConfig(routes)
	base := routes.BasePath

	if h.Pages != nil {
		mux.HandleFunc("GET "+base, h.HandleListPages)
	}
	if broadcast != nil {
		mux.HandleFunc("GET "+base+routes.WebSocket, broadcast.ServeWebSocket)
		mux.HandleFunc("GET "+base+routes.Events, broadcast.ServeSSE)
	}
	if h.Document != nil {
		mux.HandleFunc("GET "+base+"/{page}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetDocument(w, r, r.PathValue("page"))
		})
	}
	if h.Save != nil {
		mux.HandleFunc("POST "+base+"/{page}/save", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSaveDocument(w, r, r.PathValue("page"))
		})
	}
	if h.SaveSections != nil {
		mux.HandleFunc("POST "+base+"/{page}/sections", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSaveSections(w, r, r.PathValue("page"))
		})
	}
	if h.Reload != nil {
		mux.HandleFunc("POST "+base+"/{page}/reload", func(w http.ResponseWriter, r *http.Request) {
			h.HandleReload(w, r, r.PathValue("page"))
		})
	}
	if h.Move != nil {
		mux.HandleFunc("POST "+base+"/{page}/move", func(w http.ResponseWriter, r *http.Request) {
			h.HandleMoveItem(w, r, r.PathValue("page"))
		})
	}
	if h.Upload != nil {
		mux.HandleFunc("POST "+base+"/{page}/upload", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpload(w, r, r.PathValue("page"))
		})
	}
	if h.SetFields != nil {
		mux.HandleFunc("PUT "+base+"/{page}/sections/{section}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSetFields(w, r, r.PathValue("page"), r.PathValue("section"))
		})
	}
	if h.EditItem != nil {
		mux.HandleFunc("POST "+base+"/{page}/sections/{section}/items", func(w http.ResponseWriter, r *http.Request) {
			h.HandleEditItem(w, r, r.PathValue("page"), r.PathValue("section"), "")
		})
		mux.HandleFunc("PUT "+base+"/{page}/sections/{section}/items/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleEditItem(w, r, r.PathValue("page"), r.PathValue("section"), r.PathValue("id"))
		})
	}
	if h.RemoveItem != nil {
		mux.HandleFunc("DELETE "+base+"/{page}/sections/{section}/items/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRemoveItem(w, r, r.PathValue("page"), r.PathValue("section"), r.PathValue("id"))
		})
	}
}
