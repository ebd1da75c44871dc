package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-pages/components/pages"
	"github.com/goliatone/go-pages/components/pages/commands"
	"github.com/goliatone/go-pages/components/pages/httpapi"
	"github.com/goliatone/go-pages/components/pages/queries"
)

// Config wires go-router with the page editor handlers and live updates.
type Config[T any] struct {
	Router    router.Router[T]
	API       *httpapi.Handlers
	Broadcast *pages.BroadcastHook
	BasePath  string
	Routes    RouteConfig
}

// RouteConfig customizes the relative paths used for page editor endpoints.
type RouteConfig struct {
	Pages        string
	Document     string
	Save         string
	SaveSections string
	Reload       string
	Move         string
	Upload       string
	Section      string
	Items        string
	Item         string
	WebSocket    string
}

// Register mounts the page editor REST and WebSocket routes on a go-router router.
// Endpoints whose command or query is nil are skipped.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api handlers are required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin/pages"
	}
	group := cfg.Router.Group(base)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	registerQueries(group, cfg.API, routes)
	registerCommands(group, cfg.API, routes)
	return nil
}

func registerQueries[T any](r router.Router[T], api *httpapi.Handlers, routes RouteConfig) {
	if api.Pages != nil {
		r.Get(routes.Pages, router.WrapHandler(func(ctx router.Context) error {
			list, err := api.Pages.Query(ctx.Context(), queries.PagesInput{})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, list)
		}))
	}
	if api.Document != nil {
		r.Get(routes.Document, router.WrapHandler(func(ctx router.Context) error {
			snap, err := api.Document.Query(ctx.Context(), queries.DocumentInput{Page: ctx.Param("page")})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, snap)
		}))
	}
}

func registerCommands[T any](r router.Router[T], api *httpapi.Handlers, routes RouteConfig) {
	if api.Save != nil {
		r.Post(routes.Save, router.WrapHandler(func(ctx router.Context) error {
			if err := api.Save.Execute(ctx.Context(), commands.SaveDocumentInput{Page: ctx.Param("page")}); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.SaveSections != nil {
		r.Post(routes.SaveSections, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SaveSectionsInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondBadRequest(ctx, err)
			}
			payload.Page = ctx.Param("page")
			if err := api.SaveSections.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.Reload != nil {
		r.Post(routes.Reload, router.WrapHandler(func(ctx router.Context) error {
			if err := api.Reload.Execute(ctx.Context(), commands.ReloadDocumentInput{Page: ctx.Param("page")}); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "reloaded"})
		}))
	}

	if api.Move != nil {
		r.Post(routes.Move, router.WrapHandler(func(ctx router.Context) error {
			var payload pages.MoveItemRequest
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondBadRequest(ctx, err)
			}
			payload.Page = ctx.Param("page")
			if err := api.Move.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "reordered"})
		}))
	}

	if api.Upload != nil {
		r.Post(routes.Upload, router.WrapHandler(func(ctx router.Context) error {
			return upload(ctx, api)
		}))
	}

	if api.SetFields != nil {
		r.Put(routes.Section, router.WrapHandler(func(ctx router.Context) error {
			var fields pages.Fields
			if err := json.Unmarshal(ctx.Body(), &fields); err != nil {
				return respondBadRequest(ctx, err)
			}
			input := commands.SetFieldsInput{Page: ctx.Param("page"), Section: ctx.Param("section"), Fields: fields}
			if err := api.SetFields.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
		}))
	}

	if api.EditItem != nil {
		r.Post(routes.Items, router.WrapHandler(func(ctx router.Context) error {
			return editItem(ctx, api, "")
		}))
		r.Put(routes.Item, router.WrapHandler(func(ctx router.Context) error {
			id := ctx.Param("id")
			if id == "" {
				return respondBadRequest(ctx, errors.New("item id is required"))
			}
			return editItem(ctx, api, id)
		}))
	}

	if api.RemoveItem != nil {
		r.Delete(routes.Item, router.WrapHandler(func(ctx router.Context) error {
			id := ctx.Param("id")
			if id == "" {
				return respondBadRequest(ctx, errors.New("item id is required"))
			}
			input := commands.RemoveItemInput{Page: ctx.Param("page"), Section: ctx.Param("section"), ID: id}
			if err := api.RemoveItem.Execute(ctx.Context(), input); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
		}))
	}
}

func editItem(ctx router.Context, api *httpapi.Handlers, id string) error {
	var fields pages.Fields
	if err := json.Unmarshal(ctx.Body(), &fields); err != nil {
		return respondBadRequest(ctx, err)
	}
	var item pages.Item
	input := commands.EditItemInput{
		ItemRequest: pages.ItemRequest{Page: ctx.Param("page"), Section: ctx.Param("section"), ID: id, Fields: fields},
		Result:      &item,
	}
	if err := api.EditItem.Execute(ctx.Context(), input); err != nil {
		return respondError(ctx, err)
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return ctx.JSON(status, httpapi.ItemResponse(item))
}

func upload(ctx router.Context, api *httpapi.Handlers) error {
	limit := api.UploadLimit()
	body := ctx.Body()
	if int64(len(body)) > limit {
		return respondBadRequest(ctx, errors.New("upload exceeds the request size limit"))
	}
	mediaType, params, err := mime.ParseMediaType(ctx.Header("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return respondBadRequest(ctx, errors.New("expected a multipart body"))
	}
	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(limit)
	if err != nil {
		return respondBadRequest(ctx, err)
	}
	defer form.RemoveAll()

	var url string
	input, closeFile, err := httpapi.UploadInput(ctx.Param("page"), form, &url)
	if err != nil {
		return respondBadRequest(ctx, err)
	}
	defer closeFile()
	if err := api.Upload.Execute(ctx.Context(), input); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"url": url})
}

func registerWebSocket[T any](r router.Router[T], hook *pages.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		page := ws.Query("page")
		events, cancel := hook.Subscribe()
		defer cancel()

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if page != "" && event.Page != page {
					continue
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-gone:
				return nil
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func respondError(ctx router.Context, err error) error {
	status, body := httpapi.ErrorStatus(err)
	return ctx.JSON(status, body)
}

func respondBadRequest(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusBadRequest, httpapi.ErrorResponse{Error: err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Pages == "" {
		routes.Pages = "/"
	}
	if routes.Document == "" {
		routes.Document = "/:page"
	}
	if routes.Save == "" {
		routes.Save = "/:page/save"
	}
	if routes.SaveSections == "" {
		routes.SaveSections = "/:page/sections"
	}
	if routes.Reload == "" {
		routes.Reload = "/:page/reload"
	}
	if routes.Move == "" {
		routes.Move = "/:page/move"
	}
	if routes.Upload == "" {
		routes.Upload = "/:page/upload"
	}
	if routes.Section == "" {
		routes.Section = "/:page/sections/:section"
	}
	if routes.Items == "" {
		routes.Items = "/:page/sections/:section/items"
	}
	if routes.Item == "" {
		routes.Item = "/:page/sections/:section/items/:id"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
