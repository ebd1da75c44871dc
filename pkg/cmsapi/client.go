package cmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/goliatone/go-pages/components/pages"
)

// Config configures the CMS REST client.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client persists page documents through the CMS REST API. It implements
// pages.Backend.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ pages.Backend = (*Client)(nil)

// NewClient builds a client for the CMS API rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cmsapi: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// FetchDocument loads the page document stored at resource. A null document is
// reported as pages.ErrNotFound.
func (c *Client) FetchDocument(ctx context.Context, resource string) (map[string]any, error) {
	op := "fetch " + resource
	var doc map[string]any
	if err := c.doJSON(ctx, op, http.MethodGet, resource, nil, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &pages.RemoteError{Op: op, StatusCode: http.StatusOK, Message: "document is empty", Err: pages.ErrNotFound}
	}
	return doc, nil
}

// UpdateDocument replaces the whole document.
func (c *Client) UpdateDocument(ctx context.Context, resource string, doc map[string]any) error {
	return c.doJSON(ctx, "update "+resource, http.MethodPut, resource, doc, nil)
}

// CreateDocument stores a document for the first time.
func (c *Client) CreateDocument(ctx context.Context, resource string, doc map[string]any) error {
	return c.doJSON(ctx, "create "+resource, http.MethodPost, resource, doc, nil)
}

// UpdateSection replaces one section of the document.
func (c *Client) UpdateSection(ctx context.Context, resource, section string, payload any) error {
	return c.doJSON(ctx, "update "+resource+"/"+section, http.MethodPut, resource+"/"+section, payload, nil)
}

// ReorderSection persists the display order of one collection.
func (c *Client) ReorderSection(ctx context.Context, resource string, req pages.ReorderRequest) error {
	return c.doJSON(ctx, "reorder "+resource+"/"+req.Section, http.MethodPost, resource+"/reorder", req, nil)
}

// Upload posts file as multipart form data to the field's upload endpoint and
// returns the URL the server stored it under.
func (c *Client) Upload(ctx context.Context, resource, field string, file pages.UploadFile) (string, error) {
	op := "upload " + resource + "/" + field
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
	if file.ContentType != "" {
		header.Set("Content-Type", file.ContentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("cmsapi: %s: create form file: %w", op, err)
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return "", fmt.Errorf("cmsapi: %s: copy file: %w", op, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("cmsapi: %s: close multipart writer: %w", op, err)
	}

	var data uploadData
	if err := c.do(ctx, op, http.MethodPost, resource+"/upload-"+field, writer.FormDataContentType(), body, &data); err != nil {
		return "", err
	}
	url := data.url()
	if url == "" {
		return "", &pages.RemoteError{Op: op, StatusCode: http.StatusOK, Message: "response did not include a file url"}
	}
	return url, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, target any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cmsapi: %s: encode payload: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, contentType, body, target)
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("cmsapi: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &pages.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &pages.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	env, decodeErr := decodeEnvelope(raw)

	if resp.StatusCode == http.StatusNotFound {
		return &pages.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: env.Message, Err: pages.ErrNotFound}
	}
	if resp.StatusCode >= 300 || (env.Success != nil && !*env.Success) {
		message := env.Message
		if message == "" && decodeErr != nil {
			message = strings.TrimSpace(string(raw))
		}
		return &pages.RemoteError{
			Op:               op,
			StatusCode:       resp.StatusCode,
			Message:          message,
			ValidationErrors: env.ValidationErrors,
		}
	}
	if target == nil {
		return nil
	}
	if decodeErr != nil {
		return &pages.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	data := env.Data
	if len(data) == 0 || env.Success == nil {
		data = raw
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &pages.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// envelope is the wrapper every CMS endpoint responds with. Bodies without a
// success flag are treated as bare payloads.
type envelope struct {
	Success          *bool              `json:"success"`
	Data             json.RawMessage    `json:"data"`
	Message          string             `json:"message"`
	ValidationErrors []pages.FieldError `json:"validationErrors"`
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, errors.New("empty response body")
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

type uploadData struct {
	ImageURL string `json:"imageUrl"`
	Image    string `json:"image"`
	URL      string `json:"url"`
}

func (d uploadData) url() string {
	switch {
	case d.ImageURL != "":
		return d.ImageURL
	case d.Image != "":
		return d.Image
	default:
		return d.URL
	}
}
