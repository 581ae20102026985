// Package eagle is the HTTP client for the Eagle curation system.
//
// Eagle's add endpoints do not accept a rating, so a rated export is an
// add-then-patch pair: AddItems first, then UpdateItem with the star.
package eagle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"grid/internal/apperr"
	"grid/internal/models"
)

// Item is one curated library entry as returned by the API.
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Tags       []string `json:"tags,omitempty"`
	Annotation string   `json:"annotation,omitempty"`
	Star       int      `json:"star,omitempty"`
}

// Folder is one library folder from /api/folder/list.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// envelope is Eagle's response wrapper. Older endpoints answer with a
// numeric code, newer ones with a status string.
type envelope struct {
	Status  string          `json:"status"`
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) ok() bool {
	if e.Status != "" {
		return e.Status == "success"
	}
	return e.Code != nil && *e.Code == 200
}

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// AddItems adds files to the library in one batch via
// /api/item/addFromPaths. names, when given, must match paths in length;
// each name defaults to the file's base name otherwise. The add endpoint
// cannot carry a rating; use UpdateItem for that.
func (c *Client) AddItems(ctx context.Context, paths, names, tags []string, annotation string) ([]Item, error) {
	if len(names) != 0 && len(names) != len(paths) {
		return nil, apperr.Validationf("names length %d does not match paths length %d", len(names), len(paths))
	}

	items := make([]map[string]any, 0, len(paths))
	for i, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if len(names) != 0 {
			name = names[i]
		}
		item := map[string]any{
			"path": normalizePath(p),
			"name": name,
		}
		if len(tags) != 0 {
			item["tags"] = tags
		}
		if annotation != "" {
			item["annotation"] = annotation
		}
		items = append(items, item)
	}

	c.logger.Info("adding items to eagle", "count", len(paths))
	var added []Item
	if err := c.post(ctx, "/api/item/addFromPaths", map[string]any{"items": items}, &added); err != nil {
		return nil, err
	}
	return added, nil
}

// AddItem adds a single file via /api/item/addFromPath.
func (c *Client) AddItem(ctx context.Context, path, name string, tags []string, annotation string) (*Item, error) {
	payload := map[string]any{
		"path": normalizePath(path),
		"name": name,
	}
	if len(tags) != 0 {
		payload["tags"] = tags
	}
	if annotation != "" {
		payload["annotation"] = annotation
	}

	c.logger.Info("adding item to eagle", "path", path)
	var added Item
	if err := c.post(ctx, "/api/item/addFromPath", payload, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateItem patches an existing item. This is the only endpoint that
// accepts a rating.
func (c *Client) UpdateItem(ctx context.Context, id string, tags []string, annotation string, rating *int) (*Item, error) {
	if id == "" {
		return nil, apperr.Validationf("item id is required")
	}
	payload := map[string]any{"id": id}
	if len(tags) != 0 {
		payload["tags"] = tags
	}
	if annotation != "" {
		payload["annotation"] = annotation
	}
	if rating != nil {
		if err := models.ValidateRating(*rating); err != nil {
			return nil, apperr.Validationf("item %s: %v", id, err)
		}
		payload["star"] = *rating
	}

	c.logger.Info("updating eagle item", "id", id)
	var updated Item
	if err := c.post(ctx, "/api/item/update", payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListFolders returns all folders in the library.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.get(ctx, "/api/folder/list", true, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// ApplicationInfo returns details of the running Eagle instance. The
// endpoint takes no token.
func (c *Client) ApplicationInfo(ctx context.Context) (map[string]any, error) {
	var info map[string]any
	if err := c.get(ctx, "/api/application/info", false, &info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Exportf("encode %s payload: %v", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint, true), bytes.NewReader(body))
	if err != nil {
		return apperr.Exportf("create %s request: %v", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, out)
}

func (c *Client) get(ctx context.Context, endpoint string, withToken bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(endpoint, withToken), nil)
	if err != nil {
		return apperr.Exportf("create %s request: %v", endpoint, err)
	}
	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperr.Exportf("%s request failed: %v", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Exportf("read %s response: %v", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Exportf("%s returned status %d: %s", endpoint, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperr.Exportf("decode %s response: %v", endpoint, err)
	}
	if !env.ok() {
		return apperr.Exportf("%s returned error envelope: %s", endpoint, env.Message)
	}
	if out != nil && len(env.Data) != 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Exportf("decode %s data: %v", endpoint, err)
		}
	}
	return nil
}

// endpointURL appends the API token as a query parameter. Eagle does not
// read Authorization headers.
func (c *Client) endpointURL(endpoint string, withToken bool) string {
	u := c.baseURL + endpoint
	if withToken && c.token != "" {
		u += "?token=" + url.QueryEscape(c.token)
	}
	return u
}

// normalizePath converts a local path into the forward-slash form the
// API expects.
func normalizePath(p string) string {
	return filepath.ToSlash(p)
}
