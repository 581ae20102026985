// Package novelai is the HTTP client for the image generation provider.
package novelai

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"grid/internal/apperr"
)

// Artifact is one named binary file extracted from a generation response.
type Artifact struct {
	Name string
	Data []byte
}

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}
}

// GenerateImage runs one generation call. The provider answers with a
// zip archive of named image files; each entry becomes one Artifact.
func (c *Client) GenerateImage(ctx context.Context, prompt, model, action string, parameters map[string]any) ([]Artifact, error) {
	payload := map[string]any{
		"input":      prompt,
		"model":      model,
		"action":     action,
		"parameters": parameters,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Providerf("encode generate-image payload: %v", err)
	}

	url := c.baseURL + "/ai/generate-image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Providerf("create generate-image request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("sending generate-image request", "model", model, "action", action)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Providerf("generate-image request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Providerf("read generate-image response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Providerf("generate-image returned status %d: %s", resp.StatusCode, truncate(raw))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "binary/octet-stream" && ct != "application/zip" {
		return nil, apperr.Providerf("unexpected generate-image content type %q", ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, apperr.Providerf("generate-image response is not a valid zip: %v", err)
	}

	artifacts := make([]Artifact, 0, len(zr.File))
	for _, zf := range zr.File {
		f, err := zf.Open()
		if err != nil {
			return nil, apperr.Providerf("open archive entry %s: %v", zf.Name, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperr.Providerf("read archive entry %s: %v", zf.Name, err)
		}
		artifacts = append(artifacts, Artifact{Name: zf.Name, Data: data})
	}

	c.logger.Info("extracted generation artifacts", "count", len(artifacts))
	return artifacts, nil
}

// EncodeVibe submits a JPEG image for vibe encoding and returns the raw
// encoded blob. informationExtracted controls how much style the encoder
// extracts from the source.
func (c *Client) EncodeVibe(ctx context.Context, jpegImage []byte, informationExtracted float64, model string) ([]byte, error) {
	payload := map[string]any{
		"image":                 base64.StdEncoding.EncodeToString(jpegImage),
		"information_extracted": informationExtracted,
	}
	if model != "" {
		payload["model"] = model
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Providerf("encode encode-vibe payload: %v", err)
	}

	url := c.baseURL + "/ai/encode-vibe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Providerf("create encode-vibe request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("sending encode-vibe request", "information_extracted", informationExtracted)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperr.Providerf("encode-vibe request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Providerf("read encode-vibe response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Providerf("encode-vibe returned status %d: %s", resp.StatusCode, truncate(raw))
	}
	return raw, nil
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return fmt.Sprintf("%s... (%d bytes)", b[:limit], len(b))
	}
	return string(b)
}
