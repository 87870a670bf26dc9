package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// HTTPClient implements Client against a JSON REST service exposing
// /users/me and per-collection /notes, /chatThreads, /labels routes.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// Verify *HTTPClient satisfies Client at compile time.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the service at baseURL. The token
// is sent as a Bearer credential on every request. A timeout <= 0
// defaults to 15 seconds.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// do issues a request and decodes the response into out (when non-nil).
// Transport failures and retryable statuses map to apperr.ErrUnavailable,
// 404 to apperr.ErrNotFound, 401/403 to apperr.ErrDenied.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrDenied)
	case resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500:
		return fmt.Errorf("remote: %s %s: status %d: %w", method, path, resp.StatusCode, apperr.ErrUnavailable)
	case resp.StatusCode >= 400:
		return fmt.Errorf("remote: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// CurrentUser resolves the authenticated identity. A 401 means signed
// out and returns (nil, nil) rather than an error.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &u)
	if err != nil {
		if errors.Is(err, apperr.ErrDenied) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func listPath(collection models.Collection, ownerID string) string {
	return fmt.Sprintf("/%s?owner=%s", collection, url.QueryEscape(ownerID))
}

func itemPath(collection models.Collection, id string) string {
	return fmt.Sprintf("/%s/%s", collection, url.PathEscape(id))
}

func (c *HTTPClient) ListNotes(ctx context.Context, ownerID string) ([]models.Note, error) {
	var out []models.Note
	if err := c.do(ctx, http.MethodGet, listPath(models.CollectionNotes, ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateNote(ctx context.Context, n models.Note) (models.Note, error) {
	var out models.Note
	if err := c.do(ctx, http.MethodPost, "/"+string(models.CollectionNotes), n, &out); err != nil {
		return models.Note{}, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, id string, n models.Note) (models.Note, error) {
	var out models.Note
	if err := c.do(ctx, http.MethodPut, itemPath(models.CollectionNotes, id), n, &out); err != nil {
		return models.Note{}, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(models.CollectionNotes, id), nil, nil)
}

func (c *HTTPClient) ListThreads(ctx context.Context, ownerID string) ([]models.ChatThread, error) {
	var out []models.ChatThread
	if err := c.do(ctx, http.MethodGet, listPath(models.CollectionThreads, ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateThread(ctx context.Context, t models.ChatThread) (models.ChatThread, error) {
	var out models.ChatThread
	if err := c.do(ctx, http.MethodPost, "/"+string(models.CollectionThreads), t, &out); err != nil {
		return models.ChatThread{}, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateThread(ctx context.Context, id string, t models.ChatThread) (models.ChatThread, error) {
	var out models.ChatThread
	if err := c.do(ctx, http.MethodPut, itemPath(models.CollectionThreads, id), t, &out); err != nil {
		return models.ChatThread{}, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteThread(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(models.CollectionThreads, id), nil, nil)
}

func (c *HTTPClient) ListLabels(ctx context.Context, ownerID string) ([]models.Label, error) {
	var out []models.Label
	if err := c.do(ctx, http.MethodGet, listPath(models.CollectionLabels, ownerID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateLabel(ctx context.Context, l models.Label) (models.Label, error) {
	var out models.Label
	if err := c.do(ctx, http.MethodPost, "/"+string(models.CollectionLabels), l, &out); err != nil {
		return models.Label{}, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateLabel(ctx context.Context, id string, l models.Label) (models.Label, error) {
	var out models.Label
	if err := c.do(ctx, http.MethodPut, itemPath(models.CollectionLabels, id), l, &out); err != nil {
		return models.Label{}, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteLabel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(models.CollectionLabels, id), nil, nil)
}
