package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client calls the shiori HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var errBody struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(b, &errBody) == nil && errBody.Error != "" {
			apiErr.Message, apiErr.Code = errBody.Error, errBody.Code
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

// Upload sends the file at path.
func (c *Client) Upload(ctx context.Context, path string) (*server.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out server.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Document fetches one document.
func (c *Client) Document(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id), "", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Documents lists one page of the library.
func (c *Client) Documents(ctx context.Context, page, limit int) (*server.DocumentList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var list server.DocumentList
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents?"+q.Encode(), "", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Retry re-runs the failed stage of a document.
func (c *Client) Retry(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/"+url.PathEscape(id)+"/retry", "", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Search searches chunks.
func (c *Client) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := c.postJSON(ctx, "/api/v1/search", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterCitation registers key and returns its number.
func (c *Client) RegisterCitation(ctx context.Context, key string) (*models.Registration, error) {
	var reg models.Registration
	if err := c.postJSON(ctx, "/api/v1/citations", map[string]string{"citationKey": key}, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Status fetches library counts.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var st server.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WatchDirectories lists the inbox directories.
func (c *Client) WatchDirectories(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/watch/directories", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// AddWatchDirectory adds an inbox directory on the server.
func (c *Client) AddWatchDirectory(ctx context.Context, path string, syncExisting bool) error {
	body := map[string]any{"path": path, "sync": syncExisting}
	return c.postJSON(ctx, "/api/v1/watch/directories", body, nil)
}

// RemoveWatchDirectory stops watching an inbox directory.
func (c *Client) RemoveWatchDirectory(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), "", nil, nil)
}
