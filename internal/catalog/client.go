package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"indiestream/pkg/logging"
	strs "indiestream/pkg/strings"

	"github.com/google/uuid"
)

// DefaultRequestTimeout bounds list, get and delete calls.
const DefaultRequestTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// API is the catalog service as the Engine uses it.
type API interface {
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, req UploadRequest, progress func(sent, total int64)) (string, error)
}

// Client talks to the catalog REST API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
}

// NewClient creates a client for baseURL. httpClient carries the
// credential transport; its timeout applies to every call except uploads,
// which are bounded by their context only.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	upload := *httpClient
	upload.Timeout = 0

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   httpClient,
		uploadClient: &upload,
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns all games.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := c.doJSON(ctx, "list", http.MethodGet, "/games", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one game. A missing game yields an error matching
// ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (Entry, error) {
	var entry Entry
	if err := c.doJSON(ctx, "get", http.MethodGet, "/games/"+url.PathEscape(id), &entry); err != nil {
		return Entry{}, err
	}
	if entry.ID == "" {
		entry.ID = id
	}
	return entry, nil
}

// Delete removes a game.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete", http.MethodDelete, "/games/"+url.PathEscape(id), nil)
}

// Upload submits a game as a multipart form with the fields title and file.
// progress, if set, is called as the body is sent. It returns the
// Content-Location of the created game.
func (c *Client) Upload(ctx context.Context, req UploadRequest, progress func(sent, total int64)) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", req.Title); err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	if _, err := part.Write(req.File); err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}

	total := int64(body.Len())
	var reader io.Reader = &body
	if progress != nil {
		reader = &progressReader{r: &body, total: total, report: progress}
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/games", reader)
	if err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(c.uploadClient, httpReq)
	if err != nil {
		return "", &TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", responseError("upload", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("Content-Location"), nil
}

// EntryIDFromLocation returns the last path segment of a Content-Location
// value such as "host/games/{id}".
func EntryIDFromLocation(location string) string {
	location = strings.TrimSuffix(location, "/")
	if location == "" {
		return ""
	}
	return path.Base(location)
}

func (c *Client) doJSON(ctx context.Context, op, method, p string, out any) error {
	req, err := c.newRequest(ctx, method, p, nil)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) send(client *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := client.Do(req)
	requestID := req.Header.Get("X-Request-ID")
	if err != nil {
		logging.Debug("Catalog", "%s %s failed after %s (request_id=%s): %v",
			req.Method, req.URL.Path, time.Since(start).Round(time.Millisecond), requestID, err)
		return nil, err
	}
	logging.Debug("Catalog", "%s %s -> %d in %s (request_id=%s)",
		req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)
	return resp, nil
}

// responseError builds a TransportError from a non-2xx response, using the
// API's {"message": ...} body when present.
func responseError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Message string `json:"message"`
	}
	message := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		message = body.Message
	} else if text := strings.TrimSpace(string(data)); text != "" {
		message = text
	}
	message = strs.Truncate(message, strs.MaxMessageLen)
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: message}
}

// progressReader reports bytes read so far.
type progressReader struct {
	r      io.Reader
	sent   atomic.Int64
	total  int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.report(p.sent.Add(int64(n)), p.total)
	}
	return n, err
}
