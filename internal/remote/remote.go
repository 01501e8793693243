// Package remote is the JSON client for the stratum REST API.
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
	"strings"
	"time"

	"github.com/zulandar/stratum/internal/models"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// ErrEmptyResponse is returned when a call that expects an object gets a
// 2xx response with no body or a JSON null.
var ErrEmptyResponse = errors.New("empty response body")

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to one API base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOpts holds parameters for New.
type ClientOpts struct {
	BaseURL string
	Timeout time.Duration // per-request transport timeout; 0 leaves it unset
	// For testing: inject an HTTP client (e.g. httptest.Server.Client()).
	HTTPClient *http.Client
}

// New creates a Client.
func New(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("remote: parse base URL: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{baseURL: strings.TrimRight(opts.BaseURL, "/"), http: hc}, nil
}

// do sends body (if non-nil) as JSON and decodes the response into out (if
// non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("remote: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			se.Message = e.Error
		}
		return se
	}
	if out == nil {
		return nil
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, ErrEmptyResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
	}
	return nil
}

func esc(s string) string { return url.PathEscape(s) }

// ListAssemblies returns every assembly of a project with layers and
// segments in order.
func (c *Client) ListAssemblies(ctx context.Context, projectID string) ([]models.Assembly, error) {
	var out []models.Assembly
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+esc(projectID)+"/assemblies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAssembly(ctx context.Context, id string) (*models.Assembly, error) {
	var out models.Assembly
	if err := c.do(ctx, http.MethodGet, "/api/assemblies/"+esc(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAssembly(ctx context.Context, projectID string, req models.AssemblyCreate) (*models.Assembly, error) {
	var out models.Assembly
	if err := c.do(ctx, http.MethodPost, "/api/projects/"+esc(projectID)+"/assemblies", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAssembly(ctx context.Context, id string, patch models.AssemblyPatch) (*models.Assembly, error) {
	var out models.Assembly
	if err := c.do(ctx, http.MethodPatch, "/api/assemblies/"+esc(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAssembly(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/assemblies/"+esc(id), nil, nil)
}

// FlipAssembly asks the server to apply a flip and returns the reordered
// assembly.
func (c *Client) FlipAssembly(ctx context.Context, id string, mode models.FlipMode) (*models.Assembly, error) {
	var out models.Assembly
	if err := c.do(ctx, http.MethodPost, "/api/assemblies/"+esc(id)+"/flip", models.FlipRequest{Mode: mode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateLayer(ctx context.Context, assemblyID string, req models.LayerCreate) (*models.Layer, error) {
	var out models.Layer
	if err := c.do(ctx, http.MethodPost, "/api/assemblies/"+esc(assemblyID)+"/layers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateLayer(ctx context.Context, id string, patch models.LayerPatch) (*models.Layer, error) {
	var out models.Layer
	if err := c.do(ctx, http.MethodPatch, "/api/layers/"+esc(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteLayer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/layers/"+esc(id), nil, nil)
}

func (c *Client) CreateSegment(ctx context.Context, layerID string, req models.SegmentCreate) (*models.Segment, error) {
	var out models.Segment
	if err := c.do(ctx, http.MethodPost, "/api/layers/"+esc(layerID)+"/segments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSegment(ctx context.Context, id string, patch models.SegmentPatch) (*models.Segment, error) {
	var out models.Segment
	if err := c.do(ctx, http.MethodPatch, "/api/segments/"+esc(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSegment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/segments/"+esc(id), nil, nil)
}

func (c *Client) Attachments(ctx context.Context, segmentID string) (*models.Attachments, error) {
	var out models.Attachments
	if err := c.do(ctx, http.MethodGet, "/api/segments/"+esc(segmentID)+"/attachments", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddAttachment records a site photo or datasheet reference on a segment.
func (c *Client) AddAttachment(ctx context.Context, segmentID string, req models.AttachmentCreate) (*models.Attachment, error) {
	var out models.Attachment
	if err := c.do(ctx, http.MethodPost, "/api/segments/"+esc(segmentID)+"/attachments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCatalog returns the raw JSON of a reference catalog.
func (c *Client) FetchCatalog(ctx context.Context, key string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/catalog/"+esc(key), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
