// Package supabase provides a client for the Supabase Storage REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Storage defines the Supabase Storage operations used by the report pipeline.
type Storage interface {
	// Upload stores data at bucket/path.
	Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) (*UploadResponse, error)
	// PublicURL returns the public URL of an object in a public bucket.
	PublicURL(bucket, path string) string
}

// UploadOptions controls object metadata and overwrite behavior.
type UploadOptions struct {
	ContentType  string
	Upsert       bool
	CacheControl string
}

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Key string `json:"Key"`
	ID  string `json:"Id"`
}

// Option configures the storage client.
type Option func(*storageClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *storageClient) {
		c.http = hc
	}
}

type storageClient struct {
	projectURL string
	key        string
	http       *http.Client
}

// DefaultTimeout bounds each upload made with the default http.Client.
const DefaultTimeout = 60 * time.Second

// NewStorage creates a Storage client for the project at projectURL
// (e.g. https://xyz.supabase.co) authenticated with key.
func NewStorage(projectURL, key string, opts ...Option) Storage {
	c := &storageClient{
		projectURL: strings.TrimRight(projectURL, "/"),
		key:        key,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *storageClient) Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) (*UploadResponse, error) {
	if bucket == "" || path == "" {
		return nil, eris.New("supabase: bucket and path are required")
	}

	reqURL := c.projectURL + "/storage/v1/object/" + escapePath(bucket) + "/" + escapePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "supabase: create upload request")
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cacheControl := opts.CacheControl
	if cacheControl == "" {
		cacheControl = "3600"
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age="+cacheControl)
	req.Header.Set("x-upsert", strconv.FormatBool(opts.Upsert))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "supabase: upload request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "supabase: read upload response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, eris.Errorf("supabase: upload %s/%s: status %d: %s", bucket, path, resp.StatusCode, apiErr.Message)
		}
		return nil, eris.Errorf("supabase: upload %s/%s: status %d: %s", bucket, path, resp.StatusCode, string(body))
	}

	var result UploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "supabase: unmarshal upload response")
	}
	return &result, nil
}

func (c *storageClient) PublicURL(bucket, path string) string {
	return c.projectURL + "/storage/v1/object/public/" + escapePath(bucket) + "/" + escapePath(path)
}

// escapePath escapes each segment of an object path, keeping separators.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
