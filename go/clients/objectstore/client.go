// Package objectstore is an HTTP client for an S3-style object storage
// service: PUT the bytes to a path, get back the stored object's URL.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crickyard/registration/go/internal/storage"
)

type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// Put uploads one object. Network failures and 5xx responses come back as
// transient upload errors; 4xx responses (too large, unsupported media type,
// malformed content) are permanent.
func (c *Client) Put(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", &storage.UploadError{Path: path, Permanent: true, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &storage.UploadError{Path: path, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// The provider may disambiguate duplicate filenames; it answers
		// with the final object URL when it does.
		if stored := strings.TrimSpace(string(body)); stored != "" {
			return stored, nil
		}
		return url, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &storage.UploadError{
			Path:      path,
			Permanent: true,
			Err:       fmt.Errorf("provider rejected upload: status %d: %s", resp.StatusCode, body),
		}
	default:
		return "", &storage.UploadError{
			Path: path,
			Err:  fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body),
		}
	}
}
