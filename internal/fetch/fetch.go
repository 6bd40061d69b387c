// Package fetch downloads remote trace files over HTTP(S) so they can
// be loaded the same way as local ones.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client downloads trace files.
type Client struct {
	http *resty.Client
}

// Config holds transport settings for remote fetches.
type Config struct {
	Timeout    time.Duration
	RetryCount int
}

// New creates a download client.
func New(cfg Config) *Client {
	c := resty.New()
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryCount > 0 {
		c.SetRetryCount(cfg.RetryCount)
	}
	return &Client{http: c}
}

// IsURL reports whether source names a remote trace rather than a
// local file.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Download fetches the trace at rawURL into dir and returns the local
// path. The remote file name is preserved so the loader can keep using
// the extension to pick a format.
func (c *Client) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing trace url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "trace.xml"
	}
	dest := filepath.Join(dir, name)

	resp, err := c.http.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		os.Remove(dest)
		return "", fmt.Errorf("fetching %s: status %d", rawURL, resp.StatusCode())
	}

	return dest, nil
}
