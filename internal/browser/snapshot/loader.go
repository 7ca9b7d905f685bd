package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Loader fetches the markup behind a URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

func (f LoaderFunc) Load(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// DefaultLoader reads file:// URLs and plain paths from disk and fetches
// http(s) URLs with Client.
type DefaultLoader struct {
	Client *http.Client
}

func (l DefaultLoader) Load(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || (len(u.Scheme) == 1 && strings.Contains(rawURL, `:\`)) {
		// A plain path, including Windows drive letters.
		return os.Open(rawURL)
	}

	switch u.Scheme {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
		}
		return resp.Body, nil
	}
	return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
}
