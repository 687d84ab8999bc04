package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// HTTPReader downloads a single file over HTTP(S) using a caller-supplied
// client, so the scoped proxy client from internal/httpclient is used
// instead of http.DefaultClient (see that package's doc comment).
type HTTPReader struct {
	URL    string
	Client *http.Client
}

// NewHTTPReader constructs an HTTPReader. client must not be nil; pass
// httpclient.New(cfg.Proxy, timeout) from the caller.
func NewHTTPReader(rawURL string, client *http.Client) *HTTPReader {
	return &HTTPReader{URL: rawURL, Client: client}
}

// Read fetches the URL and returns it as a single File named after the
// last path segment.
func (r *HTTPReader) Read(ctx context.Context) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", r.URL, err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", r.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", r.URL, err)
	}

	return []File{{Name: filenameFromURL(r.URL), Data: data}}, nil
}

func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "downloaded_file"
	}
	return strings.TrimPrefix(name, "/")
}
