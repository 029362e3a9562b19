package internal

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves remote images so they can be scrubbed like local files.
type Fetcher struct {
	client HTTPClient
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// RemoteName derives a local file name from the last path element of a URL.
func RemoteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.png"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "download.png"
	}
	if path.Ext(name) == "" {
		name += ".png"
	}
	return name
}

func (f *Fetcher) Fetch(rawURL string) (io.ReadCloser, error) {
	slog.Debug("Retrieving", "url", rawURL)
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/png")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", rawURL, err)
	}

	if res.StatusCode > 299 {
		res.Body.Close()
		return nil, fmt.Errorf("http status response from %s: %s", rawURL, res.Status)
	}

	return res.Body, nil
}
