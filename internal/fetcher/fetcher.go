// Package fetcher downloads vendor price files over HTTP or FTP and parses
// CSV and XLSX rows out of them.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote file.
type Fetcher interface {
	// Download fetches the URL and returns the body. The caller must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// ForURL returns a fetcher for the URL's scheme.
func ForURL(rawURL string, timeout time.Duration) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch u.Scheme {
	case "ftp":
		return NewFTPFetcher(FTPOptions{Timeout: timeout}), nil
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{Timeout: timeout}), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
