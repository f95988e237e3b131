package syncer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Downloader fetches the remote database with a fixed header set.
type Downloader struct {
	client  *http.Client
	headers map[string]string
}

// NewDownloader returns a Downloader using client, or http.DefaultClient
// when client is nil.
//
// Setting Accept-Encoding by hand turns off the transport's transparent
// gzip handling, so a compressed response body is written to disk as is.
func NewDownloader(client *http.Client, headers map[string]string) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Downloader{client: client, headers: h}
}

// Download GETs url and writes the whole body to dst, truncating any
// previous content. It returns the number of bytes written. On error dst
// may hold a partial body; the caller owns its cleanup.
func (d *Downloader) Download(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", ErrDownload, err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	// A sync is one request per process; drop the keep-alive connection
	// once the body is closed.
	defer d.client.CloseIdleConnections()

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: HTTP Error %d: %s", ErrDownload, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", ErrDownload, dst, err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return written, fmt.Errorf("%w: write %s: %v", ErrDownload, dst, err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("%w: close %s: %v", ErrDownload, dst, err)
	}
	return written, nil
}
