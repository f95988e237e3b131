package syncer_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/dbsync/internal/syncer"
)

func TestDownload_WritesBodyAndHeaders(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 12*1024)
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "temp.db")
	require.NoError(t, os.WriteFile(dst, []byte("previous run leftovers, longer than nothing"), 0o600))

	d := syncer.NewDownloader(nil, map[string]string{"User-Agent": "dbsync-test", "Accept": "*/*"})
	n, err := d.Download(context.Background(), srv.URL, dst)

	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, body, written, "previous content must be truncated")
	assert.Equal(t, "dbsync-test", got.Get("User-Agent"))
	assert.Equal(t, "*/*", got.Get("Accept"))
}

func TestDownload_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("redirected"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "temp.db")
	_, err := syncer.NewDownloader(nil, nil).Download(context.Background(), srv.URL+"/old", dst)

	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "redirected", string(b))
}

func TestDownload_ErrorStatusLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "temp.db")
	_, err := syncer.NewDownloader(nil, nil).Download(context.Background(), srv.URL, dst)

	assert.ErrorIs(t, err, syncer.ErrDownload)
	assert.NoFileExists(t, dst)
}

func TestDownload_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	dst := filepath.Join(t.TempDir(), "temp.db")
	_, err := syncer.NewDownloader(client, nil).Download(context.Background(), srv.URL, dst)

	assert.ErrorIs(t, err, syncer.ErrDownload)
}

func TestDownload_BadURL(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "temp.db")
	_, err := syncer.NewDownloader(nil, nil).Download(context.Background(), "://nope", dst)

	assert.ErrorIs(t, err, syncer.ErrDownload)
}
