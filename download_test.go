package retouch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/montanaflynn/retouch"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestDownloaderFetchImage(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches and sniffs image", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") == "" {
				t.Errorf("missing User-Agent header")
			}
			// Wrong header on purpose; bytes win.
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pngBytes)
		}))
		defer srv.Close()

		d := &retouch.Downloader{}
		img, err := d.FetchImage(ctx, srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if img.MIME != "image/png" {
			t.Fatalf("MIME = %q", img.MIME)
		}
		if len(img.Data) != len(pngBytes) {
			t.Fatalf("data length = %d", len(img.Data))
		}
	})

	t.Run("rejects non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		d := &retouch.Downloader{}
		_, err := d.FetchImage(ctx, srv.URL)
		if retouch.GetErrorCode(err) != retouch.Unavailable {
			t.Fatalf("expected unavailable, got %v", err)
		}
	})

	t.Run("rejects non-image payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>product page</html>"))
		}))
		defer srv.Close()

		d := &retouch.Downloader{}
		_, err := d.FetchImage(ctx, srv.URL)
		if retouch.GetErrorCode(err) != retouch.InvalidArgument {
			t.Fatalf("expected invalid_argument, got %v", err)
		}
	})

	t.Run("enforces size cap", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(pngBytes)
		}))
		defer srv.Close()

		d := &retouch.Downloader{MaxBytes: 16}
		_, err := d.FetchImage(ctx, srv.URL)
		if retouch.GetErrorCode(err) != retouch.InvalidArgument {
			t.Fatalf("expected invalid_argument, got %v", err)
		}
	})

	t.Run("rejects bad URL", func(t *testing.T) {
		d := &retouch.Downloader{}
		_, err := d.FetchImage(ctx, "http://\x7f")
		if retouch.GetErrorCode(err) != retouch.InvalidArgument {
			t.Fatalf("expected invalid_argument, got %v", err)
		}
	})
}
