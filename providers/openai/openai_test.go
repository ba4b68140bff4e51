package openai

import (
	"encoding/base64"
	"testing"

	"github.com/montanaflynn/retouch"

	"github.com/openai/openai-go/v3/responses"
)

// Compile-time check that Backend implements retouch.Backend.
var _ retouch.Backend = (*Backend)(nil)

// Note: We avoid real API calls by using dummy keys; New does not make network requests.

func TestOpenAI_New_APIKeyHandling(t *testing.T) {
	t.Run("explicit empty key errors", func(t *testing.T) {
		_, err := New(WithAPIKey(""))
		if err != ErrAPIKeyRequired {
			t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
		}
	})

	t.Run("explicit non-empty key ok", func(t *testing.T) {
		if _, err := New(WithAPIKey("dummy")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fallback env set", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "dummy")
		if _, err := New(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fallback env missing errors", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		if _, err := New(); err != ErrAPIKeyRequired {
			t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
		}
	})
}

func TestExtractImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("image_generation_call result decoded", func(t *testing.T) {
		resp := &responses.Response{
			Output: []responses.ResponseOutputItemUnion{
				{Type: "message"},
				{Type: "image_generation_call", Result: base64.StdEncoding.EncodeToString(png)},
			},
		}
		img, ok := extractImage(resp, "png")
		if !ok {
			t.Fatalf("expected an image")
		}
		if img.MIME != "image/png" {
			t.Fatalf("mime = %q", img.MIME)
		}
		if len(img.Data) != len(png) {
			t.Fatalf("data length = %d", len(img.Data))
		}
	})

	t.Run("invalid base64 is skipped", func(t *testing.T) {
		resp := &responses.Response{
			Output: []responses.ResponseOutputItemUnion{
				{Type: "image_generation_call", Result: "!!not base64!!"},
			},
		}
		if _, ok := extractImage(resp, "png"); ok {
			t.Fatalf("expected no image")
		}
	})

	t.Run("no image items", func(t *testing.T) {
		if _, ok := extractImage(&responses.Response{}, "png"); ok {
			t.Fatalf("expected no image")
		}
		if _, ok := extractImage(nil, "png"); ok {
			t.Fatalf("nil response should yield no image")
		}
	})

	t.Run("unsniffable bytes fall back to requested format", func(t *testing.T) {
		resp := &responses.Response{
			Output: []responses.ResponseOutputItemUnion{
				{Type: "image_generation_call", Result: base64.StdEncoding.EncodeToString([]byte("opaque"))},
			},
		}
		img, ok := extractImage(resp, "webp")
		if !ok || img.MIME != "image/webp" {
			t.Fatalf("fallback mime = %q (ok=%v)", img.MIME, ok)
		}
	})
}

func TestMimeFromFormat(t *testing.T) {
	cases := map[string]string{
		"png":  "image/png",
		"jpeg": "image/jpeg",
		"jpg":  "image/jpeg",
		"webp": "image/webp",
		"":     "image/png",
	}
	for format, want := range cases {
		if got := mimeFromFormat(format); got != want {
			t.Errorf("mimeFromFormat(%q) = %q, want %q", format, got, want)
		}
	}
}
