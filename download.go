package retouch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultDownloadMaxBytes caps a single source-image download.
	DefaultDownloadMaxBytes = 25 * 1024 * 1024
	// DefaultDownloadTimeout bounds a single source-image download.
	DefaultDownloadTimeout = 30 * time.Second

	// Some product CDNs refuse requests without a browser User-Agent.
	downloadUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Downloader fetches source images over HTTP with a size cap and timeout.
// The zero-value fields fall back to the package defaults.
type Downloader struct {
	HTTPClient *http.Client
	MaxBytes   int64
	Timeout    time.Duration
}

// FetchImage downloads url and returns the image bytes with a verified MIME
// type. Responses that are not images fail with InvalidArgument.
func (d *Downloader) FetchImage(ctx context.Context, url string) (Image, error) {
	hc := d.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	maxBytes := d.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultDownloadMaxBytes
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, NewError(InvalidArgument, fmt.Sprintf("invalid image URL: %v", err)).WithCause(err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Image{}, NewError(Timeout, "download timeout").WithCause(err)
		}
		return Image{}, NewError(Unavailable, fmt.Sprintf("download failed: %v", err)).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, NewError(Unavailable, fmt.Sprintf("download failed with status %d", resp.StatusCode))
	}

	if resp.ContentLength > maxBytes {
		return Image{}, NewError(InvalidArgument, fmt.Sprintf("image size %d exceeds maximum %d bytes", resp.ContentLength, maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return Image{}, NewError(Unavailable, fmt.Sprintf("failed to read image: %v", err)).WithCause(err)
	}
	if int64(len(data)) > maxBytes {
		return Image{}, NewError(InvalidArgument, fmt.Sprintf("image exceeds maximum %d bytes", maxBytes))
	}

	// Trust the bytes over the Content-Type header.
	mime := SniffImageMIME(data)
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, NewError(InvalidArgument, fmt.Sprintf("expected image, got %q", mime))
	}

	return Image{Data: data, MIME: mime}, nil
}
