package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"rockstar-pass-monolith/internal/core"
)

// maxReferenceBytes bounds a downloaded reference image
const maxReferenceBytes = 10 << 20

// HTTPReferences downloads reference images over HTTP
type HTTPReferences struct {
	Client *http.Client
}

// NewHTTPReferences creates a fetcher with a bounded client
func NewHTTPReferences() *HTTPReferences {
	return &HTTPReferences{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads url. The MIME type comes from the response and defaults to JPEG.
func (h *HTTPReferences) Fetch(ctx context.Context, url string) (core.Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.Media{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return core.Media{}, fmt.Errorf("failed to fetch reference image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Media{}, fmt.Errorf("reference image returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return core.Media{}, fmt.Errorf("failed to read reference image: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return core.Media{Data: data, MIMEType: mimeType}, nil
}
