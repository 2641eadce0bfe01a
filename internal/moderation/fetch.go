package moderation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxImageBytes caps how much we will download for one submission.
const maxImageBytes = 20 << 20

// Fetcher retrieves the raw bytes and content type behind an image URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// HTTPFetcher fetches images over plain HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Get downloads the image and reports the content type the origin declared.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
