package filebatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gamemon/internal/domain"
)

// DefaultDownloadTimeout bounds the package round-trip so the UI never
// sticks in "in progress" when the server goes away.
const DefaultDownloadTimeout = 15 * time.Second

// Downloader exchanges a key selection for a one-shot download URL.
type Downloader struct {
	client  *http.Client
	baseURL string
}

// NewDownloader creates a downloader against the per-channel base URL.
func NewDownloader(baseURL string) *Downloader {
	return &Downloader{
		client:  &http.Client{Timeout: DefaultDownloadTimeout},
		baseURL: baseURL,
	}
}

// SetBaseURL repoints the downloader after a channel change.
func (d *Downloader) SetBaseURL(baseURL string) {
	d.baseURL = baseURL
}

// Download sends the batch request for the service's current selection.
// A full selection is collapsed to the wildcard marker so the server can
// skip enumerating every key. Returns the one-shot URL of the packaged
// artifact.
func (d *Downloader) Download(ctx context.Context, sel *Service) (string, error) {
	keys := sel.Current()
	if len(keys) == 0 {
		return "", fmt.Errorf("filebatch: no items selected")
	}
	if sel.IsFullSelection() {
		keys = []string{"*"}
	}
	return d.request(ctx, keys)
}

// DownloadKeys requests a package for an explicit key set, bypassing the
// selection service. Used to view a single file in place.
func (d *Downloader) DownloadKeys(ctx context.Context, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("filebatch: no keys given")
	}
	return d.request(ctx, keys)
}

// Fetch retrieves the content behind a one-shot download URL.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("filebatch: build fetch: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("filebatch: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("filebatch: bad response from server: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxViewBytes))
	if err != nil {
		return "", fmt.Errorf("filebatch: read body: %w", err)
	}
	return string(body), nil
}

// maxViewBytes caps in-place viewing; bigger files go through Download.
const maxViewBytes = 8 << 20

func (d *Downloader) request(ctx context.Context, keys []string) (string, error) {
	if d.baseURL == "" {
		return "", fmt.Errorf("filebatch: no download endpoint for current channel")
	}

	body, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("filebatch: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("filebatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("filebatch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("filebatch: bad response from server: %s", resp.Status)
	}

	var reply struct {
		Idx string `json:"idx"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("filebatch: decode response: %w", err)
	}
	if reply.Idx == "" {
		return "", fmt.Errorf("filebatch: server returned empty package index")
	}

	return d.baseURL + reply.Idx, nil
}

// FileKindIcon maps a file kind to its one-glyph marker in the tree view.
func FileKindIcon(k domain.FileKind) string {
	switch k {
	case domain.FileCSV:
		return "▤"
	case domain.FileJSON:
		return "{}"
	default:
		return "·"
	}
}
