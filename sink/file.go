package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/markhamlong/crawlctl/engine"
	"github.com/markhamlong/crawlctl/internal/urlcanon"
)

// File is a durable Sink: each page is written as a JSON document under
// Dir, named by the hash of its canonical URL, so LoadCached survives process
// restarts (the teacher's result package only ever wrote a final
// summary, never per-page records -- this is new surface grounded on
// pyminiscraper's store_file.py).
type File struct {
	Dir            string
	DownloadImages bool
	HTTPClient     *http.Client
}

// NewFile returns a File sink rooted at dir, creating it if necessary.
func NewFile(dir string, downloadImages bool) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory %s: %w", dir, err)
	}
	return &File{Dir: dir, DownloadImages: downloadImages, HTTPClient: &http.Client{}}, nil
}

// OnPage implements engine.Sink: writes page as JSON, and, if
// DownloadImages is set, fetches page.ImageURL into a sidecar file next
// to it (SPEC_FULL.md §3.1, restored from pyminiscraper's
// main_scheduling.py callback).
func (f *File) OnPage(ctx context.Context, page engine.FetchedPage) error {
	path := f.pagePath(page.Hash)
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page %s: %w", page.CanonicalURL, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write page %s: %w", page.CanonicalURL, err)
	}

	if f.DownloadImages && page.ImageURL != "" {
		if err := f.downloadImage(ctx, page.Hash, page.ImageURL); err != nil {
			return fmt.Errorf("download image for %s: %w", page.CanonicalURL, err)
		}
	}
	return nil
}

// LoadCached implements engine.CacheLoader by reading back a
// previously written page record, if any.
func (f *File) LoadCached(_ context.Context, canonicalURL string) (*engine.FetchedPage, bool, error) {
	canon, err := urlcanon.Canonicalize(canonicalURL)
	if err != nil {
		return nil, false, fmt.Errorf("hash %s: %w", canonicalURL, err)
	}
	data, err := os.ReadFile(f.pagePath(canon.Hash))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached page %s: %w", canonicalURL, err)
	}

	var page engine.FetchedPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached page %s: %w", canonicalURL, err)
	}
	return &page, true, nil
}

func (f *File) pagePath(hash string) string {
	return filepath.Join(f.Dir, hash+".json")
}

func (f *File) downloadImage(ctx context.Context, hash, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	ext := filepath.Ext(imageURL)
	if ext == "" || len(ext) > 5 {
		ext = ".img"
	}
	out, err := os.Create(filepath.Join(f.Dir, hash+ext))
	if err != nil {
		return fmt.Errorf("create image sidecar: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write image sidecar: %w", err)
	}
	return nil
}
