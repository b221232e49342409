package engine

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/markhamlong/crawlctl/internal/extract"
)

// defaultExtractor adapts internal/extract.Extract (which works over an
// io.Reader and a *url.URL) to the engine's byte-slice-and-string
// PageExtractor interface.
type defaultExtractor struct{}

// NewDefaultExtractor returns the engine's default PageExtractor,
// backed by internal/extract's golang.org/x/net/html tokenizer.
func NewDefaultExtractor() PageExtractor { return defaultExtractor{} }

func (defaultExtractor) Extract(contentBytes []byte, baseURL string) (ExtractedPage, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ExtractedPage{}, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return extract.Extract(bytes.NewReader(contentBytes), base)
}
