// Package extract implements the engine's default PageExtractor,
// adapted from the teacher's crawler.ExtractLinks to additionally pull
// the title, description, meta-robots directives, sitemap/feed link
// hints, and image references a FetchedPage needs (spec.md §3
// "FetchedPage", §4.1 "Extraction").
package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Page is everything the default extractor pulls out of one HTML
// document. The engine canonicalizes and classifies Links,
// SitemapLinks, and FeedLinks into work items; extract only resolves
// them to absolute URL strings.
type Page struct {
	Title        string
	Description  string
	MetaRobots   []string
	Links        []string
	SitemapLinks []string
	FeedLinks    []string
	Images       []string
}

// HasNoIndex and HasNoFollow are convenience checks spec.md §4.1
// references when deciding whether to enqueue a page's own outlinks
// ("noindex" still allows following links; "nofollow" does not).
func (p Page) HasNoFollow() bool { return containsToken(p.MetaRobots, "nofollow") }
func (p Page) HasNoIndex() bool  { return containsToken(p.MetaRobots, "noindex") }

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// Extract parses an HTML document and resolves every reference it
// contains against baseURL. Parse errors on individual tags are
// tolerated (matching the teacher's best-effort approach); only a
// reader error or a total parse failure is returned.
func Extract(body io.Reader, baseURL *url.URL) (Page, error) {
	tokenizer := html.NewTokenizer(body)
	var page Page
	seenLinks := make(map[string]bool)
	seenImages := make(map[string]bool)

	var inTitle bool
	var titleBuilder strings.Builder

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return page, fmt.Errorf("parse html: %w", err)
			}
			page.Title = strings.TrimSpace(titleBuilder.String())
			return page, nil

		case html.TextToken:
			if inTitle {
				titleBuilder.WriteString(string(tokenizer.Text()))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				if tokenType == html.StartTagToken {
					inTitle = true
				}
			case "a":
				if href, ok := attr(token, "href"); ok {
					if resolved := resolveHTTP(baseURL, href); resolved != "" && !seenLinks[resolved] {
						seenLinks[resolved] = true
						page.Links = append(page.Links, resolved)
					}
				}
			case "img":
				if src, ok := attr(token, "src"); ok {
					if resolved := resolveHTTP(baseURL, src); resolved != "" && !seenImages[resolved] {
						seenImages[resolved] = true
						page.Images = append(page.Images, resolved)
					}
				}
			case "meta":
				name, _ := attr(token, "name")
				content, _ := attr(token, "content")
				switch strings.ToLower(name) {
				case "description":
					if page.Description == "" {
						page.Description = content
					}
				case "robots":
					for _, tok := range strings.Split(content, ",") {
						tok = strings.ToLower(strings.TrimSpace(tok))
						if tok != "" {
							page.MetaRobots = append(page.MetaRobots, tok)
						}
					}
				}
			case "link":
				rel, _ := attr(token, "rel")
				href, hasHref := attr(token, "href")
				linkType, _ := attr(token, "type")
				if !hasHref {
					break
				}
				resolved := resolveHTTP(baseURL, href)
				if resolved == "" {
					break
				}
				rel = strings.ToLower(rel)
				linkType = strings.ToLower(linkType)
				switch {
				case rel == "sitemap":
					page.SitemapLinks = append(page.SitemapLinks, resolved)
				case rel == "alternate" && (strings.Contains(linkType, "rss") || strings.Contains(linkType, "atom") || strings.Contains(linkType, "json")):
					page.FeedLinks = append(page.FeedLinks, resolved)
				}
			}

		case html.EndTagToken:
			if tokenizer.Token().Data == "title" {
				inTitle = false
			}
		}
	}
}

func attr(token html.Token, key string) (string, bool) {
	for _, a := range token.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// resolveHTTP resolves ref against base and returns its absolute form,
// or "" if the result is not an http(s) URL.
func resolveHTTP(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(refURL)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
