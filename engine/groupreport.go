package engine

import (
	"net/url"
	"sort"
	"strings"
)

// groupPrefixDepth is how many leading path segments form a group key
// (e.g. "/blog/2024/" groups everything under "/blog/2024").
const groupPrefixDepth = 2

// buildGroupReport clusters visited URLs by path prefix, restoring the
// domain-stats feature pyminiscraper's scraper.py computed via
// analyze_url_groups(..., min_pages_per_sub_path=5) (SPEC_FULL.md
// §3.1). Only prefixes with at least minPages URLs are reported.
func buildGroupReport(visitedURLs []string, minPages int) GroupReport {
	counts := make(map[string]int)
	for _, raw := range visitedURLs {
		prefix := groupPrefix(raw)
		counts[prefix]++
	}

	report := GroupReport{MinPagesPerGroup: minPages}
	for prefix, count := range counts {
		if count >= minPages {
			report.Groups = append(report.Groups, GroupStat{Prefix: prefix, Count: count})
		}
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].Count != report.Groups[j].Count {
			return report.Groups[i].Count > report.Groups[j].Count
		}
		return report.Groups[i].Prefix < report.Groups[j].Prefix
	})
	return report
}

func groupPrefix(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > groupPrefixDepth {
		segments = segments[:groupPrefixDepth]
	}
	prefix := strings.Join(segments, "/")
	return u.Host + "/" + prefix
}
