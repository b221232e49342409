package engine

import (
	"context"
	"fmt"
)

// robotsFetcher adapts the engine's PageFetcher into the
// hostreg.RobotsFetcher interface, requesting "<host>/robots.txt" for
// each newly discovered host.
type robotsFetcher struct {
	fetcher PageFetcher
}

func (r robotsFetcher) FetchRobots(ctx context.Context, host string) (int, []byte, error) {
	page, err := r.fetcher.Fetch(ctx, fmt.Sprintf("%s/robots.txt", host))
	if err != nil {
		return 0, nil, err
	}
	return page.StatusCode, page.ContentBytes, nil
}
