// Command crawlctl crawls a set of seed URLs breadth-first, honoring
// robots.txt and the configured domain/path/depth limits, and writes the
// fetched pages to a sink.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
