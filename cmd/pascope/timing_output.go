package main

import (
	"fmt"
	"io"

	"pascope/internal/driver"
)

func printTimings(out io.Writer, res *driver.Result) {
	if res == nil || res.Timer == nil {
		return
	}
	fmt.Fprint(out, res.Timer.Summary())
}

func printCacheStats(out io.Writer, res *driver.Result) {
	if res.CacheHits+res.CacheMisses == 0 {
		return
	}
	fmt.Fprintf(out, "cache: %d hit(s), %d miss(es)\n", res.CacheHits, res.CacheMisses)
}
