package httputil

import (
	"net/http"
	"time"
)

// NewClient builds the outbound *http.Client an x402 payer uses to reach
// merchant resource servers. A payer may settle against many distinct
// merchants in a single process, each visited only occasionally, so the
// pool favors breadth over per-host reuse.
//
// Transport settings:
//   - MaxIdleConns: 100 (total idle connections across all merchant hosts)
//   - MaxIdleConnsPerHost: 4 (a given merchant is rarely hit repeatedly)
//   - IdleConnTimeout: 90s (time to keep idle connections alive)
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
