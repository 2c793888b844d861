// Package outputs implements the Output Drivers (spec §4.4): one
// ZoneOutput implementation per renderer transport. Each driver is
// grounded on a specific teacher or pack example file; see DESIGN.md for
// the per-driver ledger.
package outputs

import (
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds a single control-plane HTTP call made by an
// output driver (discovery and playback-control requests alike), matching
// spec §5's "every external call carries a timeout" rule.
const defaultHTTPTimeout = 1500 * time.Millisecond

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}
