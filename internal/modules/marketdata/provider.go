// Package marketdata provides historical daily-close data for the optimizers:
// an HTTP provider, a sqlite-backed cache, and a synthetic generator used when
// no real history is available.
package marketdata

import (
	"context"
	"time"
)

// PriceHistory is an observation-major table of daily closes. Rows align to
// Dates (ascending); columns align to Symbols. Only dates where every symbol
// has a close are retained.
type PriceHistory struct {
	Symbols []string
	Dates   []time.Time
	Closes  [][]float64
}

// Empty reports whether the history contains no usable observations.
func (h *PriceHistory) Empty() bool {
	return h == nil || len(h.Dates) == 0
}

// Provider fetches historical daily closes for a set of symbols over
// [start, end). An empty result is valid and must not be reported as an
// error; it means no data exists for the window.
type Provider interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time) (*PriceHistory, error)
}
