// Package counter provides the concurrency-safe event counters the packages
// expose for the prom exporter to scrape.
package counter

import "sync/atomic"

// Counter counts events. The zero value is ready to use and safe for
// concurrent increments from HTTP handlers and the sync goroutine.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() { c.n.Add(1) }

// Value returns the current count in the float64 form Prometheus consumes.
func (c *Counter) Value() float64 { return float64(c.n.Load()) }
