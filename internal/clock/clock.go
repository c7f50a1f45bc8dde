// Package clock provides an NTP-corrected wall clock.
// The system clock is never changed; the measured offset is applied on read.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
)

// DefaultServer is used when no NTP server is configured.
const DefaultServer = "pool.ntp.org"

// Clock returns wall-clock time corrected by the last NTP measurement.
type Clock struct {
	server string
	query  func(host string) (*ntp.Response, error)
	now    func() time.Time

	offset atomic.Int64 // time.Duration
	synced atomic.Bool
}

// New creates an unsynchronised clock for server.
func New(server string) *Clock {
	if server == "" {
		server = DefaultServer
	}
	return &Clock{
		server: server,
		query:  ntp.Query,
		now:    time.Now,
	}
}

// Sync queries the NTP server and stores the clock offset. On failure the
// previous offset is kept.
func (c *Clock) Sync() error {
	resp, err := c.query(c.server)
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("ntp response from %s: %w", c.server, err)
	}
	c.offset.Store(int64(resp.ClockOffset))
	c.synced.Store(true)
	return nil
}

// Now returns the corrected wall-clock time.
func (c *Clock) Now() time.Time {
	return c.now().Add(c.Offset())
}

// Offset returns the last measured offset.
func (c *Clock) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}

// Synced reports whether at least one Sync succeeded.
func (c *Clock) Synced() bool {
	return c.synced.Load()
}
