// Package link tracks store link liveness and paces reconnect attempts.
package link

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sweeney/home-sentinel/internal/metrics"
)

// DefaultReconnectInterval is the fixed spacing between connect attempts.
const DefaultReconnectInterval = 30 * time.Second

// Link is the transport whose liveness the guardian tracks.
type Link interface {
	// Connect attempts a connection, blocking at most the transport's
	// connect timeout.
	Connect() error

	// IsConnected reports whether the transport currently has a session.
	IsConnected() bool
}

// Guardian owns the connectivity state. Only the tick goroutine calls Start
// and Check; IsConnected and LastAttempt may be called from anywhere.
type Guardian struct {
	link      Link
	interval  time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics
	onConnect []func(now time.Time)

	connected   atomic.Bool
	lastAttempt atomic.Pointer[time.Time]
}

// New creates a guardian in the Disconnected state.
func New(l Link, interval time.Duration, log *slog.Logger, m *metrics.Metrics) *Guardian {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guardian{
		link:     l,
		interval: interval,
		log:      log,
		metrics:  m,
	}
}

// OnConnect registers fn to run after every transition to connected,
// including the initial one and a late connect that completes after its
// attempt timed out. Hooks run on the tick goroutine.
func (g *Guardian) OnConnect(fn func(now time.Time)) {
	g.onConnect = append(g.onConnect, fn)
}

// Start makes the initial, blocking connect attempt.
func (g *Guardian) Start(now time.Time) bool {
	return g.attempt(now)
}

// Check reconciles the state with the transport. While disconnected it makes
// a reconnect attempt only when the reconnect interval has passed since the
// previous attempt. Returns whether the link is up after the check.
func (g *Guardian) Check(now time.Time) bool {
	if g.link.IsConnected() {
		if !g.connected.Load() {
			g.log.Info("link: up")
			g.up(now)
		}
		return true
	}

	if g.connected.Load() {
		g.log.Warn("link: lost")
		g.setConnected(false)
	}

	if last, ok := g.LastAttempt(); ok && now.Sub(last) < g.interval {
		return false
	}
	return g.attempt(now)
}

func (g *Guardian) attempt(now time.Time) bool {
	g.lastAttempt.Store(&now)

	if err := g.link.Connect(); err != nil {
		g.metrics.ObserveReconnect(false)
		g.log.Warn("link: connect failed", "err", err, "retry_in", g.interval)
		g.setConnected(false)
		return false
	}

	g.metrics.ObserveReconnect(true)
	g.log.Info("link: connected")
	g.up(now)
	return true
}

func (g *Guardian) up(now time.Time) {
	g.setConnected(true)
	for _, fn := range g.onConnect {
		fn(now)
	}
}

func (g *Guardian) setConnected(v bool) {
	g.connected.Store(v)
	g.metrics.SetConnected(v)
}

// IsConnected reports the guardian's view of the link.
func (g *Guardian) IsConnected() bool {
	return g.connected.Load()
}

// LastAttempt returns the time of the most recent connect attempt.
func (g *Guardian) LastAttempt() (time.Time, bool) {
	p := g.lastAttempt.Load()
	if p == nil {
		return time.Time{}, false
	}
	return *p, true
}

// Interval returns the reconnect interval.
func (g *Guardian) Interval() time.Duration {
	return g.interval
}
