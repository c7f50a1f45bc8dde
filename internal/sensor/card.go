package sensor

import (
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
	"github.com/sweeney/home-sentinel/internal/nfc"
)

// CardConfig configures a card reader machine.
type CardConfig struct {
	Common
	Suppression    time.Duration
	ReinitInterval time.Duration
}

// CardReader polls a card source and reports each new card.
type CardReader struct {
	base
	src     nfc.Source
	tracker *logic.CardTracker

	reinitInterval time.Duration
	failing        bool
	lastReinit     time.Time
}

// NewCardReader creates a card reader machine polling src.
func NewCardReader(cfg CardConfig, src nfc.Source, deps Deps) *CardReader {
	if cfg.ReinitInterval <= 0 {
		cfg.ReinitInterval = DefaultReinitInterval
	}
	return &CardReader{
		base: deps.base(cfg.Common, logic.KindCardReader),
		src:  src,
		tracker: logic.NewCardTracker(logic.CardConfig{
			SensorID:    cfg.ID,
			Suppression: cfg.Suppression,
		}),
		reinitInterval: cfg.ReinitInterval,
	}
}

// Begin publishes isEnabled. A reader configured disabled is closed.
func (c *CardReader) Begin(now time.Time) error {
	c.beginFlags()
	if !c.enabled {
		return c.src.Close()
	}
	return nil
}

// Update polls the reader when due. A failed poll reinitialises the reader,
// at most once per reinit interval. Only the first failure of a run is
// logged.
func (c *CardReader) Update(now time.Time) {
	if !c.enabled || !c.due(now) {
		return
	}
	c.markSampled(now)

	uid, ok, err := c.src.Poll()
	if err != nil {
		if c.failing {
			c.metrics.ObserveReadError(c.id)
		} else {
			c.failing = true
			c.readFailed(err)
		}
		c.reinit(now)
		return
	}
	if c.failing {
		c.failing = false
		c.log.Info("nfc: reader recovered")
	}
	if !ok {
		uid = ""
	}

	dec := c.tracker.Process(uid, now)
	for _, u := range dec.Updates {
		c.record(u.Value.(float64))
	}
	c.emit(dec)
}

func (c *CardReader) reinit(now time.Time) {
	if !c.lastReinit.IsZero() && now.Sub(c.lastReinit) < c.reinitInterval {
		return
	}
	c.lastReinit = now
	if err := c.src.Reinit(); err != nil {
		c.log.Warn("nfc: reinit failed", "err", err, "retry_in", c.reinitInterval)
	}
}

// SetEnabled closes the reader when disabling and reopens it when enabling.
func (c *CardReader) SetEnabled(enabled bool, now time.Time) {
	if enabled != c.enabled {
		var err error
		if enabled {
			c.failing = false
			c.lastReinit = now
			err = c.src.Reinit()
		} else {
			err = c.src.Close()
		}
		if err != nil {
			c.log.Warn("nfc: reader state change failed", "enabled", enabled, "err", err)
		}
	}
	c.setEnabled(enabled)
}

// Snapshot returns the current view.
func (c *CardReader) Snapshot() Snapshot {
	s := c.snapshot()
	if uid, _, ok := c.tracker.Suppressed(); ok {
		s.CardUID = uid
	}
	return s
}

// Close releases the reader.
func (c *CardReader) Close() error {
	return c.src.Close()
}
