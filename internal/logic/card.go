package logic

import (
	"fmt"
	"time"
)

// CardConfig configures a CardTracker.
type CardConfig struct {
	SensorID    string
	Suppression time.Duration
}

// CardTracker collapses repeated reads of the same card into one detection.
type CardTracker struct {
	cfg   CardConfig
	last  string // "" when nothing is suppressed
	until time.Time
}

// NewCardTracker creates a tracker with nothing suppressed.
func NewCardTracker(cfg CardConfig) *CardTracker {
	return &CardTracker{cfg: cfg}
}

// Process evaluates one poll. uid is the canonical card ID, or "" when no
// card was presented. An expired suppression is cleared first and pushes a
// presence value of 0. A UID other than the suppressed one is a new
// detection: presence 1 is pushed and NFC_UNAUTHORIZED raised.
func (c *CardTracker) Process(uid string, now time.Time) Decision {
	var d Decision

	if c.last != "" && !now.Before(c.until) {
		c.last = ""
		c.until = time.Time{}
		d.Updates = append(d.Updates, Update{Field: FieldValue, Value: 0.0})
	}

	if uid == "" || uid == c.last {
		return d
	}

	c.last = uid
	c.until = now.Add(c.cfg.Suppression)
	d.Updates = append(d.Updates, Update{Field: FieldValue, Value: 1.0})
	d.Alert = &Alert{
		SensorID:  c.cfg.SensorID,
		Type:      AlertNFCUnauthorized,
		Message:   fmt.Sprintf("NFC Card detected: %s", uid),
		Timestamp: now,
	}
	return d
}

// Suppressed returns the UID currently held in suppression and its expiry.
func (c *CardTracker) Suppressed() (string, time.Time, bool) {
	if c.last == "" {
		return "", time.Time{}, false
	}
	return c.last, c.until, true
}
