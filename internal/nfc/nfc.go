// Package nfc reads contactless card UIDs from a reader bridge.
package nfc

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Source polls a card reader.
type Source interface {
	// Poll returns the canonical UID of a card seen since the last poll.
	// ok is false when no card was presented.
	Poll() (uid string, ok bool, err error)

	// Reinit resets the reader after a failure.
	Reinit() error

	// Close releases the reader.
	Close() error
}

// FormatUID returns the canonical form of a UID: uppercase hex, two digits
// per byte, no separators.
func FormatUID(uid []byte) string {
	return strings.ToUpper(hex.EncodeToString(uid))
}

// ParseUID decodes a UID line from the reader bridge. Accepted forms include
// "04a1b2c3", "04 A1 B2 C3", "04:A1:B2:C3" and an optional "UID:" prefix.
func ParseUID(line string) ([]byte, error) {
	s := strings.TrimSpace(line)
	if i := strings.IndexByte(s, ':'); i >= 0 && strings.EqualFold(strings.TrimSpace(s[:i]), "uid") {
		s = s[i+1:]
	}
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
	if s == "" {
		return nil, errors.New("empty uid")
	}
	uid, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return uid, nil
}
