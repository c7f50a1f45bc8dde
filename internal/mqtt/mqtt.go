// Package mqtt is the remote store client. The store is modelled as a tree of
// retained topics under a per-node prefix: each sensor field is its own topic
// and alerts are one-shot records.
package mqtt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/home-sentinel/internal/logic"
)

// Store paths, relative to the topic prefix.
const (
	SensorsRoot = "/sensors"
	AlertsRoot  = "/alerts"
	StatusPath  = "/node/status"
)

// commandSuffix terminates every command topic.
const commandSuffix = "/set"

// Default timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultPublishTimeout = 3 * time.Second
)

// ErrNotConnected is returned by publish calls while the session is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// SensorPath returns the path of one field of a sensor.
func SensorPath(sensorID, field string) string {
	return SensorsRoot + "/" + sensorID + "/" + field
}

// AlertPath returns the path of an alert record.
func AlertPath(id string) string {
	return AlertsRoot + "/" + id
}

// Topic joins the prefix and a store path.
func Topic(prefix, path string) string {
	return strings.TrimSuffix(prefix, "/") + path
}

// CommandFilter is the subscription filter for sensor commands under prefix.
func CommandFilter(prefix string) string {
	return Topic(prefix, SensorsRoot+"/+/+"+commandSuffix)
}

// Command is a remote request to change a sensor flag.
type Command struct {
	SensorID string
	Field    string // "isEnabled" or "isLocked"
	Value    bool
}

// ParseCommand decodes a message received on a command topic.
func ParseCommand(prefix, topic string, payload []byte) (Command, error) {
	root := Topic(prefix, SensorsRoot) + "/"
	if !strings.HasPrefix(topic, root) || !strings.HasSuffix(topic, commandSuffix) {
		return Command{}, fmt.Errorf("not a command topic: %q", topic)
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(topic, root), commandSuffix)
	id, field, ok := strings.Cut(rest, "/")
	if !ok || id == "" || strings.Contains(field, "/") {
		return Command{}, fmt.Errorf("malformed command topic: %q", topic)
	}
	if field != logic.FieldEnabled && field != logic.FieldLocked {
		return Command{}, fmt.Errorf("unknown command field %q", field)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return Command{}, fmt.Errorf("command %s/%s: %w", id, field, err)
	}
	return Command{SensorID: id, Field: field, Value: v}, nil
}

// Options configures a Client.
type Options struct {
	Broker         string
	ClientID       string
	TopicPrefix    string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// WillPayload is published retained on StatusPath by the broker if the
	// session drops without a clean disconnect.
	WillPayload []byte
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	if o.WillPayload == nil {
		o.WillPayload = []byte(`{"status":{"event":"OFFLINE"}}`)
	}
}
