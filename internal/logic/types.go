// Package logic contains the pure alerting rules for every sensor kind.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Kind identifies the physical sensor family.
type Kind string

const (
	KindGas        Kind = "GAS"
	KindDoor       Kind = "DOOR"
	KindVibration  Kind = "VIBRATION"
	KindProximity  Kind = "ULTRASONIC"
	KindCardReader Kind = "NFC"
)

// AlertType is the alert category understood by the remote store.
type AlertType string

const (
	AlertGasLeak          AlertType = "GAS_LEAK"
	AlertDoorLeftOpen     AlertType = "DOOR_LEFT_OPEN"
	AlertDoorUnauthorized AlertType = "DOOR_UNAUTHORIZED"
	AlertVibration        AlertType = "VIBRATION_DETECTED"
	AlertNFCUnauthorized  AlertType = "NFC_UNAUTHORIZED"
	AlertProximity        AlertType = "PROXIMITY"
)

// Field names written under /sensors/{id}/.
const (
	FieldValue    = "value"
	FieldGasValue = "gas_value"
	FieldEnabled  = "isEnabled"
	FieldLocked   = "isLocked"
)

// Alert is a fire-and-forget alert raised by an evaluator.
type Alert struct {
	SensorID  string
	Type      AlertType
	Message   string
	Timestamp time.Time
}

// Update is a single field value to be written to the store.
// Value is a float64 or a bool.
type Update struct {
	Field string
	Value any
}

// Decision is the outcome of evaluating one sample: any number of field
// updates and at most one alert.
type Decision struct {
	Updates []Update
	Alert   *Alert
}

// Empty reports whether the decision carries nothing to push.
func (d Decision) Empty() bool {
	return len(d.Updates) == 0 && d.Alert == nil
}

func boolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
