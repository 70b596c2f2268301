// ABOUTME: Tagged push event variants delivered over the websocket channel
// ABOUTME: Only the alert variant is interpreted; unknown types are carried opaque

package api

import (
	"encoding/json"
	"fmt"
)

// Push event types. Only EventTypeAlert is interpreted by the engine;
// other values are reserved for future server use and ignored.
const (
	EventTypeAlert = "alert"
)

// PushEvent is the decoded form of one inbound websocket message.
// Exactly one variant pointer is non-nil for interpreted types.
type PushEvent struct {
	Type  string
	Alert *AlertEvent
}

// AlertEvent is the payload of an alert push message.
type AlertEvent struct {
	AlertID        int64     `json:"alert_id"`
	AlertType      string    `json:"alert_type"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	Timestamp      Timestamp `json:"timestamp"`
}

// DecodePushEvent parses one raw websocket message into a tagged variant.
// Messages with an unknown type decode successfully with only Type set.
// A decode error means the payload is malformed and should be discarded.
func DecodePushEvent(data []byte) (PushEvent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return PushEvent{}, fmt.Errorf("decoding push event envelope: %w", err)
	}
	if head.Type == "" {
		return PushEvent{}, fmt.Errorf("push event missing type")
	}

	switch head.Type {
	case EventTypeAlert:
		var ev AlertEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return PushEvent{}, fmt.Errorf("decoding alert event: %w", err)
		}
		if ev.AlertID == 0 {
			return PushEvent{}, fmt.Errorf("alert event missing alert_id")
		}
		return PushEvent{Type: head.Type, Alert: &ev}, nil
	default:
		return PushEvent{Type: head.Type}, nil
	}
}

// ToAlert converts an alert event into the Alert shape held by the store.
// Server-owned fields not carried on the wire (explanation, confidence)
// stay zero until a poll fills them in.
func (e *AlertEvent) ToAlert() Alert {
	return Alert{
		ID:             e.AlertID,
		AlertType:      e.AlertType,
		Severity:       e.Severity,
		Message:        e.Message,
		Recommendation: e.Recommendation,
		CreatedAt:      e.Timestamp,
	}
}
