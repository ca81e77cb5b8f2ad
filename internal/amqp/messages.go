package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ForecastUpdatedMessage announces that a plan's forecast was replaced.
// Consumers re-read the forecast from storage; the message carries no data.
type ForecastUpdatedMessage struct {
	PlanID    string    `json:"plan_id"`
	Version   int64     `json:"version"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewForecastUpdatedMessage creates a message stamped with the current time.
func NewForecastUpdatedMessage(planID string, version int64, source string) *ForecastUpdatedMessage {
	return &ForecastUpdatedMessage{
		PlanID:    planID,
		Version:   version,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ForecastUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ForecastUpdatedMessageFromJSON decodes a message and rejects ones without a plan.
func ForecastUpdatedMessageFromJSON(data []byte) (*ForecastUpdatedMessage, error) {
	var msg ForecastUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.PlanID == "" {
		return nil, errors.New("message has no plan_id")
	}
	return &msg, nil
}
