// events/events.go - Challenge domain events fanned out to websocket clients and NATS
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeAttemptRecorded = "attempt_recorded"
	TypeWinnersAwarded  = "winners_awarded"
)

type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	ChallengeID uint           `json:"challenge_id"`
	Timestamp   int64          `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// Publisher never blocks the caller on slow consumers
type Publisher interface {
	Publish(evt Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Nop discards every event
func Nop() Publisher { return nopPublisher{} }

// Multi fans an event out to every non-nil publisher
type Multi []Publisher

func (m Multi) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}
	for _, p := range m {
		if p != nil {
			p.Publish(evt)
		}
	}
}
