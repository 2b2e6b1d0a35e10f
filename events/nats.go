package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	applog "lingoquest/logger"
)

// SubjectPrefix is prepended to the event type to form the NATS subject
const SubjectPrefix = "lingoquest.challenges."

type NATSPublisher struct {
	Conn   *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(natsURL string, logger *zap.Logger) (*NATSPublisher, error) {
	logger = applog.OrNop(logger)
	nc, err := nats.Connect(natsURL, nats.Name("lingoquest-challenges"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{Conn: nc, logger: logger}, nil
}

func (n *NATSPublisher) Close() {
	if n.Conn != nil {
		n.Conn.Close()
	}
}

func (n *NATSPublisher) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		n.logger.Warn("Failed to encode challenge event", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	if err := n.Conn.Publish(SubjectPrefix+evt.Type, data); err != nil {
		n.logger.Warn("Failed to publish challenge event",
			zap.String("type", evt.Type),
			zap.Uint("challenge_id", evt.ChallengeID),
			zap.Error(err))
	}
}
