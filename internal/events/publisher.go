package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/metrics"
)

// TransitionEnvelope is the wire form of one tick's transition set on the
// event bus. Downstream consumers (NOC wallboards, long-term analytics) key
// off the subject, not the payload shape.
type TransitionEnvelope struct {
	EmittedAt   time.Time         `json:"emitted_at"`
	Transitions []data.Transition `json:"transitions"`
}

type NATSPublisher struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

func NewNATSPublisher(conn *nats.Conn, subject string, maxRetries int) *NATSPublisher {
	if subject == "" {
		subject = "fleetwatch.transitions"
	}
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
	}
}

// Publish sends one envelope per tick with bounded retry. Failure here never
// affects the already-applied tick; the caller logs and moves on.
func (p *NATSPublisher) Publish(ctx context.Context, transitions []data.Transition) error {
	payload, err := json.Marshal(TransitionEnvelope{
		EmittedAt:   time.Now().UTC(),
		Transitions: transitions,
	})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, payload)
		if err == nil {
			metrics.TransitionPublishTotal.WithLabelValues("ok").Inc()
			return nil
		}

		select {
		case <-ctx.Done():
			metrics.TransitionPublishTotal.WithLabelValues("error").Inc()
			return ctx.Err()
		case <-time.After(time.Duration(i*100) * time.Millisecond):
		}
	}

	metrics.TransitionPublishTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}
