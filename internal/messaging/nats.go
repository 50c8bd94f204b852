package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Pipeline event subjects.
const (
	SubjectAngle = "harmonad.angle"
	SubjectSwap  = "harmonad.swap"
)

// Bus publishes pipeline events for UI collaborators and dashboards.
type Bus interface {
	PublishAngle(state models.DebounceState)
	PublishSwap(result models.SwapExecutionResult)
	Close() error
}

// NATSBus is the NATS-backed Bus.
type NATSBus struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewNATSBus connects to NATS with reconnect handling.
func NewNATSBus(cfg *config.NATSConfig, logger *logrus.Logger) (*NATSBus, error) {
	entry := logger.WithField("component", "nats")

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSBus{conn: conn, logger: entry}, nil
}

// PublishAngle publishes a debounce state transition.
func (b *NATSBus) PublishAngle(state models.DebounceState) {
	b.publish(SubjectAngle, state)
}

// PublishSwap publishes a swap outcome.
func (b *NATSBus) PublishSwap(result models.SwapExecutionResult) {
	b.publish(SubjectSwap, result)
}

func (b *NATSBus) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.WithError(err).Error("Failed to marshal event")
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// Close drains and closes the connection.
func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}

// NoopBus is the Bus used when the event bus feature is disabled.
type NoopBus struct{}

func (NoopBus) PublishAngle(models.DebounceState)      {}
func (NoopBus) PublishSwap(models.SwapExecutionResult) {}
func (NoopBus) Close() error                           { return nil }
