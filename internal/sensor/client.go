package sensor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Client consumes lid-angle readings from the sensor bridge WebSocket.
// A nil sample on the output channel means the sensor disconnected and the
// angle reading reverted to null.
type Client struct {
	cfg    *config.SensorConfig
	logger *logrus.Entry

	samples chan *models.AngleSample

	connected  atomic.Bool
	lastUpdate atomic.Int64 // unix ms of last accepted sample
}

// NewClient creates a sensor bridge client.
func NewClient(cfg *config.SensorConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:     cfg,
		logger:  logger.WithField("component", "sensor"),
		samples: make(chan *models.AngleSample, 256),
	}
}

// Samples returns the channel of angle readings.
func (c *Client) Samples() <-chan *models.AngleSample {
	return c.samples
}

// IsConnected returns the bridge connection status.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// LastUpdate returns the time of the last accepted sample, zero if none.
func (c *Client) LastUpdate() time.Time {
	ms := c.lastUpdate.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Run connects to the bridge and keeps reading until ctx is cancelled,
// reconnecting with capped exponential backoff.
func (c *Client) Run(ctx context.Context) {
	delay := c.cfg.ReconnectDelay
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}

		c.connected.Store(false)
		c.emit(nil)

		attempts++
		if c.cfg.MaxReconnectAttempts > 0 && attempts >= c.cfg.MaxReconnectAttempts {
			c.logger.WithError(err).Error("Sensor bridge unreachable, giving up")
			return
		}

		c.logger.WithError(err).WithField("retry_in", delay.String()).Warn("Sensor bridge disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// readLoop dials the bridge and consumes messages until the connection
// fails. Returns the terminal read/dial error.
func (c *Client) readLoop(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return models.NewPipelineError(models.ErrKindSensor, "dial failed", err)
	}
	defer conn.Close()

	c.connected.Store(true)
	c.logger.WithField("url", c.cfg.URL).Info("Connected to lid-angle bridge")

	// Close the socket when ctx ends so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}

		var msg models.SensorMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return models.NewPipelineError(models.ErrKindSensor, "read failed", err)
		}

		// Angle is the only required field; anything that is not an angle
		// message is tolerated and skipped.
		if msg.Type != "" && msg.Type != "angle" {
			continue
		}

		ts := time.Now()
		if msg.Timestamp > 0 {
			ts = time.UnixMilli(msg.Timestamp)
		}

		c.lastUpdate.Store(ts.UnixMilli())
		c.emit(&models.AngleSample{Angle: msg.Angle, Timestamp: ts})
	}
}

func (c *Client) emit(sample *models.AngleSample) {
	if sample == nil {
		// Disconnect markers must reach the debouncer.
		c.samples <- sample
		return
	}

	select {
	case c.samples <- sample:
	default:
		// Sensor outpaces the pipeline; newest-wins is fine because every
		// sample restarts the debounce window anyway.
		c.logger.Debug("Sample buffer full, dropping reading")
	}
}
