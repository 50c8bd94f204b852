package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/models"
)

// Recorder writes pipeline measurements to a time-series store.
type Recorder interface {
	RecordAngle(ctx context.Context, state models.DebounceState)
	RecordSwap(ctx context.Context, result models.SwapExecutionResult)
	Close()
}

// InfluxRecorder stores angle samples and swap outcomes in InfluxDB.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *logrus.Entry
}

// NewInfluxRecorder creates an InfluxDB-backed recorder.
func NewInfluxRecorder(cfg *config.InfluxConfig, logger *logrus.Logger) *InfluxRecorder {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds())).
			SetLogLevel(0),
	)

	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger:   logger.WithField("component", "influxdb"),
	}
}

// Health checks InfluxDB health.
func (r *InfluxRecorder) Health(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}
	return nil
}

// RecordAngle writes one debounce state transition.
func (r *InfluxRecorder) RecordAngle(ctx context.Context, state models.DebounceState) {
	fields := map[string]interface{}{
		"stabilizing": state.IsStabilizing,
		"remaining_s": state.RemainingSeconds,
	}
	if state.RawAngle != nil {
		fields["raw_angle"] = *state.RawAngle
	}
	if state.StableAngle != nil {
		fields["stable_angle"] = *state.StableAngle
	}

	point := influxdb2.NewPoint("lid_angle", nil, fields, time.Now())
	if err := r.writeAPI.WritePoint(ctx, point); err != nil {
		r.logger.WithError(err).Debug("Failed to write angle point")
	}
}

// RecordSwap writes one swap outcome.
func (r *InfluxRecorder) RecordSwap(ctx context.Context, result models.SwapExecutionResult) {
	tags := map[string]string{
		"token":   result.TokenSymbol,
		"success": fmt.Sprintf("%t", result.Success),
	}
	fields := map[string]interface{}{
		"angle":       result.Angle,
		"sell_amount": result.SellAmount,
		"tx_hash":     result.TxHash,
	}
	if result.ErrorKind != "" {
		fields["error_kind"] = string(result.ErrorKind)
	}

	point := influxdb2.NewPoint("swap_result", tags, fields, result.Timestamp)
	if err := r.writeAPI.WritePoint(ctx, point); err != nil {
		r.logger.WithError(err).Debug("Failed to write swap point")
	}
}

// Close closes the underlying client.
func (r *InfluxRecorder) Close() {
	r.client.Close()
}

// NoopRecorder is used when telemetry is disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordAngle(context.Context, models.DebounceState)      {}
func (NoopRecorder) RecordSwap(context.Context, models.SwapExecutionResult) {}
func (NoopRecorder) Close()                                                 {}
