package models

import (
	"time"
)

// AngleSample represents a single lid-angle reading from the sensor bridge
type AngleSample struct {
	Angle     float64   `json:"angle"`
	Timestamp time.Time `json:"timestamp"`
}

// SensorMessage is the wire format the sensor bridge pushes over WebSocket.
// Only Angle is required; everything else is tolerated and ignored.
type SensorMessage struct {
	Type      string  `json:"type"`
	Angle     float64 `json:"angle"`
	Timestamp int64   `json:"timestamp"`
}

// DebounceState is a snapshot of the stability debouncer.
// IsStabilizing and a non-nil StableAngle are mutually exclusive within one
// settling cycle: once StableAngle is set, IsStabilizing is false until the
// next raw-angle change restarts the cycle.
type DebounceState struct {
	RawAngle         *float64 `json:"raw_angle"`
	StableAngle      *float64 `json:"stable_angle"`
	IsStabilizing    bool     `json:"is_stabilizing"`
	RemainingSeconds int      `json:"remaining_seconds"`
}

// Stable reports whether this snapshot carries a committed angle.
func (s *DebounceState) Stable() bool {
	return s.StableAngle != nil && !s.IsStabilizing
}
