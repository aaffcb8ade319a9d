// Package snowflake - errors.go provides the sentinel errors and the typed
// errors that carry context for debugging.

package snowflake

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Use errors.Is to test for them; the typed errors below
// unwrap to these.
var (
	// ErrInvalidNodeID is returned at construction when the node id is not in
	// [0, MaxNodeID]. Not retryable: supply a corrected value.
	ErrInvalidNodeID = fmt.Errorf("NodeId must be between 0 and %d", MaxNodeID)

	// ErrClockMovedBackwards is returned by NextID when the clock reports a time
	// earlier than the last one used. The generator's state is left unchanged,
	// so the caller may retry once the clock has caught up.
	ErrClockMovedBackwards = errors.New("clock moved backwards")

	// ErrInvalidConfig is returned when Config validation fails for a reason
	// other than the node id.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ClockError carries the offsets involved when the clock moved backwards.
//
//	if clockErr, ok := snowflake.GetClockError(err); ok {
//	    logger.Warn("clock drift", "drift", clockErr.Drift(), "node", clockErr.NodeID)
//	}
type ClockError struct {
	// CurrentOffset is the offset (ms since epoch) just read from the clock.
	CurrentOffset int64

	// LastOffset is the offset of the most recently generated ID.
	LastOffset int64

	// NodeID identifies the generator that observed the regression.
	NodeID int64
}

// Error implements the error interface.
func (e *ClockError) Error() string {
	return fmt.Sprintf("clock moved backwards: refusing to generate id for %dms (current=%d last=%d node=%d)",
		e.LastOffset-e.CurrentOffset, e.CurrentOffset, e.LastOffset, e.NodeID)
}

// Unwrap returns ErrClockMovedBackwards for errors.Is compatibility.
func (e *ClockError) Unwrap() error {
	return ErrClockMovedBackwards
}

// Drift returns how far the clock went back.
func (e *ClockError) Drift() time.Duration {
	return time.Duration(e.LastOffset-e.CurrentOffset) * time.Millisecond
}

// ConfigError describes a configuration field that failed validation.
type ConfigError struct {
	Field      string
	Value      string
	Constraint string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%s (%s)", e.Field, e.Value, e.Constraint)
}

// Unwrap returns ErrInvalidConfig for errors.Is compatibility.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// IsClockError reports whether err is or wraps a *ClockError.
func IsClockError(err error) bool {
	var clockErr *ClockError
	return errors.As(err, &clockErr)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// GetClockError extracts the *ClockError from an error chain.
func GetClockError(err error) (*ClockError, bool) {
	var clockErr *ClockError
	if errors.As(err, &clockErr) {
		return clockErr, true
	}
	return nil, false
}

func newClockError(current, last, nodeID int64) *ClockError {
	return &ClockError{
		CurrentOffset: current,
		LastOffset:    last,
		NodeID:        nodeID,
	}
}

func newConfigError(field, value, constraint string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Constraint: constraint}
}
