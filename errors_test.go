package snowflake

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// ClockError Tests
// ============================================================================

func TestClockError_Error(t *testing.T) {
	err := newClockError(1000, 1500, 42)

	msg := err.Error()

	if !strings.Contains(msg, "clock moved backwards") {
		t.Error("Error message should contain 'clock moved backwards'")
	}
	if !strings.Contains(msg, "500ms") {
		t.Errorf("Error message should contain the drift, got: %s", msg)
	}
	if !strings.Contains(msg, "node=42") {
		t.Errorf("Error message should contain the node id, got: %s", msg)
	}
}

func TestClockError_Unwrap(t *testing.T) {
	err := newClockError(1000, 1500, 42)

	if !errors.Is(err, ErrClockMovedBackwards) {
		t.Error("ClockError should unwrap to ErrClockMovedBackwards")
	}
	if errors.Is(err, ErrInvalidConfig) {
		t.Error("ClockError should not match ErrInvalidConfig")
	}
}

func TestClockError_Drift(t *testing.T) {
	err := newClockError(1000, 1250, 0)

	if got := err.Drift(); got != 250*time.Millisecond {
		t.Errorf("Drift() = %v, want 250ms", got)
	}
}

func TestGetClockError(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", newClockError(10, 20, 7))

	clockErr, ok := GetClockError(wrapped)
	if !ok {
		t.Fatal("GetClockError should find the wrapped ClockError")
	}
	if clockErr.NodeID != 7 || clockErr.CurrentOffset != 10 || clockErr.LastOffset != 20 {
		t.Errorf("GetClockError() = %+v", clockErr)
	}
	if !IsClockError(wrapped) {
		t.Error("IsClockError should be true for a wrapped ClockError")
	}

	if _, ok := GetClockError(errors.New("other")); ok {
		t.Error("GetClockError should not match an unrelated error")
	}
	if IsClockError(nil) {
		t.Error("IsClockError(nil) should be false")
	}
}

// ============================================================================
// ConfigError Tests
// ============================================================================

func TestConfigError(t *testing.T) {
	err := newConfigError("Epoch", "-1", "must be >= 0")

	want := "invalid configuration: Epoch=-1 (must be >= 0)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ConfigError should unwrap to ErrInvalidConfig")
	}
	if !IsConfigError(fmt.Errorf("load: %w", err)) {
		t.Error("IsConfigError should see through wrapping")
	}
	if IsConfigError(ErrInvalidConfig) {
		t.Error("the bare sentinel is not a *ConfigError")
	}
}

// ============================================================================
// Sentinels
// ============================================================================

func TestSentinelErrors(t *testing.T) {
	if ErrInvalidNodeID.Error() != "NodeId must be between 0 and 1023" {
		t.Errorf("ErrInvalidNodeID = %q", ErrInvalidNodeID.Error())
	}

	sentinels := []error{ErrInvalidNodeID, ErrClockMovedBackwards, ErrInvalidConfig,
		ErrInvalidEncoding, ErrEmptyEncoding, ErrStringTooLong, ErrIntegerOverflow}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
