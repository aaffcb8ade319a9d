package snowflake

import (
	"errors"
	"testing"
)

func noWait(t *testing.T) func(int64) int64 {
	return func(last int64) int64 {
		t.Fatalf("unexpected wait past %d", last)
		return 0
	}
}

func TestSequencerAdvance(t *testing.T) {
	s := newSequencer(3)

	steps := []struct {
		current      int64
		wantOffset   int64
		wantSequence int64
	}{
		{0, 0, 0}, // offset 0 is a valid first reading
		{0, 0, 1},
		{0, 0, 2},
		{5, 5, 0},
		{5, 5, 1},
		{6, 6, 0},
	}
	for i, step := range steps {
		offset, seq, err := s.advance(step.current, noWait(t))
		if err != nil {
			t.Fatalf("step %d: advance(%d) error = %v", i, step.current, err)
		}
		if offset != step.wantOffset || seq != step.wantSequence {
			t.Errorf("step %d: advance(%d) = (%d, %d), want (%d, %d)",
				i, step.current, offset, seq, step.wantOffset, step.wantSequence)
		}
	}
}

func TestSequencerWrap(t *testing.T) {
	s := sequencer{lastOffset: 10, sequence: MaxSequence}

	var waitedFor int64 = -1
	offset, seq, err := s.advance(10, func(last int64) int64 {
		waitedFor = last
		return 11
	})
	if err != nil {
		t.Fatalf("advance() error = %v", err)
	}
	if waitedFor != 10 {
		t.Errorf("waited past %d, want 10", waitedFor)
	}
	if offset != 11 || seq != 0 {
		t.Errorf("advance() = (%d, %d), want (11, 0)", offset, seq)
	}
	if s.lastOffset != 11 {
		t.Errorf("lastOffset = %d, want 11", s.lastOffset)
	}
}

func TestSequencerBackwards(t *testing.T) {
	s := sequencer{nodeID: 12, lastOffset: 100, sequence: 7}

	_, _, clockErr := s.advance(95, noWait(t))
	if clockErr == nil {
		t.Fatal("advance(95) succeeded, want a clock error")
	}
	if !errors.Is(clockErr, ErrClockMovedBackwards) {
		t.Fatalf("advance(95) error = %v, want ErrClockMovedBackwards", clockErr)
	}
	if clockErr.CurrentOffset != 95 || clockErr.LastOffset != 100 || clockErr.NodeID != 12 {
		t.Errorf("ClockError = %+v", clockErr)
	}
	if s.lastOffset != 100 || s.sequence != 7 {
		t.Errorf("state changed to (%d, %d), want (100, 7)", s.lastOffset, s.sequence)
	}

	// Recovers once the clock returns.
	offset, seq, clockErr := s.advance(100, noWait(t))
	if clockErr != nil || offset != 100 || seq != 8 {
		t.Errorf("advance(100) = (%d, %d, %v), want (100, 8, nil)", offset, seq, clockErr)
	}
}

func TestSequencerBeforeEpoch(t *testing.T) {
	s := newSequencer(3)

	_, _, clockErr := s.advance(-3, noWait(t))
	if clockErr == nil {
		t.Fatal("advance(-3) succeeded, want a clock error")
	}
	if clockErr.NodeID != 3 {
		t.Errorf("ClockError.NodeID = %d, want 3", clockErr.NodeID)
	}
	if s.lastOffset != neverGenerated {
		t.Errorf("lastOffset = %d, want %d", s.lastOffset, neverGenerated)
	}
}

func TestWaitPast(t *testing.T) {
	reads := 0
	got := waitPast(7, func() int64 {
		reads++
		if reads < 200 {
			return 7
		}
		return 8
	})
	if got != 8 {
		t.Errorf("waitPast() = %d, want 8", got)
	}
	if reads != 200 {
		t.Errorf("clock read %d times, want 200", reads)
	}
}
