package snowflake

import (
	"runtime"
	"time"
)

// neverGenerated is the lastOffset of a sequencer that has not produced an ID.
const neverGenerated int64 = -1

const (
	// waitSpinReads is how many clock reads the exhaustion wait makes with only
	// a scheduler yield in between before it starts sleeping.
	waitSpinReads = 64

	// waitSleep is the pause between clock reads once the spin budget is spent.
	waitSleep = 50 * time.Microsecond
)

// sequencer is the per-generator state machine deciding the (offset, sequence)
// pair of the next ID. It is not safe for concurrent use; the owning Generator
// serializes access with its mutex.
type sequencer struct {
	nodeID     int64 // reported in clock errors
	lastOffset int64 // offset of the last ID, or neverGenerated
	sequence   int64 // sequence of the last ID, in [0, MaxSequence]
}

func newSequencer(nodeID int64) sequencer {
	return sequencer{nodeID: nodeID, lastOffset: neverGenerated}
}

// advance consumes one slot of sequence space for the clock reading current
// and returns the offset and sequence to encode.
//
// A reading behind the last offset, or before the epoch, fails without
// touching the state. When the 4096 slots of the current millisecond are used
// up, advance blocks in waitNext until the clock moves past lastOffset and
// uses that later offset with sequence 0.
func (s *sequencer) advance(current int64, waitNext func(last int64) int64) (offset, sequence int64, clockErr *ClockError) {
	if current < s.lastOffset || current < 0 {
		last := s.lastOffset
		if last < 0 {
			last = 0
		}
		return 0, 0, newClockError(current, last, s.nodeID)
	}

	offset = current
	if current == s.lastOffset {
		s.sequence = (s.sequence + 1) & MaxSequence
		if s.sequence == 0 {
			offset = waitNext(s.lastOffset)
		}
	} else {
		s.sequence = 0
	}

	s.lastOffset = offset
	return offset, s.sequence, nil
}

// waitPast blocks until tick reports an offset strictly greater than last and
// returns it. It yields to the scheduler between reads and falls back to short
// sleeps if the clock is slow to move.
func waitPast(last int64, tick func() int64) int64 {
	for i := 0; ; i++ {
		now := tick()
		if now > last {
			return now
		}
		if i < waitSpinReads {
			runtime.Gosched()
		} else {
			time.Sleep(waitSleep)
		}
	}
}
