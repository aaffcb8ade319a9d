// Package snowflake - layout.go defines the fixed bit layout of an ID and the
// pure codec that packs and unpacks it.
//
// The layout is the wire contract for IDs exchanged between systems and must
// be reproduced bit-exactly by every implementation:
//
//	 63   62                              22 21          12 11           0
//	┌───┬──────────────────────────────────┬──────────────┬──────────────┐
//	│ 0 │   41 bits: time offset (ms)      │ 10 bits:     │ 12 bits:     │
//	│   │   since the generator's epoch    │ node id      │ sequence     │
//	└───┴──────────────────────────────────┴──────────────┴──────────────┘

package snowflake

import (
	"fmt"
	"time"
)

const (
	// TimeOffsetBits is the width of the time offset field (~69 years of ms).
	TimeOffsetBits = 41

	// NodeIDBits is the width of the node id field (1024 nodes).
	NodeIDBits = 10

	// SequenceBits is the width of the per-millisecond sequence (4096 IDs/ms).
	SequenceBits = 12

	// MaxTimeOffset is the largest encodable time offset (2^41 - 1).
	MaxTimeOffset int64 = -1 ^ (-1 << TimeOffsetBits)

	// MaxNodeID is the largest valid node id (1023).
	MaxNodeID int64 = -1 ^ (-1 << NodeIDBits)

	// MaxSequence is the largest sequence value (4095).
	MaxSequence int64 = -1 ^ (-1 << SequenceBits)

	// NodeIDShift positions the node id above the sequence.
	NodeIDShift = SequenceBits

	// TimeOffsetShift positions the time offset above node id and sequence (22).
	TimeOffsetShift = NodeIDBits + SequenceBits

	// NodeIDMask isolates the node id bits in place (0x3FF << 12).
	NodeIDMask int64 = MaxNodeID << NodeIDShift

	// SequenceMask isolates the sequence bits (0xFFF).
	SequenceMask int64 = MaxSequence
)

// Encode packs a time offset, node id and sequence into an ID.
//
// The caller guarantees each value fits its field; Encode does not validate.
// The generator's state machine is the only producer of legal inputs.
//
//	ID = (timeOffset << 22) | (nodeID << 12) | sequence
func Encode(timeOffset, nodeID, sequence int64) ID {
	return ID((timeOffset << TimeOffsetShift) | (nodeID << NodeIDShift) | sequence)
}

// Decode is the inverse of Encode.
//
//	timeOffset = id >> 22
//	nodeID     = (id & NodeIDMask) >> 12
//	sequence   = id & SequenceMask
func Decode(id ID) (timeOffset, nodeID, sequence int64) {
	v := int64(id)
	timeOffset = v >> TimeOffsetShift
	nodeID = (v & NodeIDMask) >> NodeIDShift
	sequence = v & SequenceMask
	return
}

// MinIDAt returns the smallest ID any node could generate during the
// millisecond containing t, for a generator using epoch.
//
// Together with MaxIDAt it turns a time window into a primary key range:
//
//	SELECT ... WHERE id BETWEEN MinIDAt(from, epoch) AND MaxIDAt(to, epoch)
//
// Times before the epoch map to offset 0.
func MinIDAt(t time.Time, epoch int64) ID {
	return Encode(offsetAt(t, epoch), 0, 0)
}

// MaxIDAt returns the largest ID any node could generate during the
// millisecond containing t, for a generator using epoch.
func MaxIDAt(t time.Time, epoch int64) ID {
	return Encode(offsetAt(t, epoch), MaxNodeID, MaxSequence)
}

func offsetAt(t time.Time, epoch int64) int64 {
	offset := t.UnixMilli() - epoch
	if offset < 0 {
		return 0
	}
	if offset > MaxTimeOffset {
		return MaxTimeOffset
	}
	return offset
}

// LayoutCapacity describes what the fixed layout affords for a given epoch.
type LayoutCapacity struct {
	Epoch         time.Time     // Reference point all offsets are measured from
	Overflow      time.Time     // First instant whose offset no longer fits 41 bits
	Lifespan      time.Duration // Overflow - Epoch
	LifespanYears float64
	MaxNodes      int64 // Distinct node ids (1024)
	IDsPerMilli   int64 // Sequence space per node per millisecond (4096)
	IDsPerSecond  int64 // Sustained per-node throughput ceiling
}

// Capacity returns the layout's limits when used with epoch (Unix ms).
func Capacity(epoch int64) LayoutCapacity {
	start := time.UnixMilli(epoch).UTC()
	overflow := time.UnixMilli(epoch + MaxTimeOffset + 1).UTC()
	lifespan := time.Duration(MaxTimeOffset+1) * time.Millisecond
	return LayoutCapacity{
		Epoch:         start,
		Overflow:      overflow,
		Lifespan:      lifespan,
		LifespanYears: lifespan.Hours() / (24 * 365.25),
		MaxNodes:      MaxNodeID + 1,
		IDsPerMilli:   MaxSequence + 1,
		IDsPerSecond:  (MaxSequence + 1) * 1000,
	}
}

// String returns a human-readable capacity summary.
func (c LayoutCapacity) String() string {
	return fmt.Sprintf("Lifespan: %.1f years (until %s), Nodes: %d, Throughput: %d IDs/ms (%d IDs/sec)",
		c.LifespanYears, c.Overflow.Format(time.RFC3339), c.MaxNodes, c.IDsPerMilli, c.IDsPerSecond)
}
