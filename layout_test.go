package snowflake

import (
	"math"
	"testing"
	"time"
)

func TestLayoutConstants(t *testing.T) {
	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"MaxNodeID", MaxNodeID, 1023},
		{"MaxSequence", MaxSequence, 4095},
		{"MaxTimeOffset", MaxTimeOffset, 1<<41 - 1},
		{"NodeIDMask", NodeIDMask, 0x3FF << 12},
		{"SequenceMask", SequenceMask, 0xFFF},
		{"TimeOffsetShift", TimeOffsetShift, 22},
		{"NodeIDShift", NodeIDShift, 12},
		{"TotalBits", TimeOffsetBits + NodeIDBits + SequenceBits, 63},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name                         string
		timeOffset, nodeID, sequence int64
		want                         ID
	}{
		{"zero", 0, 0, 0, 0},
		{"sequence only", 0, 0, 4095, 0xFFF},
		{"node only", 0, 1023, 0, 0x3FF000},
		{"offset only", 1, 0, 0, 1 << 22},
		{"mixed", 1000, 42, 7, 4194476039},
		{"all ones", MaxTimeOffset, MaxNodeID, MaxSequence, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.timeOffset, tt.nodeID, tt.sequence)
			if got != tt.want {
				t.Fatalf("Encode(%d, %d, %d) = %#x, want %#x", tt.timeOffset, tt.nodeID, tt.sequence, got, tt.want)
			}
			offset, node, seq := Decode(got)
			if offset != tt.timeOffset || node != tt.nodeID || seq != tt.sequence {
				t.Errorf("Decode(%#x) = (%d, %d, %d), want (%d, %d, %d)",
					got, offset, node, seq, tt.timeOffset, tt.nodeID, tt.sequence)
			}
		})
	}
}

func TestEncodeNeverSetsSignBit(t *testing.T) {
	id := Encode(MaxTimeOffset, MaxNodeID, MaxSequence)
	if id < 0 {
		t.Fatalf("Encode() of maximal fields is negative: %d", id)
	}
	if id.Uint64()>>63 != 0 {
		t.Fatalf("sign bit set in %#x", id.Uint64())
	}
}

// TestEncodeOrdering: later offsets dominate node and sequence
func TestEncodeOrdering(t *testing.T) {
	earlier := Encode(10, MaxNodeID, MaxSequence)
	later := Encode(11, 0, 0)
	if earlier.Uint64() >= later.Uint64() {
		t.Errorf("Encode(10, max, max)=%d should be < Encode(11, 0, 0)=%d", earlier, later)
	}
	if Encode(10, 5, 1).Uint64() <= Encode(10, 5, 0).Uint64() {
		t.Error("same offset and node must order by sequence")
	}
}

func TestMinMaxIDAt(t *testing.T) {
	at := time.UnixMilli(testEpoch + 12345)

	lo, hi := MinIDAt(at, testEpoch), MaxIDAt(at, testEpoch)
	if o, n, s := Decode(lo); o != 12345 || n != 0 || s != 0 {
		t.Errorf("Decode(MinIDAt) = (%d, %d, %d), want (12345, 0, 0)", o, n, s)
	}
	if o, n, s := Decode(hi); o != 12345 || n != MaxNodeID || s != MaxSequence {
		t.Errorf("Decode(MaxIDAt) = (%d, %d, %d), want (12345, %d, %d)", o, n, s, MaxNodeID, MaxSequence)
	}

	id := Encode(12345, 600, 17)
	if id < lo || id > hi {
		t.Errorf("%d not within [%d, %d]", id, lo, hi)
	}

	if got := MinIDAt(time.UnixMilli(testEpoch-5000), testEpoch); got != 0 {
		t.Errorf("MinIDAt(before epoch) = %d, want 0", got)
	}
}

func TestCapacity(t *testing.T) {
	c := Capacity(DefaultEpoch)

	if c.MaxNodes != 1024 {
		t.Errorf("MaxNodes = %d, want 1024", c.MaxNodes)
	}
	if c.IDsPerMilli != 4096 {
		t.Errorf("IDsPerMilli = %d, want 4096", c.IDsPerMilli)
	}
	if c.IDsPerSecond != 4096000 {
		t.Errorf("IDsPerSecond = %d, want 4096000", c.IDsPerSecond)
	}
	if c.LifespanYears < 69 || c.LifespanYears > 70 {
		t.Errorf("LifespanYears = %.2f, want ~69.7", c.LifespanYears)
	}
	if c.Epoch.Year() != 2025 || c.Overflow.Year() != 2094 {
		t.Errorf("Epoch/Overflow years = %d/%d, want 2025/2094", c.Epoch.Year(), c.Overflow.Year())
	}
	if c.String() == "" {
		t.Error("String() is empty")
	}
}

func FuzzEncodeDecode(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(1))
	f.Add(int64(4194476039))
	f.Add(int64(math.MaxInt64))

	f.Fuzz(func(t *testing.T, v int64) {
		if v < 0 {
			return
		}
		id := ID(v)
		offset, node, seq := Decode(id)
		if node < 0 || node > MaxNodeID || seq < 0 || seq > MaxSequence || offset < 0 || offset > MaxTimeOffset {
			t.Fatalf("Decode(%d) = (%d, %d, %d) out of field range", v, offset, node, seq)
		}
		if got := Encode(offset, node, seq); got != id {
			t.Fatalf("Encode(Decode(%d)) = %d", v, got)
		}
	})
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Encode(int64(i), 42, int64(i)&MaxSequence)
	}
}

func BenchmarkDecode(b *testing.B) {
	id := Encode(1000, 42, 7)
	for i := 0; i < b.N; i++ {
		_, _, _ = Decode(id)
	}
}
