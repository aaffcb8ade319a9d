// Package snowflake generates 64-bit IDs that are unique across independent
// generator instances without coordination, roughly time-ordered, and
// decodable back into their parts.
//
// # ID Structure (64 bits)
//
//	┌───┬─────────────────────────────────────┬──────────────┬──────────────┐
//	│ 0 │   41 bits: time offset (ms)         │  10 bits:    │  12 bits:    │
//	│   │   ~69 years from epoch (2025)       │  Node ID     │  Sequence    │
//	│   │                                     │  (0-1023)    │  (0-4095)    │
//	└───┴─────────────────────────────────────┴──────────────┴──────────────┘
//
// The sign bit is always zero, so IDs compare the same as int64 or uint64.
//
// # Guarantees
//
//   - IDs from one Generator are strictly increasing.
//   - At most 4096 IDs per millisecond per node id; exhausting the sequence
//     blocks the caller until the next millisecond instead of failing.
//   - A clock that moves backwards fails NextID with ErrClockMovedBackwards and
//     leaves the generator untouched; the retry policy belongs to the caller.
//   - Distinct generators share no state and never contend.
//
// Uniqueness across processes depends on every concurrently running
// generator holding a distinct node id. This package does not coordinate;
// see package redislease for one way to hand out ids.
//
// # Usage
//
//	gen, err := snowflake.NewWithNode(42)
//	if err != nil {
//	    return err
//	}
//	id, err := gen.NextID()
//	parts := gen.Parse(id)
//	fmt.Println(parts.NodeID, parts.Sequence, parts.Time())
package snowflake

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crispinlab/snowflake/internal/logging"
)

// DefaultEpoch is 2025-01-01T00:00:00Z in Unix milliseconds.
const DefaultEpoch int64 = 1735689600000

// Config holds the settings of a Generator. Only NodeID is commonly set;
// DefaultConfig fills in the rest.
type Config struct {
	// NodeID identifies this generator; it must be in [0, MaxNodeID] and unique
	// among generators running at the same time. Ignored when DeriveNodeID is set.
	NodeID int64

	// DeriveNodeID asks the generator to obtain its node id from NodeIDSource.
	DeriveNodeID bool

	// NodeIDSource is consulted when DeriveNodeID is true.
	// Default: HardwareNodeID.
	NodeIDSource NodeIDSource

	// Epoch is the reference point, in Unix milliseconds, that time offsets are
	// measured from. It must not be later than any time the clock will report.
	// Default: DefaultEpoch.
	Epoch int64

	// Clock reports the current time in Unix milliseconds.
	// Default: SystemClock().
	Clock Clock

	// Logger receives construction and clock-regression events. It is never
	// used on the ID generation fast path. Default: discard.
	Logger *slog.Logger
}

// DefaultConfig returns a Config for nodeID with the default epoch and the
// system clock.
func DefaultConfig(nodeID int64) Config {
	return Config{
		NodeID: nodeID,
		Epoch:  DefaultEpoch,
	}
}

// Validate checks the node id and epoch. The node id is checked after
// derivation, so Validate on a config with DeriveNodeID set only checks the
// epoch.
func (c *Config) Validate() error {
	if !c.DeriveNodeID {
		if err := validateNodeID(c.NodeID); err != nil {
			return err
		}
	}
	if c.Epoch < 0 {
		return newConfigError("Epoch", strconv.FormatInt(c.Epoch, 10), "epoch in Unix milliseconds must be >= 0")
	}
	return nil
}

func validateNodeID(nodeID int64) error {
	if nodeID < 0 || nodeID > MaxNodeID {
		return ErrInvalidNodeID
	}
	return nil
}

// Metrics is a snapshot of a generator's counters. All counters only grow.
type Metrics struct {
	Generated        int64 // IDs handed out
	ClockBackward    int64 // NextID calls refused because the clock went back
	SequenceOverflow int64 // Times the sequence ran out and NextID waited for the next millisecond
	WaitTimeUs       int64 // Total microseconds spent waiting after overflow
}

// Generator produces IDs for one node id.
//
// A Generator is safe for concurrent use. The (last offset, sequence) pair is
// guarded by a per-instance mutex held for the clock read, the state update and
// the encoding; Parse touches no shared state and takes no lock.
type Generator struct {
	mu  sync.Mutex
	seq sequencer

	nodeID int64
	epoch  int64
	clock  Clock
	logger *slog.Logger

	generated        atomic.Int64
	clockBackward    atomic.Int64
	sequenceOverflow atomic.Int64
	waitTimeUs       atomic.Int64
}

// New creates a generator whose node id is derived from the host's network
// hardware (HardwareNodeID) and which uses DefaultEpoch.
func New() (*Generator, error) {
	cfg := DefaultConfig(0)
	cfg.DeriveNodeID = true
	return NewWithConfig(cfg)
}

// NewWithNode creates a generator for nodeID using DefaultEpoch.
//
// Returns ErrInvalidNodeID if nodeID is not in [0, 1023].
func NewWithNode(nodeID int64) (*Generator, error) {
	return NewWithConfig(DefaultConfig(nodeID))
}

// NewWithEpoch creates a generator for nodeID measuring time from epoch
// (Unix milliseconds).
func NewWithEpoch(nodeID, epoch int64) (*Generator, error) {
	cfg := DefaultConfig(nodeID)
	cfg.Epoch = epoch
	return NewWithConfig(cfg)
}

// NewWithConfig creates a generator from cfg.
//
// Zero-valued Clock, NodeIDSource and Logger are replaced with their defaults.
// Note that a zero Epoch is a valid epoch (the Unix epoch); use DefaultConfig
// to start from DefaultEpoch.
func NewWithConfig(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	nodeID := cfg.NodeID
	if cfg.DeriveNodeID {
		source := cfg.NodeIDSource
		if source == nil {
			source = HardwareNodeID
		}
		nodeID = source()
		if err := validateNodeID(nodeID); err != nil {
			return nil, fmt.Errorf("derived node id %d: %w", nodeID, err)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	g := &Generator{
		seq:    newSequencer(nodeID),
		nodeID: nodeID,
		epoch:  cfg.Epoch,
		clock:  clock,
		logger: logger.With("node_id", nodeID),
	}
	g.logger.Info("snowflake generator ready",
		"epoch", time.UnixMilli(cfg.Epoch).UTC().Format(time.RFC3339),
		"derived", cfg.DeriveNodeID)
	return g, nil
}

// NextID returns the next ID.
//
// It blocks for up to slightly more than a millisecond when this generator has
// already handed out 4096 IDs in the current millisecond. It fails only with a
// *ClockError (errors.Is(err, ErrClockMovedBackwards)) when the clock reports
// a time before the last ID's time; the caller decides whether to retry.
func (g *Generator) NextID() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := g.nextLocked()
	if err != nil {
		return 0, err
	}
	g.generated.Add(1)
	return id, nil
}

// NextIDs returns n consecutive IDs, taking the lock once for the whole batch.
//
// If the clock moves backwards part way through, the IDs produced so far are
// returned along with the error. n <= 0 yields an empty slice.
func (g *Generator) NextIDs(n int) ([]ID, error) {
	if n <= 0 {
		return []ID{}, nil
	}
	ids := make([]ID, 0, n)

	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < n; i++ {
		id, err := g.nextLocked()
		if err != nil {
			g.generated.Add(int64(len(ids)))
			return ids, err
		}
		ids = append(ids, id)
	}
	g.generated.Add(int64(n))
	return ids, nil
}

// nextLocked runs one read-advance-encode step. g.mu must be held.
func (g *Generator) nextLocked() (ID, error) {
	offset, sequence, clockErr := g.seq.advance(g.currentOffset(), g.waitNext)
	if clockErr != nil {
		g.clockBackward.Add(1)
		g.logger.Warn("clock moved backwards",
			"current_offset", clockErr.CurrentOffset,
			"last_offset", clockErr.LastOffset,
			"drift", clockErr.Drift())
		return 0, clockErr
	}
	return Encode(offset, g.nodeID, sequence), nil
}

func (g *Generator) currentOffset() int64 {
	return g.clock() - g.epoch
}

// waitNext is the sequencer's exhaustion hook.
func (g *Generator) waitNext(last int64) int64 {
	g.sequenceOverflow.Add(1)
	start := time.Now()
	offset := waitPast(last, g.currentOffset)
	g.waitTimeUs.Add(time.Since(start).Microseconds())
	return offset
}

// MustNextID is like NextID but panics on error.
func (g *Generator) MustNextID() ID {
	id, err := g.NextID()
	if err != nil {
		panic(err)
	}
	return id
}

// Parse decodes id using this generator's epoch. It does not check that id
// was produced by this generator.
func (g *Generator) Parse(id ID) Components {
	return Decompose(id, g.epoch)
}

// NodeID returns the generator's node id.
func (g *Generator) NodeID() int64 {
	return g.nodeID
}

// Epoch returns the generator's epoch in Unix milliseconds.
func (g *Generator) Epoch() int64 {
	return g.epoch
}

// GetMetrics returns a snapshot of the generator's counters.
func (g *Generator) GetMetrics() Metrics {
	return Metrics{
		Generated:        g.generated.Load(),
		ClockBackward:    g.clockBackward.Load(),
		SequenceOverflow: g.sequenceOverflow.Load(),
		WaitTimeUs:       g.waitTimeUs.Load(),
	}
}

// String describes the generator's layout and settings.
func (g *Generator) String() string {
	return fmt.Sprintf("Snowflake Settings [EPOCH_BITS=%d, NODE_ID_BITS=%d, SEQUENCE_BITS=%d, CUSTOM_EPOCH=%d, NodeId=%d]",
		TimeOffsetBits, NodeIDBits, SequenceBits, g.epoch, g.nodeID)
}

// Package-level generator, built on first use with New().
var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
	defaultGeneratorErr  error
)

func initDefaultGenerator() {
	defaultGenerator, defaultGeneratorErr = New()
}

// Default returns the package-level generator, creating it on first use with
// a hardware-derived node id. Multi-node deployments should create their own
// Generator with an explicitly assigned node id instead.
func Default() (*Generator, error) {
	defaultGeneratorOnce.Do(initDefaultGenerator)
	return defaultGenerator, defaultGeneratorErr
}

// NextID returns an ID from the package-level generator.
func NextID() (ID, error) {
	gen, err := Default()
	if err != nil {
		return 0, err
	}
	return gen.NextID()
}

// MustNextID is like NextID but panics on error.
func MustNextID() ID {
	id, err := NextID()
	if err != nil {
		panic(err)
	}
	return id
}
