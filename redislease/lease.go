// Package redislease hands out snowflake node ids from a shared Redis so that
// processes started without an assigned id still get distinct ones.
//
// Each node id is a key "<prefix>:<id>" holding the owner's random token with
// a TTL. Acquire claims the lowest free id with SET NX PX; the holder keeps it
// alive with Renew (or Run) and gives it back with Release. Renew and Release
// check the stored token in a Lua script, so a process whose lease expired and
// was claimed by someone else can never extend or delete the new owner's key.
//
//	lease := redislease.New(redis.NewClient(&redis.Options{Addr: addr}), redislease.Options{})
//	nodeID, err := lease.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	go lease.Run(ctx)
//	gen, err := snowflake.NewWithNode(nodeID)
//
// A lease bounds, but does not remove, the window in which two processes can
// share an id: a holder that stalls for longer than the TTL loses the key
// while still generating. Keep RenewInterval well below TTL.
package redislease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/internal/logging"
)

var (
	// ErrNoNodeAvailable is returned by Acquire when every id is held.
	ErrNoNodeAvailable = errors.New("redislease: no node id available")

	// ErrLeaseLost is returned when the key no longer holds this lease's token,
	// because it expired or was taken over.
	ErrLeaseLost = errors.New("redislease: lease lost")

	// ErrNotAcquired is returned by Renew and Release before Acquire succeeds.
	ErrNotAcquired = errors.New("redislease: no lease held")
)

const (
	DefaultPrefix = "snowflake:node"
	DefaultTTL    = 30 * time.Second
)

const (
	renewScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

	releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`
)

// Client is the subset of the go-redis API a Lease needs. *redis.Client,
// *redis.ClusterClient and *redis.Ring satisfy it.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Options configures a Lease. Zero values select the defaults.
type Options struct {
	// Prefix of the per-id keys. Default: DefaultPrefix.
	Prefix string

	// TTL of a claimed key. Default: DefaultTTL.
	TTL time.Duration

	// RenewInterval is how often Run renews. Default: TTL / 3.
	RenewInterval time.Duration

	// Logger receives acquire, renew failure and release events. Default: discard.
	Logger *slog.Logger
}

// Lease claims and holds one node id. It is safe for concurrent use.
type Lease struct {
	client Client
	opts   Options
	owner  string

	mu     sync.Mutex
	nodeID int64 // -1 when not held
}

// New returns a Lease that has not yet acquired an id.
func New(client Client, opts Options) *Lease {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.RenewInterval <= 0 {
		opts.RenewInterval = opts.TTL / 3
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	owner := uuid.NewString()
	opts.Logger = opts.Logger.With("owner", owner)
	return &Lease{client: client, opts: opts, owner: owner, nodeID: -1}
}

// Owner returns the random token stored under the claimed key.
func (l *Lease) Owner() string { return l.owner }

// NodeID returns the held id, if any.
func (l *Lease) NodeID() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nodeID, l.nodeID >= 0
}

// Source adapts the lease to a snowflake.NodeIDSource. Before Acquire succeeds
// the source yields -1, which generator construction rejects.
func (l *Lease) Source() snowflake.NodeIDSource {
	return func() int64 {
		id, _ := l.NodeID()
		return id
	}
}

func (l *Lease) key(nodeID int64) string {
	return l.opts.Prefix + ":" + strconv.FormatInt(nodeID, 10)
}

// Acquire claims the lowest free node id. If this lease already holds one it
// is returned unchanged.
func (l *Lease) Acquire(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nodeID >= 0 {
		return l.nodeID, nil
	}

	for id := int64(0); id <= snowflake.MaxNodeID; id++ {
		ok, err := l.client.SetNX(ctx, l.key(id), l.owner, l.opts.TTL).Result()
		if err != nil {
			return -1, fmt.Errorf("claim %s: %w", l.key(id), err)
		}
		if ok {
			l.nodeID = id
			l.opts.Logger.Info("node id leased", "node_id", id, "ttl", l.opts.TTL)
			return id, nil
		}
	}
	return -1, ErrNoNodeAvailable
}

// Renew extends the held key's TTL. It returns ErrLeaseLost, and drops the
// id, if the key no longer carries this lease's token.
func (l *Lease) Renew(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nodeID < 0 {
		return ErrNotAcquired
	}
	n, err := l.client.Eval(ctx, renewScript, []string{l.key(l.nodeID)}, l.owner, l.opts.TTL.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("renew %s: %w", l.key(l.nodeID), err)
	}
	if n == 0 {
		l.opts.Logger.Error("node id lease lost", "node_id", l.nodeID)
		l.nodeID = -1
		return ErrLeaseLost
	}
	return nil
}

// Release deletes the held key and forgets the id. The id is forgotten even
// when the key had already been lost, which is reported as ErrLeaseLost.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nodeID < 0 {
		return ErrNotAcquired
	}
	id := l.nodeID
	n, err := l.client.Eval(ctx, releaseScript, []string{l.key(id)}, l.owner).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key(id), err)
	}
	l.nodeID = -1
	if n == 0 {
		return ErrLeaseLost
	}
	l.opts.Logger.Info("node id released", "node_id", id)
	return nil
}

// Run renews the lease every RenewInterval until ctx is done, then releases
// it. It returns ErrLeaseLost as soon as a renewal finds the key taken or
// expired; transient renewal errors are logged and retried on the next tick.
func (l *Lease) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := l.Renew(ctx)
			if errors.Is(err, ErrLeaseLost) || errors.Is(err, ErrNotAcquired) {
				return err
			}
			if err != nil && ctx.Err() == nil {
				l.opts.Logger.Warn("node id renewal failed", "error", err)
			}
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, ErrNotAcquired) {
				return err
			}
			return nil
		}
	}
}

// ActiveNodes lists the node ids currently claimed under prefix by any
// process, in ascending order.
func ActiveNodes(ctx context.Context, client Client, prefix string) ([]int64, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	var (
		claimed [snowflake.MaxNodeID + 1]bool
		cursor  uint64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+":*", 256).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s:*: %w", prefix, err)
		}
		for _, key := range keys {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix+":"), 10, 64)
			if err != nil || id < 0 || id > snowflake.MaxNodeID {
				continue
			}
			claimed[id] = true
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	var ids []int64
	for id, ok := range claimed {
		if ok {
			ids = append(ids, int64(id))
		}
	}
	return ids, nil
}
