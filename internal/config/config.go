package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/crispinlab/snowflake"
)

// Node id sources understood by the binaries.
const (
	SourceHardware = "hardware"
	SourceRandom   = "random"
	SourceStatic   = "static"
	SourceRedis    = "redis"
)

// Config is the configuration of the snowflake binaries, loaded from a JSON
// file and overlaid with SNOWFLAKE_* environment variables and flags.
type Config struct {
	// NodeID is the node id to generate with; -1 derives one from NodeSource.
	NodeID     int64    `json:"nodeId"`
	Epoch      int64    `json:"epoch"`
	NodeSource string   `json:"nodeSource"`
	RedisAddr  string   `json:"redisAddr"`
	LeaseTTL   Duration `json:"leaseTTL"`
	LedgerPath string   `json:"ledgerPath"`
	LogLevel   string   `json:"logLevel"`
	LogFormat  string   `json:"logFormat"`
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30s") in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		NodeID:     -1,
		Epoch:      snowflake.DefaultEpoch,
		NodeSource: SourceHardware,
		RedisAddr:  "localhost:6379",
		LeaseTTL:   Duration(30 * time.Second),
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads configuration from a JSON file over the defaults. If path is
// empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that the generator does not check itself.
func (c Config) Validate() error {
	if c.NodeID < -1 || c.NodeID > snowflake.MaxNodeID {
		return fmt.Errorf("nodeId %d: %w", c.NodeID, snowflake.ErrInvalidNodeID)
	}
	switch c.NodeSource {
	case SourceHardware, SourceRandom, SourceStatic, SourceRedis:
	default:
		return fmt.Errorf("nodeSource %q: use hardware|random|static|redis", c.NodeSource)
	}
	if c.NodeSource == SourceStatic && c.NodeID < 0 {
		return fmt.Errorf("nodeSource static requires nodeId")
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("leaseTTL must be positive")
	}
	return nil
}
