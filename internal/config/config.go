package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"snapback/internal/httpclient"
	"snapback/internal/logging"
	"snapback/internal/monitoring"
	"snapback/internal/sqlitedb"
	"snapback/internal/statemachine"
	"snapback/internal/syncqueue"
	"snapback/internal/writelock"
)

// Orchestrators that can drive reconciliation.
const (
	OrchestratorStateMachine    = "state-machine"
	OrchestratorStateMonitoring = "state-monitoring"
)

// EnvPrefix prefixes environment overrides, e.g. SNAPBACK_SNAPBACK_CREATOR_NODE_ENDPOINT.
const EnvPrefix = "SNAPBACK"

// SnapbackConfig identifies the node and its collaborators.
type SnapbackConfig struct {
	Endpoint           string   `mapstructure:"creator-node-endpoint"`
	DiscoveryEndpoints []string `mapstructure:"discovery-endpoints"`
	HTTPListen         string   `mapstructure:"http-listen"`
	GRPCListen         string   `mapstructure:"grpc-listen"`
	Orchestrator       string   `mapstructure:"orchestrator"`
	SyncConcurrency    int      `mapstructure:"secondary-sync-concurrency"`
}

// WriteLockConfig configures the wallet write lock.
type WriteLockConfig struct {
	DefaultTTL time.Duration `mapstructure:"default-ttl"`
}

// StorageConfig locates the sqlite database holding wallet records and
// write locks. An empty path uses plain in-process maps instead of sqlite.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// Config holds the node configuration.
type Config struct {
	Snapback        SnapbackConfig      `mapstructure:"snapback"`
	StateMachine    statemachine.Config `mapstructure:"state-machine"`
	StateMonitoring monitoring.Config   `mapstructure:"state-monitoring"`
	SyncQueue       syncqueue.Config    `mapstructure:"sync-queue"`
	WriteLock       WriteLockConfig     `mapstructure:"write-lock"`
	HTTPClient      httpclient.Config   `mapstructure:"http-client"`
	Logging         logging.Config      `mapstructure:"logging"`
	Storage         StorageConfig       `mapstructure:"storage"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Snapback: SnapbackConfig{
			HTTPListen:      ":4000",
			GRPCListen:      ":4001",
			Orchestrator:    OrchestratorStateMachine,
			SyncConcurrency: 10,
		},
		StateMachine:    statemachine.DefaultConfig(),
		StateMonitoring: monitoring.DefaultConfig(),
		SyncQueue:       syncqueue.DefaultConfig(),
		WriteLock:       WriteLockConfig{DefaultTTL: writelock.DefaultTTL},
		HTTPClient:      httpclient.DefaultConfig(),
		Logging:         logging.DefaultConfig(),
		Storage:         StorageConfig{Path: sqlitedb.Memory},
	}
}

// Load reads the config file at path, if any, and everything bound to v
// (flags, environment) over the defaults, then validates the result.
func Load(path string, v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	endpoints, err := ParseEndpoints(strings.Join(cfg.Snapback.DiscoveryEndpoints, ","))
	if err != nil {
		return nil, err
	}
	cfg.Snapback.DiscoveryEndpoints = endpoints
	cfg.Snapback.Endpoint = strings.TrimRight(cfg.Snapback.Endpoint, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every default key with v so environment overrides
// apply to keys that appear in no file or flag.
func setDefaults(v *viper.Viper) error {
	var defaults map[string]any
	if err := mapstructure.Decode(DefaultConfig(), &defaults); err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return nil
}

// Validate checks the configuration for values the node cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Snapback.Endpoint == "" {
		errs = append(errs, errors.New("snapback.creator-node-endpoint is required"))
	} else if err := validateEndpoint(c.Snapback.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("snapback.creator-node-endpoint: %w", err))
	}
	switch c.Snapback.Orchestrator {
	case OrchestratorStateMachine, OrchestratorStateMonitoring:
	default:
		errs = append(errs, fmt.Errorf("snapback.orchestrator must be %q or %q, got %q",
			OrchestratorStateMachine, OrchestratorStateMonitoring, c.Snapback.Orchestrator))
	}
	if c.StateMachine.ModuloBase < 1 {
		errs = append(errs, errors.New("state-machine.modulo-base must be at least 1"))
	}
	if c.StateMonitoring.ModuloBase < 1 {
		errs = append(errs, errors.New("state-monitoring.modulo-base must be at least 1"))
	}
	if c.StateMonitoring.RateLimitJobs < 0 {
		errs = append(errs, errors.New("state-monitoring.rate-limit-jobs-per-interval cannot be negative"))
	}
	if c.SyncQueue.ManualConcurrency < 1 || c.SyncQueue.RecurringConcurrency < 1 {
		errs = append(errs, errors.New("sync-queue concurrency must be at least 1"))
	}
	if c.SyncQueue.MaxExportClockValueRange < 0 {
		errs = append(errs, errors.New("sync-queue.max-export-clock-value-range cannot be negative"))
	}
	if c.WriteLock.DefaultTTL <= 0 {
		errs = append(errs, errors.New("write-lock.default-ttl must be positive"))
	}
	return errors.Join(errs...)
}

// DiscoveryEndpoint returns the discovery node to query, or "" when none is
// configured.
func (c *Config) DiscoveryEndpoint() string {
	if len(c.Snapback.DiscoveryEndpoints) == 0 {
		return ""
	}
	return c.Snapback.DiscoveryEndpoints[0]
}

func validateEndpoint(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) URL", s)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", s)
	}
	return nil
}

// ParseEndpoints parses a comma-separated list of endpoint URLs:
// "http://a:4000,https://b". Trailing slashes are dropped and duplicates
// removed.
func ParseEndpoints(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}

	parts := strings.Split(s, ",")
	endpoints := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part == "" {
			continue
		}
		if err := validateEndpoint(part); err != nil {
			return nil, fmt.Errorf("invalid endpoint: %w", err)
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		endpoints = append(endpoints, part)
	}

	return endpoints, nil
}
