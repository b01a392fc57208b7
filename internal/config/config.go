// Package config carries the process-wide parameters of the path-finding
// core as fields of a value threaded explicitly into every request, instead
// of as global mutables. This follows the YAML-config idiom of
// jhkimqd-chaos-utils/pkg/config: a plain struct with yaml tags, a
// Default constructor, and a Load that overlays a file on the
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config bundles the labeling/extraction parameters from spec §6
// "Configuration parameters", plus logging, tracing and metrics knobs that
// the source treats as ambient but which a complete service must configure
// explicitly.
type Config struct {
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PathfindingConfig is the §6 "Configuration parameters" block, set once per
// process and passed by reference. STOCH_DISPERSION is written as Theta;
// TIME_WINDOW as Window; these are the only two defaults the original
// ZERO_WALK_TRANSFER_ATTRIBUTES_ singleton depends on, so ZeroWalkTransfer
// lives alongside them rather than as a lazily-initialized package global
// (§9 Global mutables).
type PathfindingConfig struct {
	// Window is TIME_WINDOW (minutes): the span defining which candidate
	// links remain considered at a stop's Hyperlink side.
	Window float64 `yaml:"time_window_min"`

	// BumpBuffer is BUMP_BUFFER (minutes) added to bump-wait adjusted costs.
	BumpBuffer float64 `yaml:"bump_buffer_min"`

	// StochPathsetSize is STOCH_PATHSET_SIZE: number of Monte Carlo draws
	// per stochastic extraction.
	StochPathsetSize int `yaml:"stoch_pathset_size"`

	// Theta is STOCH_DISPERSION (θ), the hyperpath log-sum dispersion.
	Theta float64 `yaml:"stoch_dispersion"`

	// StochMaxStopProcessCount is STOCH_MAX_STOP_PROCESS_COUNT: the
	// per-(stop,side) labeling re-processing cap in stochastic mode.
	StochMaxStopProcessCount int `yaml:"stoch_max_stop_process_count"`

	// MaxNumPaths is MAX_NUM_PATHS: the cap on unique paths retained in a
	// stochastic PathSet after de-duplication.
	MaxNumPaths int `yaml:"max_num_paths"`

	// MinPathProbability is MIN_PATH_PROBABILITY: paths whose normalized
	// probability falls below this are dropped before final selection.
	MinPathProbability float64 `yaml:"min_path_probability"`

	// DepartEarlyAllowedMin / ArriveLateAllowedMin bound schedule-adherence
	// cost attributes computed in Path.CalculateCost.
	DepartEarlyAllowedMin float64 `yaml:"depart_early_allowed_min"`
	ArriveLateAllowedMin  float64 `yaml:"arrive_late_allowed_min"`

	// ZeroWalkTransferPenalty is the transfer_penalty attribute attached to
	// every transfer the labeling loop relaxes, the canonical zero-walk
	// self-transfer included (§4.4.3).
	ZeroWalkTransferPenalty float64 `yaml:"zero_walk_transfer_penalty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the parameter values the end-to-end scenarios in spec §8
// are written against (θ=1.0, W=30, MIN_COST baked into transit.MinCost).
func Default() *Config {
	return &Config{
		Pathfinding: PathfindingConfig{
			Window:                   30.0,
			BumpBuffer:               5.0,
			StochPathsetSize:         1000,
			Theta:                    1.0,
			StochMaxStopProcessCount: 20,
			MaxNumPaths:              50,
			MinPathProbability:       0.005,
			DepartEarlyAllowedMin:    10,
			ArriveLateAllowedMin:     10,
			ZeroWalkTransferPenalty:  1.0,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{Enabled: false, Dir: "traces"},
		Metrics: MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}

// Load reads a YAML file and overlays it onto Default(). A missing file is
// not an error: callers get defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects a configuration the labeling loop cannot run under, e.g.
// a zero dispersion that would make every hyperpath cost -Inf.
func (c *Config) Validate() error {
	if c.Pathfinding.Theta <= 0 {
		return fmt.Errorf("config: stoch_dispersion must be > 0, got %v", c.Pathfinding.Theta)
	}
	if c.Pathfinding.Window <= 0 {
		return fmt.Errorf("config: time_window_min must be > 0, got %v", c.Pathfinding.Window)
	}
	if c.Pathfinding.StochPathsetSize <= 0 {
		return fmt.Errorf("config: stoch_pathset_size must be > 0, got %v", c.Pathfinding.StochPathsetSize)
	}
	return nil
}
