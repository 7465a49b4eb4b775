// Package config loads jitc.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"jitcore/internal/trace"
)

// FileName is the config file searched for from the working directory up.
const FileName = "jitc.toml"

// Config is the decoded config file.
type Config struct {
	JIT   JITConfig   `toml:"jit"`
	Run   RunConfig   `toml:"run"`
	Trace TraceConfig `toml:"trace"`

	// Path is where the config was read from; empty for defaults.
	Path string `toml:"-"`
}

type JITConfig struct {
	OptLevel  uint `toml:"opt_level"`
	LegacyGT  bool `toml:"legacy_gt"`
	Heartbeat int  `toml:"heartbeat_ms"`
}

type RunConfig struct {
	Entry string `toml:"entry"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Format string `toml:"format"`
	Output string `toml:"output"`
	// RingSize is how many events ring mode keeps.
	RingSize int `toml:"ring_size"`
}

// Default returns the settings used without a config file.
func Default() Config {
	return Config{
		JIT:   JITConfig{OptLevel: 3},
		Run:   RunConfig{Entry: "main"},
		Trace: TraceConfig{Level: "off", Mode: "stream", Format: "auto", Output: "-", RingSize: 4096},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("run", "entry") && strings.TrimSpace(cfg.Run.Entry) == "" {
		return Config{}, fmt.Errorf("%s: [run].entry must not be empty", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest config above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.JIT.OptLevel > 3 {
		errs = append(errs, fmt.Errorf("[jit].opt_level must be 0..3, got %d", c.JIT.OptLevel))
	}
	if c.JIT.Heartbeat < 0 {
		errs = append(errs, errors.New("[jit].heartbeat_ms must not be negative"))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, fmt.Errorf("[trace].format: %w", err))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, errors.New("[trace].ring_size must not be negative"))
	}
	return errors.Join(errs...)
}

// TraceSettings converts the [trace] table for trace.New.
func (c *Config) TraceSettings() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
	}, nil
}

// HeartbeatInterval is [jit].heartbeat_ms as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.JIT.Heartbeat) * time.Millisecond
}
