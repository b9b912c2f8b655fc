// Package config loads authdoc configuration from JSONC files and CLI
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tailscale/hujson"
)

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DataDir     string `json:"data_dir"`
	Backend     string `json:"backend"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	RedisDB     int    `json:"redis_db,omitempty"`
	RedisPrefix string `json:"redis_prefix,omitempty"`
	Slot        string `json:"slot"`
	LockTimeout string `json:"lock_timeout"`
	LogLevel    string `json:"log_level"`
	LogFile     string `json:"log_file,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd    string        `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DataDirAbs      string        `json:"-"` // Absolute path to the file backend root
	LogFileAbs      string        `json:"-"` // Absolute log file path, empty when logging to stderr
	LockTimeoutDur  time.Duration `json:"-"`
	RedisDBExplicit bool          `json:"-"` // redis_db was set by some source

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir:     ".authdoc",
		Backend:     BackendFile,
		Slot:        "softwareAuth",
		LockTimeout: "2s",
		LogLevel:    "warn",
	}
}

// FileName is the default project config file name.
const FileName = ".authdoc.json"

var logLevels = []string{"debug", "info", "warn", "error"}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/authdoc/config.json if set, otherwise
// ~/.config/authdoc/config.json. Empty if neither is known.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "authdoc", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "authdoc", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	DataDirOverride string            // --data-dir flag value; empty means no override
	BackendOverride string            // --backend flag value; empty means no override
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/authdoc/config.json or $XDG_CONFIG_HOME/authdoc/config.json)
// 3. Project config file at default location (.authdoc.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	globalCfg, global, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = global
	cfg = merge(cfg, globalCfg)

	projectCfg, project, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = project
	cfg = merge(cfg, projectCfg)

	if input.DataDirOverride != "" {
		cfg.DataDir = input.DataDirOverride
	}

	if input.BackendOverride != "" {
		cfg.Backend = input.BackendOverride
	}

	timeout, err := validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.LockTimeoutDur = timeout
	cfg.EffectiveCwd = workDir
	cfg.DataDirAbs = absolute(workDir, cfg.DataDir)

	if cfg.LogFile != "" {
		cfg.LogFileAbs = absolute(workDir, cfg.LogFile)
	}

	return cfg, nil
}

func absolute(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// loadGlobal loads the global user config file if it exists.
func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads the project config file (.authdoc.json) or an explicit
// config file.
func loadProject(workDir, configPath string) (Config, string, error) {
	var (
		path      string
		mustExist bool
	)

	if configPath != "" {
		path = absolute(workDir, configPath)
		mustExist = true

		_, statErr := os.Stat(path)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		path = filepath.Join(workDir, FileName)
	}

	cfg, loaded, err := loadFile(path, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile loads a config file. If mustExist is false, missing files return
// zero config. Fields set to an empty string where that is never valid are
// rejected here, since merge cannot tell them apart from unset.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, explicitEmpty, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	if explicitEmpty["data_dir"] {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrDataDirEmpty)
	}

	if explicitEmpty["slot"] {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrSlotEmpty)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	for _, key := range []string{"data_dir", "slot"} {
		if str, ok := raw[key].(string); ok && str == "" {
			explicitEmpty[key] = true
		}
	}

	if _, ok := raw["redis_db"]; ok {
		cfg.RedisDBExplicit = true
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.DataDir != "" {
		base.DataDir = overlay.DataDir
	}

	if overlay.Backend != "" {
		base.Backend = overlay.Backend
	}

	if overlay.RedisAddr != "" {
		base.RedisAddr = overlay.RedisAddr
	}

	if overlay.RedisDBExplicit {
		base.RedisDB = overlay.RedisDB
		base.RedisDBExplicit = true
	}

	if overlay.RedisPrefix != "" {
		base.RedisPrefix = overlay.RedisPrefix
	}

	if overlay.Slot != "" {
		base.Slot = overlay.Slot
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	return base
}

// validate checks cfg and returns the parsed lock timeout.
func validate(cfg Config) (time.Duration, error) {
	if cfg.DataDir == "" {
		return 0, ErrDataDirEmpty
	}

	if cfg.Slot == "" {
		return 0, ErrSlotEmpty
	}

	switch cfg.Backend {
	case BackendFile:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return 0, ErrRedisAddrEmpty
		}
	default:
		return 0, fmt.Errorf("%w: %q (want %q or %q)", ErrBackendUnknown, cfg.Backend, BackendFile, BackendRedis)
	}

	if cfg.RedisDB < 0 {
		return 0, fmt.Errorf("%w: %d", ErrRedisDBInvalid, cfg.RedisDB)
	}

	timeout, err := time.ParseDuration(cfg.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}

	if timeout <= 0 {
		return 0, fmt.Errorf("%w: must be positive, got %s", ErrLockTimeout, cfg.LockTimeout)
	}

	if !slices.Contains(logLevels, cfg.LogLevel) {
		return 0, fmt.Errorf("%w: %q (want one of %v)", ErrLogLevel, cfg.LogLevel, logLevels)
	}

	return timeout, nil
}
