package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/authdoc/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func load(t *testing.T, input config.LoadInput) config.Config {
	t.Helper()

	if input.Env == nil {
		input.Env = map[string]string{}
	}

	cfg, err := config.Load(input)
	require.NoError(t, err)

	return cfg
}

func Test_Load_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := load(t, config.LoadInput{WorkDirOverride: dir})

	require.Equal(t, ".authdoc", cfg.DataDir)
	require.Equal(t, filepath.Join(dir, ".authdoc"), cfg.DataDirAbs)
	require.Equal(t, config.BackendFile, cfg.Backend)
	require.Equal(t, "softwareAuth", cfg.Slot)
	require.Equal(t, 2*time.Second, cfg.LockTimeoutDur)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Empty(t, cfg.LogFileAbs)
	require.Equal(t, config.Sources{}, cfg.Sources)
}

func Test_Load_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	globalFile := filepath.Join(xdg, "authdoc", "config.json")
	writeFile(t, globalFile, `{"data_dir": "global-data", "slot": "globalSlot", "log_level": "info"}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{
		// project wins over global
		"data_dir": "project-data",
		"lock_timeout": "500ms",
	}`)

	cfg := load(t, config.LoadInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})

	require.Equal(t, filepath.Join(dir, "project-data"), cfg.DataDirAbs)
	require.Equal(t, "globalSlot", cfg.Slot)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 500*time.Millisecond, cfg.LockTimeoutDur)
	require.Equal(t, globalFile, cfg.Sources.Global)
	require.Equal(t, filepath.Join(dir, config.FileName), cfg.Sources.Project)

	cfg = load(t, config.LoadInput{
		WorkDirOverride: dir,
		DataDirOverride: "/abs/cli-data",
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.Equal(t, "/abs/cli-data", cfg.DataDirAbs)
}

func Test_Load_HomeFallback(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "authdoc", "config.json"), `{"slot": "homeSlot"}`)

	cfg := load(t, config.LoadInput{
		WorkDirOverride: t.TempDir(),
		Env:             map[string]string{"HOME": home},
	})
	require.Equal(t, "homeSlot", cfg.Slot)
}

func Test_Load_ExplicitConfigReplacesProjectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{"data_dir": "ignored"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{
		"backend": "redis",
		"redis_addr": "127.0.0.1:6379",
		"redis_db": 3,
		"redis_prefix": "app:",
		"log_file": "logs/authdoc.log"
	}`)

	cfg := load(t, config.LoadInput{WorkDirOverride: dir, ConfigPath: "custom.json"})

	require.Equal(t, ".authdoc", cfg.DataDir)
	require.Equal(t, config.BackendRedis, cfg.Backend)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, "app:", cfg.RedisPrefix)
	require.Equal(t, filepath.Join(dir, "logs", "authdoc.log"), cfg.LogFileAbs)
	require.Equal(t, filepath.Join(dir, "custom.json"), cfg.Sources.Project)
}

func Test_Load_RedisDBZeroOverridesGlobal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "authdoc", "config.json"), `{"redis_db": 5}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{"redis_db": 0}`)

	cfg := load(t, config.LoadInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.Equal(t, 0, cfg.RedisDB)
}

func Test_Load_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		backend  string
		explicit string
		wantErr  error
	}{
		{name: "missing explicit file", explicit: "nope.json", wantErr: config.ErrConfigFileNotFound},
		{name: "malformed JSONC", file: `{"data_dir": `, wantErr: config.ErrConfigInvalid},
		{name: "empty data_dir", file: `{"data_dir": ""}`, wantErr: config.ErrDataDirEmpty},
		{name: "empty slot", file: `{"slot": ""}`, wantErr: config.ErrSlotEmpty},
		{name: "unknown backend", file: `{"backend": "s3"}`, wantErr: config.ErrBackendUnknown},
		{name: "unknown backend from flag", backend: "sqlite", wantErr: config.ErrBackendUnknown},
		{name: "redis without address", backend: "redis", wantErr: config.ErrRedisAddrEmpty},
		{name: "negative redis_db", file: `{"redis_db": -1}`, wantErr: config.ErrRedisDBInvalid},
		{name: "bad lock_timeout", file: `{"lock_timeout": "soon"}`, wantErr: config.ErrLockTimeout},
		{name: "zero lock_timeout", file: `{"lock_timeout": "0s"}`, wantErr: config.ErrLockTimeout},
		{name: "bad log_level", file: `{"log_level": "chatty"}`, wantErr: config.ErrLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, config.FileName), tt.file)
			}

			_, err := config.Load(config.LoadInput{
				WorkDirOverride: dir,
				ConfigPath:      tt.explicit,
				BackendOverride: tt.backend,
				Env:             map[string]string{},
			})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
