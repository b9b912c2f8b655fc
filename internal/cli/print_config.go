package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/authdoc/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg *config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("backend=" + cfg.Backend)

	switch cfg.Backend {
	case config.BackendRedis:
		io.Println("redis_addr=" + cfg.RedisAddr)
		io.Println("redis_db=" + strconv.Itoa(cfg.RedisDB))

		if cfg.RedisPrefix != "" {
			io.Println("redis_prefix=" + cfg.RedisPrefix)
		}

		io.Println("slot=" + cfg.Slot)
	default:
		io.Println("data_dir=" + cfg.DataDirAbs)
		io.Println("lock_timeout=" + cfg.LockTimeoutDur.String())
	}

	io.Println("log_level=" + cfg.LogLevel)

	if cfg.LogFileAbs != "" {
		io.Println("log_file=" + cfg.LogFileAbs)
	}

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
