// Package cli implements the authdoc command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/authdoc/internal/config"
	"github.com/calvinalkan/authdoc/internal/logging"
)

// Run is the main entry point. Returns exit code.
//
// A signal received on sigCh cancels the running command's context; sigCh
// may be nil.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("authdoc", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	dataDir := globals.String("data-dir", "", "Override the file backend `dir`")
	backendName := globals.String("backend", "", "Override the storage backend (file|redis)")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.Args()

	if *help || len(rest) == 0 {
		printUsage(out, globals)

		return 0
	}

	if globals.Changed("data-dir") && *dataDir == "" {
		fprintln(errOut, "error:", config.ErrDataDirEmpty)
		printUsage(errOut, globals)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		DataDirOverride: *dataDir,
		BackendOverride: *backendName,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFileAbs,
		Stderr: errOut,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	b := openBackend(cfg, logger)

	defer func() {
		closeErr := errors.Join(b.close(), logCloser.Close())
		if closeErr != nil {
			fprintln(errOut, "error:", closeErr)
		}
	}()

	commands := []*Command{
		MigrateCmd(b),
		ShowCmd(b),
		SetCmd(b),
		ClearCmd(b),
		PrintConfigCmd(&cfg),
	}

	name := rest[0]

	var cmd *Command

	for _, c := range commands {
		if c.Name() == name {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, name))
		printUsage(errOut, globals)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	cmdIO := NewIO(stdin, out, errOut)

	code := cmd.Run(ctx, cmdIO, rest[1:])
	if code != 0 {
		return code
	}

	return cmdIO.Finish()
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, `authdoc - versioned auth session store

Usage: authdoc [flags] <command> [args]

Commands:`)

	for _, c := range []*Command{
		MigrateCmd(nil),
		ShowCmd(nil),
		SetCmd(nil),
		ClearCmd(nil),
		PrintConfigCmd(nil),
	} {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globals.FlagUsages())
	fprintln(w, `Run "authdoc <command> --help" for command flags.`)
}
