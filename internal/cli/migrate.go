package cli

import (
	"context"
	"encoding/json"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/authdoc/internal/migrate"
	"github.com/calvinalkan/authdoc/internal/migrations"
)

// MigrateCmd returns the migrate command.
func MigrateCmd(b *backend) *Command {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	asJSON := flags.Bool("json", false, "Print the summary as JSON")

	return &Command{
		Flags: flags,
		Usage: "migrate [--json]",
		Short: "Apply pending document migrations",
		Long: "Run every registered migration in order and print the summary.\n" +
			"Migrations that are already applied are skipped. Exits 1 if any migration failed.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execMigrate(ctx, io, b, *asJSON, args)
		},
	}
}

func execMigrate(ctx context.Context, io *IO, b *backend, asJSON bool, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %v", ErrUnexpectedArgs, args)
	}

	runner := migrate.NewRunner(
		migrations.Default(migrations.Options{Logger: b.logger}),
		migrate.WithLogger(b.logger),
	)

	summary := runner.Run(ctx, b.store)

	for _, detail := range summary.Details {
		if detail.Failed() {
			io.Warn("migration failed for "+detail.File, detail.Error)
		}
	}

	if asJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}

		io.Println(string(data))

		return nil
	}

	io.Printf("total=%d successful=%d failed=%d\n", summary.Total, summary.Successful, summary.Failed)

	for _, detail := range summary.Details {
		switch {
		case detail.Migrated:
			io.Printf("%s migrated to v%d\n", detail.File, detail.Version)
		case detail.Failed():
			io.Printf("%s failed: %s\n", detail.File, detail.Error)
		default:
			io.Printf("%s up to date (v%d)\n", detail.File, detail.Version)
		}
	}

	return nil
}
