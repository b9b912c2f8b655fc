package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
)

// ClearCmd returns the clear command.
func ClearCmd(b *backend) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear",
		Short: "Remove stored auth data",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("%w: %v", ErrUnexpectedArgs, args)
			}

			b.session.Clear(ctx)

			if b.session.Get(ctx) != nil {
				io.Warn("auth data still present", "check the log output for backend errors")
			}

			return nil
		},
	}
}
