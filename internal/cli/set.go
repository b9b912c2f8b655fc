package cli

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/authdoc/internal/document"
)

// SetCmd returns the set command.
func SetCmd(b *backend) *Command {
	return &Command{
		Flags: flag.NewFlagSet("set", flag.ContinueOnError),
		Usage: "set [<json>]",
		Short: "Store auth data",
		Long: "Store a JSON object as the auth record. Reads stdin when no argument is given.\n" +
			"The file backend merges into the existing record and stamps updatedAt;\n" +
			"the redis backend replaces it.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execSet(ctx, o, b, args)
		},
	}
}

func execSet(ctx context.Context, o *IO, b *backend, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: %v", ErrUnexpectedArgs, args[1:])
	}

	var data []byte

	if len(args) == 1 {
		data = []byte(args[0])
	} else {
		if o.Stdin() == nil {
			return ErrNoInput
		}

		read, err := io.ReadAll(o.Stdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}

		data = read
	}

	doc, err := document.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	b.session.Set(ctx, doc)

	if len(doc) > 0 && b.session.Get(ctx) == nil {
		o.Warn("auth data not stored", "check the log output for backend errors")
	}

	return nil
}
