package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/calvinalkan/authdoc/internal/document"
)

// ShowCmd returns the show command.
func ShowCmd(b *backend) *Command {
	flags := flag.NewFlagSet("show", flag.ContinueOnError)
	path := flags.String("path", "", "Print only the value at this `path` (gjson syntax, e.g. profile.name)")

	return &Command{
		Flags: flags,
		Usage: "show [--path <path>]",
		Short: "Print the stored auth data",
		Long:  "Print the stored auth record as JSON. Warns and exits 1 when nothing is stored.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execShow(ctx, io, b, *path, args)
		},
	}
}

func execShow(ctx context.Context, io *IO, b *backend, path string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: %v", ErrUnexpectedArgs, args)
	}

	doc := b.session.Get(ctx)
	if doc == nil {
		io.Warn("no auth data", "store a record with 'authdoc set'")

		return nil
	}

	data, err := document.MarshalIndent(doc)
	if err != nil {
		return err
	}

	if path == "" {
		io.Printf("%s", data)

		return nil
	}

	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	if result.IsObject() || result.IsArray() {
		io.Println(result.Raw)
	} else {
		io.Println(result.String())
	}

	return nil
}
