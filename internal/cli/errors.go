package cli

import "errors"

// CLI errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnexpectedArgs = errors.New("unexpected arguments")
	ErrNoInput        = errors.New("no JSON given: pass it as an argument or on stdin")
	ErrInvalidInput   = errors.New("invalid auth data")
	ErrPathNotFound   = errors.New("path not found")
)
