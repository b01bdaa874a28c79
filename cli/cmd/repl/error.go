package repl

import "github.com/akashmane1598/hyperdash/variable"

// Sentinel errors.
var (
	ErrOutOfBounds    = variable.NewError("index out of range")
	ErrEditDeclined   = variable.NewError("decline edit")
	ErrUnnamedRoot    = variable.NewError("document root has no name")
	ErrEvaluate       = variable.NewError("evaluate expression")
	ErrUndefined      = variable.NewError("undefined variable")
	ErrNoProperty     = variable.NewError("no such property")
	ErrScope          = variable.NewError("scope")
	ErrUsage          = variable.NewError("usage")
	ErrUnknownCommand = variable.NewError("unknown command (try 'help')")
	ErrNoDocument     = variable.NewError("no document node")
)
