package cmd

import "github.com/akashmane1598/hyperdash/variable"

// Predefined errors (sentinel values).
var (
	ErrVariable      = variable.NewError("invalid variable assignment (want key=value)")
	ErrNoInput       = variable.NewError("no input (name a document, or use --source or '-')")
	ErrNodeNotFound  = variable.NewError("node not found")
	ErrEvaluate      = variable.NewError("evaluate expression")
	ErrEncode        = variable.NewError("encode output")
	ErrWriteConfig   = variable.NewError("write configuration file")
	ErrFileExists    = variable.NewError("file exists (use --force to overwrite)")
	ErrWriteDocument = variable.NewError("write document")
)
