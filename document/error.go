package document

import "github.com/akashmane1598/hyperdash/variable"

// Predefined errors (sentinel values).
var (
	ErrReadInput = variable.NewError("failed to read document")
	ErrDecode    = variable.NewError("failed to decode document")
	ErrEncode    = variable.NewError("failed to encode document")
	ErrBuild     = variable.NewError("failed to build document")
	ErrNotFound  = variable.NewError("document not found")
)
