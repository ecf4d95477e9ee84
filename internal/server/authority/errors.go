package authority

import "errors"

// ErrBadRequest marks a structurally invalid batch: the handler maps it to
// a 400 instead of a 500.
var ErrBadRequest = errors.New("bad request")
