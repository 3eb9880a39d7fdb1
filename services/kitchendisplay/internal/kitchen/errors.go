package kitchen

import "errors"

var (
	// ErrFetchFailure wraps errors reading tickets from the order source.
	ErrFetchFailure = errors.New("cannot fetch comandas")
	// ErrWriteBackFailure wraps errors persisting an edit to the order source.
	ErrWriteBackFailure = errors.New("cannot write back comanda change")
	// ErrNoOrderSource is returned when the engine has no order source to
	// fetch from or write back to.
	ErrNoOrderSource = errors.New("order source not configured")
	// ErrNotFound reports an edit on a ticket or dish that is no longer active.
	ErrNotFound = errors.New("comanda or dish not found")
)
