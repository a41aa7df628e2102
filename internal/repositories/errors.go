package repositories

import "errors"

var (
	// ErrNotFound means no row for the given identifier.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists means create was attempted for an id that already has a record.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPreconditionFailed means the conditional status update matched zero
	// rows: another writer won the race or the stored status does not
	// match the operation's required prior state.
	ErrPreconditionFailed = errors.New("status precondition failed")
)
