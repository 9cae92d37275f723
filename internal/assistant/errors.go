package assistant

import (
	"errors"
	"fmt"
)

// PersistenceError wraps a failed durable write: a mailbox draft save,
// a flag update, or a learning-state flush. Persistence failures are
// retried with bounded backoff before a message is declared failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError reports whether err (or any error in its chain) is
// a PersistenceError.
func IsPersistenceError(err error) bool {
	var persErr *PersistenceError
	return errors.As(err, &persErr)
}
