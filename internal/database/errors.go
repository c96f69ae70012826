package database

import (
	"errors"
	"fmt"
)

var errNotInitialised = errors.New("database not initialised")

// StorageError reports that the durable store was unavailable or returned
// something unusable. Callers on the evaluation path treat it as a miss.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
