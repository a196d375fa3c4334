package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEntity is returned by Load when the requested durable id has
	// no entity row.
	ErrMissingEntity = errors.New("durable entity not found")

	// ErrNotPersisted is returned by the single-component operations when
	// the live handle has no durable binding; the entity must be saved
	// before its components can be updated individually.
	ErrNotPersisted = errors.New("live entity has no durable id")
)

// StoreError wraps a transport or transaction failure from the underlying
// store. It is always surfaced to the caller and never retried by the
// engine; retry policy belongs to the caller or the store client.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
