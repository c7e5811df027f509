package store

import "fmt"

// ValidationError reports bad user input on add/edit. It is surfaced
// inline in the UI and intentionally not logged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an edit/delete against an id that no longer exists.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alert %s not found", e.ID)
}

// PersistenceError reports a failed rewrite of the persisted document.
// The in-memory state is kept; the app keeps running.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
