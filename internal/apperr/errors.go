// Package apperr defines the error values shared across Laguz.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// NoteNotFoundError reports a lookup miss by note name or path.
type NoteNotFoundError struct {
	Name string
}

func (e *NoteNotFoundError) Error() string {
	return fmt.Sprintf("note %q not found", e.Name)
}

func (e *NoteNotFoundError) Unwrap() error { return ErrNotFound }

// NoteNotFound wraps ErrNotFound with the note identifier that missed.
func NoteNotFound(name string) error {
	return &NoteNotFoundError{Name: name}
}

// BaseNotFoundError reports a lookup miss for a Base by id.
type BaseNotFoundError struct {
	ID string
}

func (e *BaseNotFoundError) Error() string {
	return fmt.Sprintf("base %q not found", e.ID)
}

func (e *BaseNotFoundError) Unwrap() error { return ErrNotFound }

// BaseNotFound wraps ErrNotFound with the base id that missed.
func BaseNotFound(id string) error {
	return &BaseNotFoundError{ID: id}
}
