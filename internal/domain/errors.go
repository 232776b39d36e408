// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrUnready indicates a capability was invoked before it was initialized.
var ErrUnready = errors.New("capability not ready")

// ErrEmptyCompletion indicates the generation upstream answered with no choices.
var ErrEmptyCompletion = errors.New("empty completion")
