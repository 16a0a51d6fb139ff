package storage

import "errors"

var (
	ErrEmptyTable       = errors.New("empty table has no schema")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrTypeMismatch     = errors.New("type mismatch")
)
