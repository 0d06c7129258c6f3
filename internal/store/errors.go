package store

import "errors"

// ErrWrongType is returned when an operation is attempted against a key
// holding a value of a different kind.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Kind identifies the value kind stored at a key.
type Kind string

const (
	KindNone   Kind = "none"
	KindString Kind = "string"
	KindList   Kind = "list"
	KindStream Kind = "stream"
)
