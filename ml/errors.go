package ml

import "errors"

var (
	// ErrInvalidInput marks records or fields that are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResource marks failures of the external learner to open or write its model file.
	ErrResource = errors.New("learner resource unavailable")
	// ErrInvalidSchema is returned by SchemaBuilder.Build for inconsistent field declarations.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrBuilderClosed is returned when an ExampleBuilder is used after Build or Close.
	ErrBuilderClosed = errors.New("example builder closed")
	// ErrClosed is returned by learners used after Close.
	ErrClosed = errors.New("learner closed")
)
