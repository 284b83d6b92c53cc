package data

import (
	"errors"
	"sync"
)

// Errors returned by the source and its indexer backends.
var (
	// Request errors
	ErrInvalidObjectID        = errors.New("mediameta: invalid object id")
	ErrInvalidRequest         = errors.New("mediameta: invalid request")
	ErrUnsupportedMetadataKey = errors.New("mediameta: unsupported metadata key")
	ErrDerivationCycle        = errors.New("mediameta: derivation cycle")

	// Backend errors
	ErrBackendUnsupported = errors.New("mediameta: backend capability unsupported")
	ErrNotExist           = errors.New("mediameta: item does not exist")
	ErrExist              = errors.New("mediameta: item already exists")
	ErrConflict           = errors.New("mediameta: concurrent modification")
	ErrClosed             = errors.New("mediameta: backend closed")
	ErrInvalid            = errors.New("mediameta: invalid argument")
)

// Errors collects errors from concurrent workers.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = nil
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
