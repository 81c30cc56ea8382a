// SPDX-License-Identifier: MIT

// Package store persists opaque model blobs by name.
//
// Every backend implements Store with the same contract:
//   - Put replaces any blob previously stored under the name.
//   - Get returns a private copy of the blob, or ErrNotFound.
//   - List returns the stored names sorted ascending.
//   - Delete is idempotent: removing a missing name is not an error.
//
// Names must be non-empty, must not start with a dot and must be free of
// path separators. Backends record metrics.StoreOperations and
// metrics.StoreLatency for every call.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/katalvlaran/pcimg/metrics"
)

var (
	// ErrNotFound is returned by Get when no blob is stored under the name.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidName is returned for empty names, names starting with a dot
	// and names containing a path separator.
	ErrInvalidName = errors.New("store: invalid name")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store is the model persistence contract shared by all backends.
type Store interface {
	Put(ctx context.Context, name string, blob []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Operation labels.
const (
	opPut    = "put"
	opGet    = "get"
	opList   = "list"
	opDelete = "delete"
)

// ValidateName reports ErrInvalidName for names no backend can store.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

// observe records the outcome and latency of one backend call.
func observe(backend, op string, start time.Time, err error) {
	status := metrics.StatusOK
	switch {
	case errors.Is(err, ErrNotFound):
		status = metrics.StatusNotFound
	case err != nil:
		status = metrics.StatusError
	}
	metrics.StoreOperations.WithLabelValues(backend, op, status).Inc()
	metrics.StoreLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
