// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

const backendMemory = "memory"

// Memory keeps blobs in a process-local map.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores a copy of blob under name.
func (m *Memory) Put(_ context.Context, name string, blob []byte) (err error) {
	defer func(start time.Time) { observe(backendMemory, opPut, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.blobs[name] = clone(blob)

	return nil
}

// Get returns a copy of the blob stored under name.
func (m *Memory) Get(_ context.Context, name string) (blob []byte, err error) {
	defer func(start time.Time) { observe(backendMemory, opGet, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	b, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}

	return clone(b), nil
}

// List returns the stored names in ascending order.
func (m *Memory) List(_ context.Context) (names []string, err error) {
	defer func(start time.Time) { observe(backendMemory, opList, start, err) }(time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	names = make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes name; missing names are ignored.
func (m *Memory) Delete(_ context.Context, name string) (err error) {
	defer func(start time.Time) { observe(backendMemory, opDelete, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.blobs, name)

	return nil
}

// Close drops all blobs. Further calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.blobs = nil

	return nil
}
