// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const backendFile = "file"

// FileExt is appended to the name of every blob file.
const FileExt = ".model"

// File keeps one <name>.model file per blob in a directory. Writes go to a
// temporary file that is renamed into place, so readers never observe a
// partially written blob.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}

	return &File{dir: dir}, nil
}

// Dir returns the root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) path(name string) string { return filepath.Join(f.dir, name+FileExt) }

// Put writes blob to <dir>/<name>.model atomically.
func (f *File) Put(_ context.Context, name string, blob []byte) (err error) {
	defer func(start time.Time) { observe(backendFile, opPut, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".put-*.tmp")
	if err != nil {
		return fmt.Errorf("store: file put %q: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: file put %q: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: file put %q: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("store: file put %q: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), f.path(name)); err != nil {
		return fmt.Errorf("store: file put %q: %w", name, err)
	}

	return nil
}

// Get maps the blob file read-only and returns a copy of its contents.
func (f *File) Get(_ context.Context, name string) (blob []byte, err error) {
	defer func(start time.Time) { observe(backendFile, opGet, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: file get %q: %w", name, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("store: file get %q: %w", name, err)
	}
	// Zero-length files cannot be mapped.
	if info.Size() == 0 {
		return []byte{}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("store: file get %q: %w", name, err)
	}
	blob = clone(data)
	if err = data.Unmap(); err != nil {
		return nil, fmt.Errorf("store: file get %q: %w", name, err)
	}

	return blob, nil
}

// List returns the names of all blob files in ascending order.
func (f *File) List(_ context.Context) (names []string, err error) {
	defer func(start time.Time) { observe(backendFile, opList, start, err) }(time.Now())
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("store: file list: %w", err)
	}
	names = make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := blobName(e.Name()); ok && e.Type().IsRegular() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes the blob file; a missing file is not an error.
func (f *File) Delete(_ context.Context, name string) (err error) {
	defer func(start time.Time) { observe(backendFile, opDelete, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	if err = os.Remove(f.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: file delete %q: %w", name, err)
	}

	return nil
}

// Close is a no-op; watchers are bound to the context passed to Watch.
func (f *File) Close() error { return nil }

// Watch emits the name of every blob created, rewritten or removed in the
// directory, including changes made by other processes. The channel is
// closed when ctx is done or the watcher fails.
func (f *File) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: watch %s: %w", f.dir, err)
	}
	if err = w.Add(f.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("store: watch %s: %w", f.dir, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				name, ok := blobName(filepath.Base(ev.Name))
				if !ok {
					continue
				}
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", f.dir).Msg("store: watch error")
			}
		}
	}()

	return out, nil
}

// blobName strips FileExt from a directory entry; temporary files are skipped.
func blobName(base string) (string, bool) {
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, FileExt) {
		return "", false
	}
	name := strings.TrimSuffix(base, FileExt)

	return name, name != ""
}
