// SPDX-License-Identifier: MIT

package pca

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/store"
)

// Repository persists trained models by name in a store.Store.
type Repository struct {
	store store.Store
	opts  []Option
}

// NewRepository returns a Repository over s. opts are applied to every
// loaded model (for example WithSolver for later re-fits).
func NewRepository(s store.Store, opts ...Option) *Repository {
	return &Repository{store: s, opts: opts}
}

// Save encodes m and stores it under name, replacing any previous model.
func (r *Repository) Save(ctx context.Context, name string, m *Model) error {
	blob, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("pca: save %q: %w", name, err)
	}
	if err = r.store.Put(ctx, name, blob); err != nil {
		return fmt.Errorf("pca: save %q: %w", name, err)
	}
	log.Info().Str("model", name).Int("bytes", len(blob)).Msg("pca: model saved")

	return nil
}

// Load decodes the model stored under name.
//
// Errors:
//   - store.ErrNotFound when no model has that name.
//   - matrix.ErrDecode for a corrupt payload.
func (r *Repository) Load(ctx context.Context, name string) (*Model, error) {
	blob, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("pca: load %q: %w", name, err)
	}
	m := &Model{}
	for _, opt := range r.opts {
		opt(m)
	}
	if err = m.UnmarshalBinary(blob); err != nil {
		return nil, fmt.Errorf("pca: load %q: %w", name, err)
	}
	log.Debug().Str("model", name).Int("features", m.Features()).Int("components", m.Components()).Msg("pca: model loaded")

	return m, nil
}

// List returns stored model names in ascending order.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	names, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("pca: list: %w", err)
	}

	return names, nil
}

// Delete removes the model stored under name. Deleting a missing model is not an error.
func (r *Repository) Delete(ctx context.Context, name string) error {
	if err := r.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("pca: delete %q: %w", name, err)
	}

	return nil
}
