// SPDX-License-Identifier: MIT

package pca

import (
	"errors"
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/matrix"
)

// ErrInvalidClusters reports a cluster count outside 1..rows.
var ErrInvalidClusters = errors.New("pca: cluster count out of range")

// Clustering groups encoded samples around k centers in component space.
type Clustering struct {
	// Labels holds the cluster index of every input row.
	Labels []int
	// Centers is k×K; row i is the center of cluster i.
	Centers *matrix.Dense
	// Sizes holds the population of every cluster.
	Sizes []int
}

// Cluster partitions the rows of codes (typically the output of Encode) with
// k-means. Clusters are numbered by descending population and each center is
// the mean of its members.
//
// Errors:
//   - matrix.ErrNilMatrix for a nil input.
//   - ErrInvalidClusters when k is outside 1..codes.Rows().
func Cluster(codes *matrix.Dense, k int) (*Clustering, error) {
	if err := matrix.ValidateNotNil(codes); err != nil {
		return nil, fmt.Errorf("pca: Cluster: %w", err)
	}
	n, dim := codes.Shape()
	if k < 1 || k > n {
		return nil, fmt.Errorf("pca: Cluster(%d of %d rows): %w", k, n, ErrInvalidClusters)
	}

	rows := codes.RawRows()
	dataset := make(clusters.Observations, n)
	for i, r := range rows {
		dataset[i] = clusters.Coordinates(r)
	}
	cc, err := kmeans.New().Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("pca: Cluster: %w", err)
	}

	// Assign every row to its nearest k-means center, then number the
	// clusters by descending population.
	raw := make([]int, n)
	count := make([]int, len(cc))
	for i, r := range rows {
		raw[i] = cc.Nearest(clusters.Coordinates(r))
		count[raw[i]]++
	}
	order := make([]int, len(cc))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return count[b] - count[a] })
	rank := make([]int, len(cc))
	for newIdx, oldIdx := range order {
		rank[oldIdx] = newIdx
	}

	out := &Clustering{Labels: make([]int, n), Sizes: make([]int, len(cc))}
	centers := make([]float64, len(cc)*dim)
	for i, r := range rows {
		l := rank[raw[i]]
		out.Labels[i] = l
		out.Sizes[l]++
		for j, v := range r {
			centers[l*dim+j] += v
		}
	}
	// Centers are the means of their members; an empty cluster keeps its k-means center.
	for oldIdx, c := range cc {
		l := rank[oldIdx]
		for j := 0; j < dim; j++ {
			if out.Sizes[l] == 0 {
				centers[l*dim+j] = c.Center[j]
			} else {
				centers[l*dim+j] /= float64(out.Sizes[l])
			}
		}
	}
	if out.Centers, err = matrix.NewFromData(len(cc), dim, centers); err != nil {
		return nil, fmt.Errorf("pca: Cluster: %w", err)
	}
	log.Debug().Int("samples", n).Int("clusters", len(cc)).Ints("sizes", out.Sizes).Msg("pca: codes clustered")

	return out, nil
}
