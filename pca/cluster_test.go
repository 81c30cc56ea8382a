// SPDX-License-Identifier: MIT
package pca_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/pcimg/matrix"
	"github.com/katalvlaran/pcimg/pca"
)

func TestClusterSingleGroupIsTheMean(t *testing.T) {
	codes := randomDense(t, 30, 3, 31)
	c, err := pca.Cluster(codes, 1)
	require.NoError(t, err)
	require.Equal(t, []int{30}, c.Sizes)
	for _, l := range c.Labels {
		require.Equal(t, 0, l)
	}

	means, err := matrix.ColumnMeans(codes)
	require.NoError(t, err)
	require.True(t, matrix.AllClose(c.Centers, means, 0, 1e-9))
}

func TestClusterInvariants(t *testing.T) {
	m, x := trained(t, 6, 2)
	codes, err := m.Encode(x)
	require.NoError(t, err)

	c, err := pca.Cluster(codes, 3)
	require.NoError(t, err)
	require.Equal(t, [2]int{3, 2}, [2]int{c.Centers.Rows(), c.Centers.Cols()})
	require.Len(t, c.Labels, codes.Rows())

	total := 0
	for _, s := range c.Sizes {
		total += s
	}
	require.Equal(t, codes.Rows(), total)

	for i := 1; i < len(c.Sizes); i++ {
		require.GreaterOrEqual(t, c.Sizes[i-1], c.Sizes[i], "clusters are numbered by population")
	}

	// Non-empty centers are the means of their members.
	sums := make([][]float64, 3)
	for i := range sums {
		sums[i] = make([]float64, 2)
	}
	for i, row := range codes.RawRows() {
		for j, v := range row {
			sums[c.Labels[i]][j] += v
		}
	}
	centers := c.Centers.RawRows()
	for l, s := range sums {
		if c.Sizes[l] == 0 {
			continue
		}
		for j := range s {
			require.InDelta(t, s[j]/float64(c.Sizes[l]), centers[l][j], 1e-9)
		}
	}
}

func TestClusterRejectsBadCounts(t *testing.T) {
	codes := randomDense(t, 4, 2, 32)
	_, err := pca.Cluster(codes, 0)
	require.ErrorIs(t, err, pca.ErrInvalidClusters)
	_, err = pca.Cluster(codes, 5)
	require.ErrorIs(t, err, pca.ErrInvalidClusters)
	_, err = pca.Cluster(nil, 1)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}
