// SPDX-License-Identifier: MIT

package pca

import "errors"

var (
	// ErrNotTrained is returned by projections and accessors used before Fit.
	ErrNotTrained = errors.New("pca: model not trained")

	// ErrInvalidComponents reports a component count outside 1..Features.
	ErrInvalidComponents = errors.New("pca: component count out of range")

	// ErrInvalidVarianceRatio reports a FitVariance ratio outside (0, 1].
	ErrInvalidVarianceRatio = errors.New("pca: variance ratio must be in (0, 1]")

	// ErrInvalidImageShape reports an image geometry whose pixel count does not
	// divide the feature count.
	ErrInvalidImageShape = errors.New("pca: image shape does not match features")
)
