// Package pcimg compresses and reconstructs images with principal component
// analysis, from the dense matrix primitives up to a command-line tool.
//
// What is pcimg?
//
//	A small, thread-safe linear-algebra and PCA engine that brings together:
//		• Dense matrices: row-major float64 storage, arithmetic, statistics
//		• Parallel execution: row-range splitting over a bounded worker pool
//		• Decompositions: Gram-Schmidt and Householder QR
//		• Eigen-solvers: QR iteration, one-sided Jacobi, gonum reference
//		• PCA: fit, encode, decode, explained variance, k-means over codes
//		• Model storage: memory, file (mmap + fsnotify), Redis, LRU cache
//
// Everything is organized under these subpackages:
//
//	matrix/    Dense type, element-wise and linear-algebra ops, binary codec
//	parallel/  Executor that splits row ranges across goroutines
//	qr/        modified Gram-Schmidt and Householder QR (Q·R = A)
//	eigen/     symmetric eigen-solvers behind one Solver interface
//	pca/       Model, its binary encoding, Repository and Cluster
//	store/     named blob stores used by pca.Repository
//	sample/    image and CSV conversion into sample rows
//	metrics/   Prometheus collectors shared by the packages above
//	cmd/pcimg  the fit/encode/decode/cluster/info/list/delete CLI
//
// Quick example:
//
//	x, _ := sample.ReadCSV(f, sample.CSVOptions{SkipHeader: true})
//	m, _ := pca.New(x.Cols())
//	_ = m.Fit(x, 40)
//	codes, _ := m.Encode(x)
//	recon, _ := m.Decode(codes)
//
//	go get github.com/katalvlaran/pcimg
package pcimg
