// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/katalvlaran/pcimg/eigen"
	"github.com/katalvlaran/pcimg/parallel"
	"github.com/katalvlaran/pcimg/pca"
	"github.com/katalvlaran/pcimg/store"
)

// Store backends selectable with PCIMG_STORE.
const (
	backendMemory = "memory"
	backendFile   = "file"
	backendRedis  = "redis"
)

// Config holds CLI configuration
type Config struct {
	LogLevel  zerolog.Level
	Backend   string            // memory, file or redis
	Dir       string            // file backend root
	Redis     store.RedisConfig // redis backend
	CacheSize int               // LRU entries in front of the backend; 0 disables
	Solver    eigen.Kind
	MaxIter   int // QR iterations / Jacobi sweeps cap; 0 keeps the solver default
	Workers   int // 0 uses GOMAXPROCS
}

// DefaultConfig returns default CLI configuration
func DefaultConfig() Config {
	return Config{
		LogLevel:  zerolog.InfoLevel,
		Backend:   backendFile,
		Dir:       "models",
		Redis:     store.RedisConfig{Host: "localhost", Port: "6379"},
		CacheSize: store.DefaultCacheSize,
		Solver:    eigen.KindQR,
	}
}

// FromEnv overrides cfg with PCIMG_* variables, REDIS_* variables and LOG_LEVEL.
// Unparseable values are reported rather than ignored.
func FromEnv(cfg Config) (Config, error) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	if v := os.Getenv("PCIMG_STORE"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PCIMG_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("PCIMG_SOLVER"); v != "" {
		kind, err := eigen.ParseKind(v)
		if err != nil {
			return cfg, fmt.Errorf("PCIMG_SOLVER: %w", err)
		}
		cfg.Solver = kind
	}
	for name, dst := range map[string]*int{
		"PCIMG_WORKERS":        &cfg.Workers,
		"PCIMG_CACHE_SIZE":     &cfg.CacheSize,
		"PCIMG_EIGEN_MAX_ITER": &cfg.MaxIter,
		"REDIS_DB":             &cfg.Redis.DB,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s: invalid value %q", name, v)
		}
		*dst = n
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		cfg.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_PREFIX"); v != "" {
		cfg.Redis.Prefix = v
	}

	return cfg, nil
}

// executor returns the worker pool configured for heavy operations.
func (c Config) executor() *parallel.Executor {
	if c.Workers <= 0 {
		return parallel.Default
	}

	return parallel.New(parallel.WithWorkers(c.Workers))
}

// solverOptions returns the eigen options derived from c.
func (c Config) solverOptions(exec *parallel.Executor) []eigen.Option {
	opts := []eigen.Option{eigen.WithExecutor(exec)}
	if c.MaxIter > 0 {
		opts = append(opts, eigen.WithMaxIterations(c.MaxIter), eigen.WithMaxSweeps(c.MaxIter))
	}

	return opts
}

// app is the state shared by all subcommands.
type app struct {
	repo  *pca.Repository
	opts  []pca.Option // applied to freshly fitted models
	close func()
}

// open connects the configured backend and wraps it in a pca.Repository.
// app.close releases the store and any watcher.
func (c Config) open(ctx context.Context) (*app, error) {
	var (
		s   store.Store
		err error
	)
	ctx, cancel := context.WithCancel(ctx)
	switch c.Backend {
	case backendMemory:
		s = store.NewMemory()
	case backendRedis:
		s, err = store.NewRedis(c.Redis)
	case backendFile:
		var f *store.File
		if f, err = store.NewFile(c.Dir); err != nil {
			break
		}
		s = f
		if c.CacheSize > 0 {
			var cached *store.Cached
			if cached, err = store.NewCached(f, c.CacheSize); err != nil {
				break
			}
			changes, werr := f.Watch(ctx)
			if werr != nil {
				log.Warn().Err(werr).Msg("store watch unavailable, cache will not see external writes")
			} else {
				go cached.Follow(changes)
			}
			s = cached
		}
	default:
		err = fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	if c.CacheSize > 0 && c.Backend == backendRedis {
		if s, err = store.NewCached(s, c.CacheSize); err != nil {
			cancel()
			return nil, err
		}
	}

	exec := c.executor()
	solver, err := eigen.New(c.Solver, c.solverOptions(exec)...)
	if err != nil {
		cancel()
		_ = s.Close()
		return nil, err
	}
	opts := []pca.Option{pca.WithSolver(solver), pca.WithExecutor(exec)}
	log.Debug().Str("backend", c.Backend).Str("solver", string(c.Solver)).Int("workers", exec.Workers()).Msg("store opened")

	return &app{
		repo: pca.NewRepository(s, opts...),
		opts: opts,
		close: func() {
			cancel()
			if cerr := s.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("closing store")
			}
		},
	}, nil
}
