// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const backendRedis = "redis"

const (
	defaultPrefix               = "pcimg"
	defaultCompressionThreshold = 1024 // Compress blobs larger than 1KB
	defaultMaxRetries           = 3
	defaultPoolSize             = 10
	defaultMinIdleConns         = 5
)

// Payload tags prefixed to every stored value.
const (
	tagRaw  byte = 0
	tagGzip byte = 1
)

var (
	// ErrCompression wraps gzip failures on Put.
	ErrCompression = errors.New("store: compression failed")

	// ErrDecompression wraps gzip failures and unknown payload tags on Get.
	ErrDecompression = errors.New("store: decompression failed")
)

// RedisConfig configures the Redis backend. Zero values take defaults.
type RedisConfig struct {
	Host                 string
	Port                 string
	Password             string
	DB                   int
	Prefix               string
	PoolSize             int
	MinIdleConns         int
	MaxRetries           int
	CompressionThreshold int
}

// Redis stores each blob under <prefix>:model:<name> and indexes names in
// the set <prefix>:models. Writes and deletes update both in one MULTI/EXEC.
type Redis struct {
	client *redis.Client
	config RedisConfig
}

// NewRedis connects to the configured server and pings it.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.MinIdleConns <= 0 {
		cfg.MinIdleConns = defaultMinIdleConns
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.CompressionThreshold <= 0 {
		cfg.CompressionThreshold = defaultCompressionThreshold
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("store: redis host cannot be empty")
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("store: redis port cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Host + ":" + cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: failed to connect to Redis: %w", err)
	}
	log.Debug().Str("addr", cfg.Host+":"+cfg.Port).Str("prefix", cfg.Prefix).Msg("store: redis connected")

	return &Redis{client: client, config: cfg}, nil
}

func (r *Redis) key(name string) string { return r.config.Prefix + ":model:" + name }
func (r *Redis) index() string          { return r.config.Prefix + ":models" }

// Put stores blob under name, gzip-compressed when larger than the threshold.
func (r *Redis) Put(ctx context.Context, name string, blob []byte) (err error) {
	defer func(start time.Time) { observe(backendRedis, opPut, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	payload, err := r.encode(blob)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(name), payload, 0)
		pipe.SAdd(ctx, r.index(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: redis put %q: %w", name, err)
	}

	return nil
}

// Get returns the blob stored under name.
func (r *Redis) Get(ctx context.Context, name string) (blob []byte, err error) {
	defer func(start time.Time) { observe(backendRedis, opGet, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get %q: %w", name, err)
	}

	return decode(data)
}

// List returns the indexed names in ascending order.
func (r *Redis) List(ctx context.Context) (names []string, err error) {
	defer func(start time.Time) { observe(backendRedis, opList, start, err) }(time.Now())
	names, err = r.client.SMembers(ctx, r.index()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis list: %w", err)
	}
	sort.Strings(names)

	return names, nil
}

// Delete removes the blob and its index entry.
func (r *Redis) Delete(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { observe(backendRedis, opDelete, start, err) }(time.Now())
	if err = ValidateName(name); err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(name))
		pipe.SRem(ctx, r.index(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: redis delete %q: %w", name, err)
	}

	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) encode(blob []byte) ([]byte, error) {
	if len(blob) <= r.config.CompressionThreshold {
		return append([]byte{tagRaw}, blob...), nil
	}
	compressed, err := compress(blob)
	if err != nil {
		return nil, err
	}
	if len(compressed) >= len(blob) {
		return append([]byte{tagRaw}, blob...), nil
	}

	return append([]byte{tagGzip}, compressed...), nil
}

func decode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecompression)
	}
	switch payload[0] {
	case tagRaw:
		return clone(payload[1:]), nil
	case tagGzip:
		return decompress(payload[1:])
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrDecompression, payload[0])
	}
}

// compress compresses data using gzip
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}

	return buf.Bytes(), nil
}

// decompress decompresses gzipped data
func decompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer gz.Close()

	decompressed, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}

	return decompressed, nil
}
