// SPDX-License-Identifier: MIT

// Command pcimg fits PCA models on image datasets and uses them to compress
// and reconstruct images.
//
// Usage:
//
//	pcimg fit     -name faces -csv faces.csv [-skip-header] [-components 40 | -variance 0.95]
//	pcimg fit     -name faces -images 'faces/*.png' -width 32 -height 32 -mode gray
//	pcimg encode  -name faces -image in.png -out in.pcmx
//	pcimg decode  -name faces -in in.pcmx -out out.png [-no-mean] [-palette 3]
//	pcimg cluster -name faces -csv faces.csv -k 5
//	pcimg info    -name faces
//	pcimg list
//	pcimg delete  -name faces
//
// Configuration comes from the environment: LOG_LEVEL, PCIMG_STORE
// (file, redis or memory), PCIMG_DIR, PCIMG_SOLVER (qr, jacobi or gonum),
// PCIMG_WORKERS, PCIMG_CACHE_SIZE, PCIMG_EIGEN_MAX_ITER (cap on QR iterations
// and Jacobi sweeps) and REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB,
// REDIS_PREFIX.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// errUsage is returned for unknown subcommands and bad flags.
var errUsage = errors.New("usage")

func main() {
	cfg, err := FromEnv(DefaultConfig())
	setupLogging(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("pcimg failed")
	}
}

// setupLogging installs a console logger on the global zerolog logger.
func setupLogging(w io.Writer, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// command runs one subcommand against an open app.
type command func(ctx context.Context, a *app, args []string, out io.Writer) error

var commands = map[string]command{
	"fit":     runFit,
	"encode":  runEncode,
	"decode":  runDecode,
	"cluster": runCluster,
	"info":    runInfo,
	"list":    runList,
	"delete":  runDelete,
}

func run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: pcimg <%s> [flags]", errUsage, commandNames())
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q, want one of %s", errUsage, args[0], commandNames())
	}
	a, err := cfg.open(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd(ctx, a, args[1:], out)
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, "|")
}
