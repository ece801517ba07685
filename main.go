package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bodul/recite/internal/puzzle"
	"github.com/bodul/recite/internal/segment"
)

var (
	configPath string
	cfg        *Config
)

var rootCmd = &cobra.Command{
	Use:           "recite",
	Short:         "Memorize classical texts by tracing them through character grids",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = LoadConfig(configPath); err != nil {
			return err
		}
		return setupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate <segment>",
	Short: "Print a generated board for one segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var segmentCmd = &cobra.Command{
	Use:   "segment <text>...",
	Short: "Split text into recitation segments",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSegment,
}

var (
	genSeed       int64
	genSize       int
	segmentRemote bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RECITE_CONFIG"), "path to a YAML config file")

	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 uses the configured seed)")
	generateCmd.Flags().IntVar(&genSize, "size", 0, "grid size (0 uses the configured size)")
	segmentCmd.Flags().BoolVar(&segmentRemote, "remote", false, "segment with Gemini when configured")

	rootCmd.AddCommand(serveCmd, generateCmd, segmentCmd)
}

func main() {
	// .env is optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, cleanup, err := newResolver(ctx, cfg.Gemini.Enabled())
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := LoadCorpus(cfg.CorpusPath)
	if err != nil {
		return err
	}
	gen := puzzle.NewGenerator(puzzle.NewLockedSource(cfg.seed()), cfg.puzzleOptions())
	store := NewStore(resolver, gen)
	store.SetArticles(articles)
	log.Info().Int("articles", len(articles)).Int("grid", gen.Options().Size).Msg("corpus loaded")

	if cfg.CorpusPath != "" {
		go func() {
			if err := WatchCorpus(ctx, cfg.CorpusPath, store.SetArticles); err != nil {
				log.Warn().Err(err).Msg("corpus watcher stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewServer(store, cfg.RateLimit),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end with the process context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newResolver wires the segmentation front: Gemini when asked for and
// configured, the SQLite cache when a path is set.
func newResolver(ctx context.Context, remote bool) (*segment.Resolver, func(), error) {
	size := cfg.Grid.Size
	if size <= 0 {
		size = puzzle.DefaultSize
	}
	// A segment must fit on its board.
	r := &segment.Resolver{Timeout: cfg.Gemini.Timeout, MaxRunes: size * size}
	var closers []func() error

	if remote && cfg.Gemini.Enabled() {
		gemini, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		closers = append(closers, gemini.Close)
		r.Remote = gemini
		log.Info().Str("model", cfg.Gemini.Model).Msg("gemini segmentation enabled")
	} else {
		log.Info().Msg("gemini not configured, using local segmentation")
	}

	if cfg.CachePath != "" {
		cache, err := OpenSegmentCache(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, cache.Close)
		r.Cache = cache
	}

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("close")
			}
		}
	}
	return r, cleanup, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	seed := genSeed
	if seed == 0 {
		seed = cfg.seed()
	}
	opts := cfg.puzzleOptions()
	if genSize > 0 {
		opts.Size = genSize
	}

	layout, err := puzzle.NewGenerator(puzzle.NewLockedSource(seed), opts).Generate(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderLayout(layout))
	return nil
}

func runSegment(cmd *cobra.Command, args []string) error {
	resolver, cleanup, err := newResolver(cmd.Context(), segmentRemote)
	if err != nil {
		return err
	}
	defer cleanup()

	res := resolver.Resolve(cmd.Context(), args)
	log.Info().Str("source", string(res.Source)).Int("segments", len(res.Segments)).Msg("segmented")
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(res.Segments, "\n"))
	return nil
}
