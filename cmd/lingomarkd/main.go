// Command lingomarkd runs the LingoMark translation relay daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/lingomark/lingomark"
	"github.com/lingomark/lingomark/anki"
	"github.com/lingomark/lingomark/auth"
	"github.com/lingomark/lingomark/cache"
	"github.com/lingomark/lingomark/config"
	"github.com/lingomark/lingomark/provider"
	"github.com/lingomark/lingomark/server"
	"github.com/lingomark/lingomark/store"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = lingomark.Version
	commit    = lingomark.GitCommit
	buildDate = lingomark.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lingomarkd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	listen := fs.String("listen", "", "Listen address (default: LINGOMARK_LISTEN or :7345)")
	dataDir := fs.String("data-dir", "", "Data directory (default: LINGOMARK_DATA_DIR)")
	exportApkg := fs.String("export-apkg", "", "Write saved records as an Anki package to this path, then exit")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", lingomark.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := store.Open(cfg.DatabasePath(), store.WithRingSize(cfg.RingSize))
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer local.Close()

	if *exportApkg != "" {
		return writePackage(ctx, local, *exportApkg, stdout)
	}

	prov := buildProvider(cfg, logger)

	translations, err := buildCache(cfg)
	if err != nil {
		return fmt.Errorf("connecting cache: %w", err)
	}

	// The hosted store only comes into play once a GoTrue session exists;
	// until then every read and write lands in the local ring.
	var keeper *auth.Keeper
	cards := lingomark.CardStore(local)
	if cfg.HostedEnabled() {
		client := auth.NewClient(auth.ClientConfig{
			BaseURL: cfg.SyncURL,
			APIKey:  cfg.SyncAnonKey,
		})
		keeper = auth.NewKeeper(client,
			auth.WithMirror(local),
			auth.WithRemember(savedBool(ctx, local, server.SettingRememberMe, cfg.RememberMe)),
			auth.WithRefreshInterval(cfg.RefreshInterval),
			auth.WithLogger(logger),
		)
		if err := keeper.Restore(ctx); err != nil {
			logger.Warn("could not restore saved session", "error", err)
		}
		keeper.Start(ctx)
		defer keeper.Stop()

		hosted := store.NewHostedStore(store.HostedConfig{
			BaseURL: cfg.SyncURL,
			APIKey:  cfg.SyncAnonKey,
			Tokens:  keeper,
			Table:   cfg.SyncTable,
		})
		cards = store.Switching(keeper, local, hosted)
	}

	relay := buildRelay(ctx, cfg, prov, translations, cards, local, logger)

	scfg := server.Config{
		Relay:          relay,
		Cards:          cards,
		Settings:       local,
		Apkg:           anki.NewExporter(deckName),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}
	if keeper != nil {
		scfg.Keeper = keeper
	}
	srv := server.New(scfg)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()
	logger.Info("listening",
		"addr", cfg.Addr(),
		"provider", prov.Name(),
		"hosted", cfg.HostedEnabled(),
	)

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}

	return nil
}

// deckName is the Anki deck the export endpoint and -export-apkg write into.
const deckName = "LingoMark"

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level()})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level(),
			TimeFormat: time.Kitchen,
		})
	}
	return slog.New(handler)
}

// buildProvider selects the translation backend. A configured provider with
// no API key degrades to the mock rather than failing startup, so the daemon
// stays usable for local testing.
func buildProvider(cfg config.Config, logger *slog.Logger) lingomark.Provider {
	var p lingomark.Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			logger.Warn("no OpenAI API key configured, using mock provider")
			p = provider.NewMockProvider()
			break
		}
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.OpenAIModel,
		})
	case config.ProviderMock:
		p = provider.NewMockProvider()
	default:
		if cfg.DeepLKey == "" {
			logger.Warn("no DeepL API key configured, using mock provider")
			p = provider.NewMockProvider()
			break
		}
		p = provider.NewDeepLProvider(provider.DeepLConfig{
			APIKey:   cfg.DeepLKey,
			Endpoint: cfg.DeepLEndpoint,
		})
	}

	if cfg.BreakerThreshold > 0 {
		bc := lingomark.DefaultBreakerConfig()
		bc.FailureThreshold = cfg.BreakerThreshold
		p = lingomark.NewCircuitBreakerProvider(p, bc)
	}
	if cfg.RetryAttempts > 0 {
		rc := lingomark.DefaultRetryConfig()
		rc.MaxRetries = cfg.RetryAttempts
		p = lingomark.NewRetryableProvider(p, rc)
	}
	if cfg.RateLimit > 0 {
		p = lingomark.NewRateLimitedProvider(p, lingomark.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit,
		})
	}
	return p
}

func buildCache(cfg config.Config) (lingomark.TranslationCache, error) {
	if cfg.RedisURL != "" {
		return cache.NewRedisCache(cache.RedisConfig{
			URL: cfg.RedisURL,
			TTL: cfg.CacheTTL,
		})
	}
	return cache.NewInMemoryCache(cfg.CacheTTL), nil
}

// buildRelay constructs the relay, preferring settings persisted from earlier
// runs over the environment defaults.
func buildRelay(ctx context.Context, cfg config.Config, prov lingomark.Provider, translations lingomark.TranslationCache, cards lingomark.CardStore, local *store.LocalStore, logger *slog.Logger) *lingomark.Relay {
	target := cfg.TargetLang
	if saved, err := local.GetSetting(ctx, server.SettingTargetLang); err == nil && lingomark.IsSupportedTarget(saved) {
		target = saved
	}

	opts := []lingomark.RelayOption{
		lingomark.WithCache(translations),
		lingomark.WithStore(cards),
		lingomark.WithLogger(logger),
	}
	if cfg.SourceLang != "" {
		opts = append(opts, lingomark.WithSourceLang(cfg.SourceLang))
	}
	relay := lingomark.NewRelay(target, prov, opts...)
	relay.SetEnabled(savedBool(ctx, local, server.SettingEnabled, cfg.Enabled))

	if cfg.WarmCache {
		if recs, err := local.List(ctx); err == nil {
			n := relay.Warm(ctx, recs)
			logger.Info("cache warmed from saved records", "entries", n)
		}
	}
	return relay
}

// savedBool reads a persisted boolean setting, falling back when the store
// has no value for it yet.
func savedBool(ctx context.Context, local *store.LocalStore, key string, fallback bool) bool {
	saved, err := local.GetSetting(ctx, key)
	if err != nil || saved == "" {
		return fallback
	}
	return saved == "true"
}

// writePackage is the -export-apkg one-shot path: dump the local records as
// an Anki package and exit without starting the server.
func writePackage(ctx context.Context, local *store.LocalStore, path string, stdout io.Writer) error {
	recs, err := local.List(ctx)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}
	if err := anki.NewExporter(deckName).ExportFile(path, recs); err != nil {
		return fmt.Errorf("writing package: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %d records to %s\n", len(recs), path)
	return nil
}
