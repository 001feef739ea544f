// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/smartlist/internal/api/connect"
	"github.com/osa030/smartlist/internal/app/smartplaylist"
	"github.com/osa030/smartlist/internal/infra/config"
	"github.com/osa030/smartlist/internal/infra/lastfm"
	"github.com/osa030/smartlist/internal/infra/logger"
	"github.com/osa030/smartlist/internal/infra/spotify"
)

var (
	app        = kingpin.New("smartlist-server", "smart playlist generation server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []spotify.Option
	if cfg.LastFMEnabled() {
		lastfmClient, err := lastfm.New(lastfm.Config{
			APIKey:      cfg.LastFM.APIKey,
			MinTagCount: cfg.LastFM.MinTagCount,
			MaxTags:     cfg.LastFM.MaxTags,
		})
		if err != nil {
			return fmt.Errorf("failed to create Last.fm client: %w", err)
		}
		opts = append(opts, spotify.WithGenreFallback(lastfmClient))
		zlog.Info().Msg("Last.fm genre fallback enabled")
	}

	spotifyClient, err := spotify.New(ctx, spotify.Config{
		ClientID:          cfg.Spotify.ClientID,
		ClientSecret:      cfg.Spotify.ClientSecret,
		RefreshToken:      cfg.Spotify.RefreshToken,
		Market:            cfg.Spotify.Market,
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	pipeline := smartplaylist.NewPipeline(spotifyClient, spotifyClient, cfg.Pipeline.PageSize)
	playlistService := apiconnect.NewPlaylistService(pipeline, spotifyClient)

	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlaylistServiceHandler(
		playlistService,
		connect.WithInterceptors(
			apiconnect.NewLoggingInterceptor(),
			apiconnect.NewAuthInterceptor(cfg.Server.Token),
		),
	)
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
