package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/ClementLG/UrlShortener/internal/api/http"
	"github.com/ClementLG/UrlShortener/internal/config"
	"github.com/ClementLG/UrlShortener/internal/database/sqlite"
	"github.com/ClementLG/UrlShortener/internal/ratelimit"
	"github.com/ClementLG/UrlShortener/internal/service"
)

// Run wires the application together and serves HTTP until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := httplog.NewLogger("url-shortener", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  cfg.Env != config.EnvProd,
	})

	db, err := sqlite.New(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("%s: failed to open database: %w", op, err)
	}
	defer db.Close()

	urlRepo := sqlite.NewURLRepository(db)
	urlSvc := service.NewURLService(urlRepo, logger.Logger, service.Options{
		ShortCodeLength: cfg.ShortCode.Length,
		Alphabet:        cfg.ShortCode.Alphabet,
		Durations:       cfg.Durations,
		SweepChance:     cfg.SweepChance,
	})

	limits, err := parseRateLimits(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc, limits),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func parseRateLimits(cfg config.RateLimit) (myhttp.RateLimits, error) {
	var limits myhttp.RateLimits
	var err error

	if limits.Default, err = ratelimit.ParseTiers(cfg.Default); err != nil {
		return limits, fmt.Errorf("failed to parse default rate limit: %w", err)
	}
	if limits.Create, err = ratelimit.ParseTiers(cfg.Create); err != nil {
		return limits, fmt.Errorf("failed to parse create rate limit: %w", err)
	}
	if limits.Redirect, err = ratelimit.ParseTiers(cfg.Redirect); err != nil {
		return limits, fmt.Errorf("failed to parse redirect rate limit: %w", err)
	}

	return limits, nil
}
