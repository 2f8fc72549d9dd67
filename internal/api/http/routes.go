package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/ClementLG/UrlShortener/internal/models"
	"github.com/ClementLG/UrlShortener/internal/ratelimit"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// ShortenURL validates and stores the URL under a fresh short code.
	// The durationTag selects the expiration window and usesLimit, when
	// non-empty, caps the number of resolutions.
	ShortenURL(ctx context.Context, rawURL, durationTag, usesLimit string) (*models.URL, error)

	// ResolveShortCode retrieves the target URL for a short code, counting
	// the access. Dead codes yield database.ErrURLExpired or
	// database.ErrURLExhausted.
	ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// GetURLStats retrieves the statistics of the URL associated with the
	// short code, without counting an access.
	GetURLStats(ctx context.Context, shortCode string) (*models.URL, error)
}

// RateLimits carries the parsed per-route rate-limit policies. Routes without
// a dedicated policy fall under Default.
type RateLimits struct {
	Default  []ratelimit.Tier
	Create   []ratelimit.Tier
	Redirect []ratelimit.Tier
}

// getValidate initializes a new validator instance for validating incoming
// request payloads. It customizes tag name extraction from struct fields to
// match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and
// middleware configured. Each route group carries its own rate limiter, keyed
// by client identity.
func NewRouter(logger *httplog.Logger, urlSvc URLService, limits RateLimits) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	validate := getValidate()

	defaultLimit := rateLimit(ratelimit.New(limits.Default))
	createLimit := rateLimit(ratelimit.New(limits.Create))
	redirectLimit := rateLimit(ratelimit.New(limits.Redirect))

	r.With(defaultLimit).Get("/", handleIndex)
	r.With(defaultLimit).Get("/stats/{shortCode}", handleGetURLStats(urlSvc))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*"},
			AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           84600,
		}))

		r.With(createLimit).Post("/urls", handleShortenURL(urlSvc, validate))
	})

	r.With(redirectLimit).Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}
