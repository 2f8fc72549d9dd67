package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/ClementLG/UrlShortener/internal/database"
	"github.com/ClementLG/UrlShortener/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrInvalidURL is returned when the submitted URL is not a well-formed
	// absolute URL with a plausible domain name.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidUsesLimit is returned when the submitted uses limit is not a
	// positive integer.
	ErrInvalidUsesLimit = errors.New("invalid uses limit")
	// ErrMaxRetriesExceeded is returned when the maximum number of retries for
	// generating a short code is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")
)

const (
	defaultShortCodeLength = 6
	defaultAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	defaultSweepChance     = 0.1

	// maxRetries bounds the collision-retry loop during code assignment. With
	// a 62-character alphabet the chance of reaching it is negligible, but an
	// unbounded loop is an availability hazard.
	maxRetries = 10
)

func defaultDurations() map[string]time.Duration {
	return map[string]time.Duration{
		"24h": 24 * time.Hour,
		"48h": 48 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
}

// URLRepository defines the interface for working with URLs at the business
// logic layer.
type URLRepository interface {
	// Create inserts a new shortened URL into the repository.
	// Returns database.ErrShortCodeExists if the short code is already taken.
	Create(ctx context.Context, shortCode, originalURL string, createdAt, expiresAt time.Time, usesLimit *int64) (*models.URL, error)

	// GetByShortCode retrieves a URL by its short code without mutating it.
	GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error)

	// ResolveAndTrack atomically checks liveness and increments the click
	// counter of a URL. Dead records yield database.ErrURLExpired or
	// database.ErrURLExhausted.
	ResolveAndTrack(ctx context.Context, shortCode string, now time.Time) (*models.URL, error)

	// Delete removes a URL by its short code.
	Delete(ctx context.Context, shortCode string) error

	// DeleteExpired removes all URLs whose expiration date has passed and
	// returns the number of removed records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Options carries the tunables of a URLService. Zero values fall back to the
// defaults used by the original deployment.
type Options struct {
	ShortCodeLength int
	Alphabet        string
	Durations       map[string]time.Duration
	SweepChance     float64
}

// URLService owns the business rules of the short-code lifecycle: input
// validation, code assignment, expiry computation, and lazy reclamation of
// dead records.
type URLService struct {
	repo   URLRepository
	logger *slog.Logger

	shortCodeLength int
	alphabet        string
	durations       map[string]time.Duration
	defaultDuration time.Duration
	sweepChance     float64

	now       func() time.Time
	randFloat func() float64
}

// NewURLService creates a new instance of URLService with the provided
// repository, logger, and options.
func NewURLService(repo URLRepository, logger *slog.Logger, opts Options) *URLService {
	if opts.ShortCodeLength <= 0 {
		opts.ShortCodeLength = defaultShortCodeLength
	}
	if opts.Alphabet == "" {
		opts.Alphabet = defaultAlphabet
	}
	if len(opts.Durations) == 0 {
		opts.Durations = defaultDurations()
	}
	if opts.SweepChance <= 0 {
		opts.SweepChance = defaultSweepChance
	}

	svc := &URLService{
		repo:            repo,
		logger:          logger,
		shortCodeLength: opts.ShortCodeLength,
		alphabet:        opts.Alphabet,
		durations:       opts.Durations,
		sweepChance:     opts.SweepChance,
		now:             time.Now,
		randFloat:       rand.Float64,
	}

	// Unrecognized duration tags fall back to the shortest supported window,
	// never the longest.
	for _, d := range svc.durations {
		if svc.defaultDuration == 0 || d < svc.defaultDuration {
			svc.defaultDuration = d
		}
	}

	return svc
}

func (s *URLService) durationFor(tag string) time.Duration {
	if d, ok := s.durations[tag]; ok {
		return d
	}

	return s.defaultDuration
}

// ShortenURL validates the input, assigns a unique short code, and stores the
// URL with its expiration date and optional usage limit. Input without a
// scheme is normalized with an "https://" prefix before validation. The
// usesLimit string, when non-empty, must parse as a positive integer.
func (s *URLService) ShortenURL(ctx context.Context, rawURL, durationTag, usesLimit string) (*models.URL, error) {
	const op = "service.URLService.ShortenURL"

	originalURL := normalizeURL(rawURL)
	if !isValidURL(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	var limit *int64
	if usesLimit != "" {
		n, err := strconv.ParseInt(usesLimit, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsesLimit)
		}
		limit = &n
	}

	now := s.now()
	expiresAt := now.Add(s.durationFor(durationTag))

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.Generate(s.alphabet, s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Create(ctx, shortCode, originalURL, now, expiresAt, limit)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		s.maybeSweep(ctx, now)

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// maybeSweep amortizes the cost of bulk cleanup across creation calls instead
// of running a background timer. Staleness only wastes storage, so sweep
// failures are logged and swallowed.
func (s *URLService) maybeSweep(ctx context.Context, now time.Time) {
	if s.randFloat() >= s.sweepChance {
		return
	}

	count, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("failed to sweep expired urls", slog.Any("err", err))
		return
	}

	if count > 0 {
		s.logger.Info("swept expired urls", slog.Int64("count", count))
	}
}

// ResolveShortCode resolves a short code into its target URL, counting the
// access. A code whose record turned out to be expired or exhausted is
// deleted on the spot so the dead record is not recomputed on every access.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.repo.ResolveAndTrack(ctx, shortCode, s.now())
	if err != nil {
		if errors.Is(err, database.ErrURLExpired) || errors.Is(err, database.ErrURLExhausted) {
			if delErr := s.repo.Delete(ctx, shortCode); delErr != nil && !errors.Is(delErr, database.ErrURLNotFound) {
				s.logger.Warn("failed to delete dead url",
					slog.String("short_code", shortCode), slog.Any("err", delErr))
			}
		}

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url, nil
}

// GetURLStats retrieves the statistics of the URL associated with the
// provided short code. It performs no mutation and no liveness filtering, so
// stats of an already-dead record stay readable until the record is swept.
func (s *URLService) GetURLStats(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "service.URLService.GetURLStats"

	url, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}
