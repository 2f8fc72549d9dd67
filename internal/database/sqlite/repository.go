package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ClementLG/UrlShortener/internal/database"
	"github.com/ClementLG/UrlShortener/internal/models"
	"github.com/jmoiron/sqlx"
)

// timeLayout is the fractional-seconds format used for persisted timestamps.
// The width is fixed so that stored values sort lexicographically in time
// order and round-trip exactly through Format and Parse.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

type urlRecord struct {
	ID          int64         `db:"id"`
	ShortCode   string        `db:"short_code"`
	OriginalURL string        `db:"original_url"`
	Clicks      int64         `db:"clicks"`
	UsesLimit   sql.NullInt64 `db:"uses_limit"`
	CreatedAt   string        `db:"created_at"`
	ExpiresAt   string        `db:"expires_at"`
}

func (r *urlRecord) ToURL() (*models.URL, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	expiresAt, err := parseTime(r.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expires_at: %w", err)
	}

	url := &models.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		Clicks:      r.Clicks,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}

	if r.UsesLimit.Valid {
		limit := r.UsesLimit.Int64
		url.UsesLimit = &limit
	}

	return url, nil
}

// URLRepository persists shortened URLs in SQLite.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Create inserts a new URL record. It returns database.ErrShortCodeExists
// when the short code is already taken, which callers recover from by
// regenerating the code.
func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, createdAt, expiresAt time.Time, usesLimit *int64) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, clicks, uses_limit, created_at, expires_at)
		VALUES (?, ?, 0, ?, ?, ?)
		RETURNING *`

	var limit sql.NullInt64
	if usesLimit != nil {
		limit = sql.NullInt64{Int64: *usesLimit, Valid: true}
	}

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, limit, formatTime(createdAt), formatTime(expiresAt))
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	url, err := rec.ToURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// GetByShortCode retrieves a URL record without mutating it. Dead records are
// returned as-is so that statistics stay readable until the record is swept.
func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE short_code = ?`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	url, err := rec.ToURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

// ResolveAndTrack increments the click counter of a live record and returns
// its updated state. The liveness check and the increment are a single
// conditional UPDATE, so of two concurrent resolutions racing for the last
// permitted click at most one can succeed; the loser observes
// database.ErrURLExhausted.
func (r *URLRepository) ResolveAndTrack(ctx context.Context, shortCode string, now time.Time) (*models.URL, error) {
	const op = "database.sqlite.URLRepository.ResolveAndTrack"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET clicks = clicks + 1
		WHERE short_code = ?
			AND expires_at > ?
			AND (uses_limit IS NULL OR clicks < uses_limit)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, shortCode, formatTime(now))
	if err == nil {
		url, err := rec.ToURL()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return url, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: failed to resolve url record: %w", op, err)
	}

	// The conditional update matched nothing; a follow-up read tells why.
	url, err := r.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, database.ErrURLNotFound) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to classify dead url record: %w", op, err)
	}

	// Compare at the same microsecond precision the update used.
	if !now.Truncate(time.Microsecond).Before(url.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLExpired)
	}

	return nil, fmt.Errorf("%s: %w", op, database.ErrURLExhausted)
}

// Delete removes a single URL record by its short code.
func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "database.sqlite.URLRepository.Delete"

	query := `DELETE FROM urls WHERE short_code = ?`

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// DeleteExpired removes every record whose expiration date has passed and
// returns the number of deleted rows. Exhausted records without a passed
// expiration date are kept until their own expiry.
func (r *URLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "database.sqlite.URLRepository.DeleteExpired"

	query := `DELETE FROM urls WHERE expires_at <= ?`

	res, err := r.db.ExecContext(ctx, query, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete expired url records: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return rows, nil
}
