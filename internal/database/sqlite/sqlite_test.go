package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClementLG/UrlShortener/internal/database"
)

func setupTestRepository(t testing.TB) *URLRepository {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return NewURLRepository(db)
}

func TestIsUniqueViolationError(t *testing.T) {
	assert.False(t, isUniqueViolationError(nil))
	assert.False(t, isUniqueViolationError(errors.New("database is locked")))
	assert.True(t, isUniqueViolationError(errors.New("constraint failed: UNIQUE constraint failed: urls.short_code (2067)")))
}

func TestURLRepository_CreateAndResolve(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	expiresAt := now.Add(24 * time.Hour)

	created, err := repo.Create(context.Background(), "abc123", "https://example.com", now, expiresAt, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123", created.ShortCode)
	assert.Equal(t, "https://example.com", created.OriginalURL)
	assert.Zero(t, created.Clicks)
	assert.Nil(t, created.UsesLimit)

	// Stored timestamps are truncated to microseconds and round-trip exactly.
	assert.Equal(t, now.Truncate(time.Microsecond), created.CreatedAt)
	assert.Equal(t, expiresAt.Truncate(time.Microsecond), created.ExpiresAt)

	url, err := repo.ResolveAndTrack(context.Background(), "abc123", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), url.Clicks)

	url, err = repo.GetByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), url.Clicks)
}

func TestURLRepository_CreateDuplicate(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	expiresAt := now.Add(24 * time.Hour)

	_, err := repo.Create(context.Background(), "abc123", "https://example.com", now, expiresAt, nil)
	require.NoError(t, err)

	url, err := repo.Create(context.Background(), "abc123", "https://other.com", now, expiresAt, nil)
	assert.Error(t, err)
	assert.ErrorIs(t, err, database.ErrShortCodeExists)
	assert.Nil(t, url)
}

func TestURLRepository_ResolveExpired(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	_, err := repo.Create(context.Background(), "abc123", "https://example.com", now.Add(-2*time.Hour), now.Add(-time.Hour), nil)
	require.NoError(t, err)

	url, err := repo.ResolveAndTrack(context.Background(), "abc123", now)
	assert.Error(t, err)
	assert.ErrorIs(t, err, database.ErrURLExpired)
	assert.Nil(t, url)

	// The failed resolution must not count.
	url, err = repo.GetByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Zero(t, url.Clicks)
}

func TestURLRepository_ResolveExhausted(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	limit := int64(2)

	_, err := repo.Create(context.Background(), "abc123", "https://example.com", now, now.Add(24*time.Hour), &limit)
	require.NoError(t, err)

	for i := 0; i < int(limit); i++ {
		url, err := repo.ResolveAndTrack(context.Background(), "abc123", now)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), url.Clicks)
	}

	url, err := repo.ResolveAndTrack(context.Background(), "abc123", now)
	assert.Error(t, err)
	assert.ErrorIs(t, err, database.ErrURLExhausted)
	assert.Nil(t, url)
}

func TestURLRepository_ResolveLastUseRace(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	limit := int64(1)

	_, err := repo.Create(context.Background(), "abc123", "https://example.com", now, now.Add(24*time.Hour), &limit)
	require.NoError(t, err)

	const workers = 8

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ResolveAndTrack(context.Background(), "abc123", now)
		}(i)
	}
	wg.Wait()

	// Of all resolutions racing for the last permitted use, exactly one wins.
	var succeeded, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, database.ErrURLExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, exhausted)

	url, err := repo.GetByShortCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), url.Clicks)
}

func TestURLRepository_DeleteRemovesRecord(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	_, err := repo.Create(context.Background(), "abc123", "https://example.com", now, now.Add(24*time.Hour), nil)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), "abc123"))

	err = repo.Delete(context.Background(), "abc123")
	assert.Error(t, err)
	assert.ErrorIs(t, err, database.ErrURLNotFound)
}

func TestURLRepository_DeleteExpiredKeepsLiveRecords(t *testing.T) {
	repo := setupTestRepository(t)

	now := time.Now().UTC()
	limit := int64(1)

	_, err := repo.Create(context.Background(), "live1", "https://example.com/1", now, now.Add(24*time.Hour), nil)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), "dead1", "https://example.com/2", now.Add(-2*time.Hour), now.Add(-time.Hour), nil)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), "dead2", "https://example.com/3", now.Add(-2*time.Hour), now.Add(-time.Minute), nil)
	require.NoError(t, err)

	// Exhausted but not yet expired records are kept until their own expiry.
	_, err = repo.Create(context.Background(), "used1", "https://example.com/4", now, now.Add(24*time.Hour), &limit)
	require.NoError(t, err)
	_, err = repo.ResolveAndTrack(context.Background(), "used1", now)
	require.NoError(t, err)

	count, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = repo.GetByShortCode(context.Background(), "live1")
	assert.NoError(t, err)
	_, err = repo.GetByShortCode(context.Background(), "used1")
	assert.NoError(t, err)

	_, err = repo.GetByShortCode(context.Background(), "dead1")
	assert.ErrorIs(t, err, database.ErrURLNotFound)
	_, err = repo.GetByShortCode(context.Background(), "dead2")
	assert.ErrorIs(t, err, database.ErrURLNotFound)
}
