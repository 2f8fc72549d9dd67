package models

import "time"

// URL represents a shortened URL and its lifecycle metadata.
type URL struct {
	// ID is the unique identifier for the shortened URL record.
	ID int64
	// ShortCode is the short code associated with the original URL.
	ShortCode string
	// OriginalURL is the original, full-length URL that the short code points to.
	OriginalURL string
	// Clicks tracks the number of times the shortened URL has been resolved.
	Clicks int64
	// UsesLimit caps the number of resolutions. A nil value means unlimited.
	UsesLimit *int64
	// CreatedAt is the timestamp indicating when the shortened URL was created.
	CreatedAt time.Time
	// ExpiresAt is the timestamp after which the shortened URL is dead.
	ExpiresAt time.Time
}

// Live reports whether the URL can still be resolved at the given time.
// A URL is live while its expiration date lies in the future and its usage
// limit, if any, has not been reached.
func (u *URL) Live(now time.Time) bool {
	if !now.Before(u.ExpiresAt) {
		return false
	}
	return u.UsesLimit == nil || u.Clicks < *u.UsesLimit
}

// RemainingUses returns the number of resolutions left before the URL is
// exhausted. The second return value is false when no usage limit is set.
func (u *URL) RemainingUses() (int64, bool) {
	if u.UsesLimit == nil {
		return 0, false
	}
	left := *u.UsesLimit - u.Clicks
	if left < 0 {
		left = 0
	}
	return left, true
}
