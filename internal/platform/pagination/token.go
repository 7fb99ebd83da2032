package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits page_size.
	DefaultPageSize = 20
	// MaxPageSize caps the supported page_size to prevent unbounded queries.
	MaxPageSize = 100
)

// ErrInvalidPageToken marks tokens that cannot be decoded back into a cursor.
var ErrInvalidPageToken = errors.New("pagination: invalid page token")

// ClampPageSize normalises a requested page size into the supported range.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// EncodeToken serialises a (timestamp, document id) list position into a
// base64 URL-safe page token. Listings order by createdAt descending with the
// document id as tie breaker, so the pair identifies an exact resume point.
func EncodeToken(at time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", at.UTC().UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeToken parses the page token produced by EncodeToken.
func DecodeToken(token string) (time.Time, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, "", ErrInvalidPageToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", ErrInvalidPageToken
	}
	var nanos int64
	if _, err := fmt.Sscanf(parts[0], "%d", &nanos); err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}
