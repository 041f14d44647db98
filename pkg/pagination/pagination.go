// Package pagination implements newest-first keyset pages over (created_at, id).
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is what list endpoints accept from the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for zero or negative.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor renders a cursor safe to place in a query string.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor returns nil for an empty value.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	createdAt, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: parsedID}, nil
}

// Keyset is a validated page request.
type Keyset struct {
	limit  int
	cursor *Cursor
}

// NewKeyset validates params. A malformed cursor is the caller's fault.
func NewKeyset(params Params) (Keyset, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return Keyset{}, pkgerrors.Wrap(pkgerrors.CodeInvalidRequest, err, "invalid cursor")
	}
	return Keyset{limit: NormalizeLimit(params.Limit), cursor: cursor}, nil
}

// Limit is the page size after normalization.
func (k Keyset) Limit() int { return k.limit }

// Scope orders newest first, skips past the cursor and fetches one extra row so Trim can
// tell whether another page exists.
func (k Keyset) Scope(db *gorm.DB) *gorm.DB {
	if k.cursor != nil {
		db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", k.cursor.CreatedAt, k.cursor.CreatedAt, k.cursor.ID)
	}
	return db.Order("created_at DESC").Order("id DESC").Limit(k.limit + 1)
}

// Trim cuts rows fetched through Scope down to the page and returns the next cursor, or ""
// on the last page.
func Trim[T any](k Keyset, rows []T, key func(T) Cursor) ([]T, string) {
	if len(rows) <= k.limit {
		return rows, ""
	}
	rows = rows[:k.limit]
	return rows, EncodeCursor(key(rows[len(rows)-1]))
}
