package storage

import (
	"context"
	"time"

	"cryptids/internal/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page selects a slice of an ordered result set. Number starts at 1.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows skipped before the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// Storage defines read access to the cryptid catalog. Implementations must be
// safe for concurrent use.
type Storage interface {
	// ListCryptids returns the requested page of matching cryptids and the total match count
	ListCryptids(ctx context.Context, q Query) ([]*models.Cryptid, int, error)

	// SearchCryptids matches text case-insensitively against names, aliases and
	// short descriptions, then applies q like ListCryptids
	SearchCryptids(ctx context.Context, text string, q Query) ([]*models.Cryptid, int, error)

	// RelatedCryptids returns up to limit cryptids sharing the classification of
	// the given one, ordered by id. ErrNotFound when the cryptid does not exist.
	RelatedCryptids(ctx context.Context, id int64, limit int) ([]*models.Cryptid, error)

	// GetCryptid returns ErrNotFound when no cryptid has the given id
	GetCryptid(ctx context.Context, id int64) (*models.Cryptid, error)

	// ListImages returns images of one cryptid, or of all cryptids when cryptidID is 0
	ListImages(ctx context.Context, cryptidID int64, page Page) ([]*models.Image, int, error)

	// Classifications returns all classifications ordered by name
	Classifications(ctx context.Context) ([]*models.Classification, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend's resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, sqlite, postgres)
	Type string

	// ConnectionString is used for database backends
	ConnectionString string

	// Seed loads the bundled sample catalog into an empty backend
	Seed bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
