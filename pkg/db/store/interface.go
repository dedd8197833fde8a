package store

import (
	"context"
	"errors"
	"time"

	"github.com/mwantia/linkfilter/pkg/db/models"
)

// ErrNotFound is returned when a link or saved search does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a saved search name is already taken
var ErrConflict = errors.New("record already exists")

// LinkStore defines the interface for database operations
type LinkStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Shared link operations
	CreateLink(ctx context.Context, link *models.SharedLink) error
	GetLink(ctx context.Context, userID string, id uint) (*models.SharedLink, error)
	UpdateLink(ctx context.Context, link *models.SharedLink) error
	RecordVisit(ctx context.Context, userID string, id uint, at time.Time) error
	DeleteLinks(ctx context.Context, userID string, originalLinks []string) (int64, error)
	QueryLinks(ctx context.Context, query LinkQuery) (*LinkPage, error)

	// Saved search operations
	CreateSearch(ctx context.Context, search *models.SavedSearch) error
	GetSearch(ctx context.Context, userID, name string) (*models.SavedSearch, error)
	ListSearches(ctx context.Context, userID string) ([]models.SavedSearch, error)
	DeleteSearch(ctx context.Context, userID, name string) error
}
