package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/linkfilter/pkg/db/migrations"
	"github.com/mwantia/linkfilter/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements LinkStore using SQLite
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed link store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs pending schema migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := migrations.NewMigrator(s.db).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.path, err)
	}
	return nil
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Shared link operations

func (s *SQLiteStore) CreateLink(ctx context.Context, link *models.SharedLink) error {
	if link.LastVisitedAt.IsZero() {
		link.LastVisitedAt = time.Now()
	}
	link.LastVisitedAt = link.LastVisitedAt.UTC()
	if !link.CreatedAt.IsZero() {
		link.CreatedAt = link.CreatedAt.UTC()
	}
	return s.db.WithContext(ctx).Create(link).Error
}

func (s *SQLiteStore) GetLink(ctx context.Context, userID string, id uint) (*models.SharedLink, error) {
	var link models.SharedLink
	err := s.db.WithContext(ctx).Where("auto_id = ? AND user_id = ?", id, userID).First(&link).Error
	if err != nil {
		return nil, notFound(err)
	}
	link.ComputeDaysNotVisit(time.Now())
	return &link, nil
}

func (s *SQLiteStore) UpdateLink(ctx context.Context, link *models.SharedLink) error {
	link.LastVisitedAt = link.LastVisitedAt.UTC()
	return s.db.WithContext(ctx).Save(link).Error
}

// RecordVisit counts one visit and moves the last visit time to at
func (s *SQLiteStore) RecordVisit(ctx context.Context, userID string, id uint, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.SharedLink{}).
		Where("auto_id = ? AND user_id = ?", id, userID).
		UpdateColumns(map[string]any{
			"visitor":         gorm.Expr("visitor + 1"),
			"last_visited_at": at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("link %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteLinks(ctx context.Context, userID string, originalLinks []string) (int64, error) {
	if len(originalLinks) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND original_link IN ?", userID, originalLinks).
		Delete(&models.SharedLink{})
	return result.RowsAffected, result.Error
}

// Saved search operations

func (s *SQLiteStore) CreateSearch(ctx context.Context, search *models.SavedSearch) error {
	err := s.db.WithContext(ctx).Create(search).Error
	if isDuplicate(err) {
		return fmt.Errorf("saved search %q: %w", search.Name, ErrConflict)
	}
	return err
}

func (s *SQLiteStore) GetSearch(ctx context.Context, userID, name string) (*models.SavedSearch, error) {
	var search models.SavedSearch
	err := s.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&search).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &search, nil
}

func (s *SQLiteStore) ListSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	var searches []models.SavedSearch
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name").Find(&searches).Error
	return searches, err
}

func (s *SQLiteStore) DeleteSearch(ctx context.Context, userID, name string) error {
	result := s.db.WithContext(ctx).
		Unscoped().
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&models.SavedSearch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("saved search %q: %w", name, ErrNotFound)
	}
	return nil
}

// isDuplicate reports a unique index violation, sqlite errors are not
// translated by gorm unless TranslateError is set
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
