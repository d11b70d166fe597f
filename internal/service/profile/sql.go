package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
)

// SQLStore keeps profiles in a MySQL "users" table through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenMySQL connects with dsn, migrates the users table and returns the store.
func OpenMySQL(dsn string) (*SQLStore, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore wraps an existing gorm handle and migrates the schema.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&profile.Profile{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Write upserts the row keyed by userID.
func (s *SQLStore) Write(ctx context.Context, userID string, p profile.Profile) error {
	if userID == "" {
		return ErrUserIDMissing
	}
	p.UserID = userID

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("write profile %s: %w", userID, err)
	}
	return nil
}

// Get loads the row for userID.
func (s *SQLStore) Get(ctx context.Context, userID string) (profile.Profile, error) {
	var p profile.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
