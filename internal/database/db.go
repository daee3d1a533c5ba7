package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Connect opens the MySQL connection, waiting for the database to come up.
func Connect(dsn, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is not configured")
	}

	var (
		db  *gorm.DB
		err error
	)

	// Retry while the database container is still starting
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(gormLogLevel(logLevel)),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Warn("failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("maxAttempts", connectAttempts),
			zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database after %d attempts: %w", connectAttempts, err)
	}

	log.Info("connected to MySQL")
	return db, nil
}

// Migrate syncs the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Report{},
		&models.ReportItem{},
		&models.ReportExpenditure{},
		&models.Debt{},
		&models.PaymentRecord{},
		&models.Expenditure{},
	)
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// Store is the MySQL implementation of store.Store.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Products() store.ProductStore         { return productRepo{s.db} }
func (s *Store) Carts() store.CartStore               { return cartRepo{s.db} }
func (s *Store) Reports() store.ReportStore           { return reportRepo{s.db} }
func (s *Store) Debts() store.DebtStore               { return debtRepo{s.db} }
func (s *Store) Expenditures() store.ExpenditureStore { return expenditureRepo{s.db} }
func (s *Store) Users() store.UserStore               { return userRepo{s.db} }

// Transact runs fn inside one database transaction. Nested calls become savepoints.
func (s *Store) Transact(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

var _ store.Store = (*Store)(nil)

// translate maps GORM errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

func exists(db *gorm.DB, model any, id string) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
