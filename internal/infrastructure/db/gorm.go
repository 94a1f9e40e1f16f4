package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coop-ledger/internal/domain/ledger"
	"coop-ledger/internal/domain/loan"
	"coop-ledger/internal/domain/member"
	"coop-ledger/internal/domain/savings"
	"coop-ledger/pkg/id"
)

func OpenGorm(dsn string) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn))
}

// OpenGormWithDialector opens gorm on any dialector, tunes the pool and
// pings once. Duplicate-key errors come back as gorm.ErrDuplicatedKey.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		// pinged below, after the pool is tuned
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	logrus.Info("gorm: connected")
	return db, nil
}

// Models lists every table owned by the ledger.
func Models() []any {
	return []any{
		&member.Member{},
		&member.Admin{},
		&loan.Category{},
		&loan.Loan{},
		&loan.Repayment{},
		&savings.Category{},
		&savings.Saving{},
		&ledger.Transaction{},
	}
}

// Migrate creates or updates the schema and seeds the two saving
// categories. Safe to run repeatedly.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return SeedSavingCategories(ctx, db)
}

func SeedSavingCategories(ctx context.Context, db *gorm.DB) error {
	seeds := []savings.Category{
		{Name: "Quick Savings", Type: savings.TypeQuick},
		{Name: "Cooperative Savings", Type: savings.TypeCooperative},
	}
	for _, s := range seeds {
		var existing savings.Category
		err := db.WithContext(ctx).Where("type = ?", s.Type).First(&existing).Error
		switch {
		case err == nil:
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		s.CategoryID = id.NewID32()
		if err := db.WithContext(ctx).Create(&s).Error; err != nil {
			return fmt.Errorf("seed saving category %s: %w", s.Type, err)
		}
		logrus.WithField("type", s.Type).Info("seeded saving category")
	}
	return nil
}
