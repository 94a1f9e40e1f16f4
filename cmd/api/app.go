package main

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"coop-ledger/internal/adapter/repository/mysql"
	"coop-ledger/internal/adapter/verifier"
	"coop-ledger/internal/config"
	"coop-ledger/internal/infrastructure/cache"
	"coop-ledger/internal/infrastructure/db"
	"coop-ledger/internal/infrastructure/lock"
	"coop-ledger/internal/infrastructure/logger"
	"coop-ledger/internal/usecase/bulkimport"
	loanUC "coop-ledger/internal/usecase/loan"
	"coop-ledger/internal/usecase/report"
	savingsUC "coop-ledger/internal/usecase/savings"
)

// app holds what every subcommand shares.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
}

type usecases struct {
	loans    *loanUC.Usecase
	savings  *savingsUC.Usecase
	reports  *report.Usecase
	importer *bulkimport.Processor
}

func (a *app) loadConfig(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) openDB() error {
	gdb, err := db.OpenGorm(a.cfg.MySQLDSN())
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	a.db = gdb
	return nil
}

func (a *app) openRedis() error {
	r, err := cache.OpenRedis(a.cfg.Redis())
	if err != nil {
		return err
	}
	a.redis = r
	return nil
}

func (a *app) usecases() usecases {
	u := mysql.NewGormUoW(a.db)
	otp := verifier.NewLoanOTP(mysql.NewLoanRepository(a.db))
	pin := verifier.NewMemberPIN(mysql.NewMemberRepository(a.db))
	locker := lock.NewRedisLocker(a.redis, "coop:lock:", a.cfg.ImportLockTTL)

	return usecases{
		loans:    loanUC.NewUsecase(u, otp, a.cfg.LoanPolicy()),
		savings:  savingsUC.NewUsecase(u, pin, a.cfg.SavingsPolicy()),
		reports:  report.NewUsecase(u),
		importer: bulkimport.NewProcessor(u, locker),
	}
}

func (a *app) asynqClient() *asynq.Client {
	return asynq.NewClient(a.cfg.Redis().Asynq())
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.WithError(err).Warn("close redis")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

const shutdownTimeout = 10 * time.Second
