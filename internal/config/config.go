package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"coop-ledger/internal/infrastructure/cache"
	loanUC "coop-ledger/internal/usecase/loan"
	savingsUC "coop-ledger/internal/usecase/savings"
)

type Config struct {
	AppPort string `envconfig:"APP_PORT" default:"8080"`

	MySQLHost string `envconfig:"MYSQL_HOST" default:"mysql"`
	MySQLPort string `envconfig:"MYSQL_PORT" default:"3306"`
	MySQLDB   string `envconfig:"MYSQL_DB" default:"coop_ledger"`
	MySQLUser string `envconfig:"MYSQL_USER" default:"coop"`
	MySQLPass string `envconfig:"MYSQL_PASS" default:"coop"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPoolSize int    `envconfig:"REDIS_POOL_SIZE" default:"20"`

	IdempTTLSecs int `envconfig:"IDEMPOTENCY_TTL_SECONDS" default:"300"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	MinDeposit decimal.Decimal `envconfig:"LEDGER_MIN_DEPOSIT" default:"5000"`
	OTPTTL     time.Duration   `envconfig:"LEDGER_OTP_TTL" default:"10m"`
	OTPDigits  int             `envconfig:"LEDGER_OTP_DIGITS" default:"6"`

	ImportLockTTL time.Duration `envconfig:"IMPORT_LOCK_TTL" default:"5m"`
	ImportQueue   string        `envconfig:"IMPORT_QUEUE" default:"imports"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine; the environment alone is enough
		_ = godotenv.Load(f)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if !c.MinDeposit.IsPositive() {
		return fmt.Errorf("LEDGER_MIN_DEPOSIT must be positive, got %s", c.MinDeposit)
	}
	if c.OTPDigits < 4 || c.OTPDigits > 12 {
		return fmt.Errorf("LEDGER_OTP_DIGITS must be between 4 and 12, got %d", c.OTPDigits)
	}
	if c.OTPTTL <= 0 {
		return errors.New("LEDGER_OTP_TTL must be positive")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB, PoolSize: c.RedisPoolSize}
}

func (c *Config) SavingsPolicy() savingsUC.Policy {
	return savingsUC.DefaultPolicy(c.MinDeposit)
}

func (c *Config) LoanPolicy() loanUC.Policy {
	return loanUC.Policy{OTPTTL: c.OTPTTL, OTPDigits: c.OTPDigits}
}
