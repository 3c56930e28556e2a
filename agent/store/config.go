package store

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver       string        `split_words:"true" default:"sqlite"`
	DSN          string        `envconfig:"DSN" default:"file:pharmacy.db"`
	LockTimeout  time.Duration `split_words:"true" default:"5s"`
	MaxOpenConns int           `split_words:"true" default:"10"`
	Debug        bool          `split_words:"true" default:"false"`
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.Driver) {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported db driver=%q", contractx.ErrValidation, c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: db dsn is required", contractx.ErrValidation)
	}
	return nil
}
