package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/escrow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "HOLDEM"

const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

var (
	ErrUnknownLedgerDriver = errors.New("config: unknown ledger driver")
	ErrMissingDSN          = errors.New("config: ledger dsn required")
)

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Escrow EscrowConfig `mapstructure:"escrow"`
	Table  TableConfig  `mapstructure:"table"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type EscrowConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

type TableConfig struct {
	MaxSeats      int           `mapstructure:"max_seats"`
	MinPlayers    int           `mapstructure:"min_players"`
	SmallBlind    int64         `mapstructure:"small_blind"`
	BigBlind      int64         `mapstructure:"big_blind"`
	MinBuyIn      int64         `mapstructure:"min_buy_in"`
	MaxBuyIn      int64         `mapstructure:"max_buy_in"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	BuyInWindow   time.Duration `mapstructure:"buy_in_window"`
	Interval      time.Duration `mapstructure:"interval"`
}

// New returns a viper instance carrying every default and reading HOLDEM_*
// environment variables, e.g. HOLDEM_TABLE_BIG_BLIND.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("ledger.driver", LedgerMemory)
	v.SetDefault("ledger.dsn", "")

	escrowOptions := escrow.NewOptions()
	v.SetDefault("escrow.max_attempts", escrowOptions.MaxAttempts)
	v.SetDefault("escrow.backoff", escrowOptions.Backoff)
	v.SetDefault("escrow.attempt_timeout", escrowOptions.AttemptTimeout)

	setting := holdemtable.NewDefaultTableSetting()
	v.SetDefault("table.max_seats", setting.MaxSeats)
	v.SetDefault("table.min_players", setting.MinPlayers)
	v.SetDefault("table.small_blind", setting.SmallBlind)
	v.SetDefault("table.big_blind", setting.BigBlind)
	v.SetDefault("table.min_buy_in", setting.MinBuyIn)
	v.SetDefault("table.max_buy_in", setting.MaxBuyIn)
	v.SetDefault("table.action_timeout", setting.ActionTimeout)
	v.SetDefault("table.buy_in_window", setting.BuyInWindow)
	v.SetDefault("table.interval", setting.Interval)
}

// Load reads the optional config file and decodes v into a Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case LedgerMemory:
	case LedgerPostgres:
		if c.Ledger.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLedgerDriver, c.Ledger.Driver)
	}

	return c.TableSetting().Validate()
}

func (c *Config) TableSetting() holdemtable.TableSetting {
	return holdemtable.TableSetting{
		MaxSeats:      c.Table.MaxSeats,
		MinPlayers:    c.Table.MinPlayers,
		SmallBlind:    c.Table.SmallBlind,
		BigBlind:      c.Table.BigBlind,
		MinBuyIn:      c.Table.MinBuyIn,
		MaxBuyIn:      c.Table.MaxBuyIn,
		ActionTimeout: c.Table.ActionTimeout,
		BuyInWindow:   c.Table.BuyInWindow,
		Interval:      c.Table.Interval,
	}
}

func (c *Config) EscrowOptions() *escrow.Options {
	return &escrow.Options{
		MaxAttempts:    c.Escrow.MaxAttempts,
		Backoff:        c.Escrow.Backoff,
		AttemptTimeout: c.Escrow.AttemptTimeout,
	}
}

// NewLogger builds the process logger. Development mode uses the console
// encoder.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
