// Package config loads settings from the environment, optionally seeded from
// a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/transfer-ledger/internal/units"
)

type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Storage StorageConfig
	Kafka   KafkaConfig
	Ledger  LedgerConfig
	Chain   ChainConfig
	Client  ClientConfig
	Giphy   GiphyConfig
}

type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR,default=:8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT,default=60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=30s"`
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=json"` // json | console
	File       string `env:"LOG_FILE"`                // empty logs to stdout only
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB,default=100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS,default=3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS,default=28"`
	Compress   bool   `env:"LOG_COMPRESS,default=false"`
}

type StorageConfig struct {
	Driver      string `env:"STORAGE_DRIVER,default=memory"` // memory | bolt | postgres
	PostgresDSN string `env:"POSTGRES_DSN"`
	BoltPath    string `env:"BOLT_PATH,default=ledger.db"`
}

type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS"` // semicolon separated; empty publishes in-process only
	TopicPrefix string   `env:"KAFKA_TOPIC_PREFIX,default=ledger."`
}

type LedgerConfig struct {
	ContractAddress string `env:"LEDGER_CONTRACT_ADDRESS,default=0x5FbDB2315678afecb367f032d93F642f64180aa3"`
	MaxPageSize     uint64 `env:"LEDGER_MAX_PAGE_SIZE,default=500"`
}

type ChainConfig struct {
	GasPriceWei string `env:"CHAIN_GAS_PRICE_WEI,default=20000000000"`
	// Genesis lists "address=amount" pairs, amount in display units.
	Genesis []string `env:"CHAIN_GENESIS"`
}

type ClientConfig struct {
	NodeURL    string   `env:"LEDGER_NODE_URL,default=http://localhost:8080"`
	Accounts   []string `env:"CLIENT_ACCOUNTS"`
	CachePath  string   `env:"CLIENT_CACHE_PATH"`
	PageSize   uint64   `env:"CLIENT_PAGE_SIZE,default=100"`
	TimeLayout string   `env:"CLIENT_TIME_LAYOUT"`
	Timezone   string   `env:"CLIENT_TIMEZONE,default=Local"`
}

type GiphyConfig struct {
	APIKey        string  `env:"GIPHY_API_KEY"`
	BaseURL       string  `env:"GIPHY_BASE_URL,default=https://api.giphy.com/v1/gifs/search"`
	RatePerSecond float64 `env:"GIPHY_RATE_PER_SECOND,default=4"`
}

// Load reads envFile (or ./.env when empty, if present) into the process
// environment and decodes the configuration. Variables already set in the
// environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "bolt":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format)
	}

	if _, err := c.Ledger.Contract(); err != nil {
		return err
	}
	if _, err := c.Chain.GasPrice(); err != nil {
		return err
	}
	if _, err := c.Chain.Allocations(); err != nil {
		return err
	}
	return nil
}

func (l LedgerConfig) Contract() (common.Address, error) {
	if !common.IsHexAddress(l.ContractAddress) {
		return common.Address{}, fmt.Errorf("invalid LEDGER_CONTRACT_ADDRESS %q", l.ContractAddress)
	}
	return common.HexToAddress(l.ContractAddress), nil
}

func (c ChainConfig) GasPrice() (*uint256.Int, error) {
	price, err := uint256.FromDecimal(c.GasPriceWei)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_GAS_PRICE_WEI %q: %w", c.GasPriceWei, err)
	}
	return price, nil
}

// Allocation is a genesis balance.
type Allocation struct {
	Address common.Address
	Amount  *uint256.Int // base units
}

func (c ChainConfig) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0, len(c.Genesis))
	for _, entry := range c.Genesis {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, amount, ok := strings.Cut(entry, "=")
		if !ok || !common.IsHexAddress(strings.TrimSpace(addr)) {
			return nil, fmt.Errorf("invalid CHAIN_GENESIS entry %q, want address=amount", entry)
		}
		value, err := units.ParseAmount(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("invalid CHAIN_GENESIS entry %q: %w", entry, err)
		}
		out = append(out, Allocation{Address: common.HexToAddress(strings.TrimSpace(addr)), Amount: value})
	}
	return out, nil
}

func (c ClientConfig) AccountAddresses() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid CLIENT_ACCOUNTS entry %q", a)
		}
		out = append(out, common.HexToAddress(a))
	}
	return out, nil
}

func (c ClientConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLIENT_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
