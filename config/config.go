package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Hash     HashConfig     `mapstructure:"hash"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// HashConfig tunes the Argon2id password hashing cost.
type HashConfig struct {
	Time      uint32 `mapstructure:"time"`
	MemoryKiB uint32 `mapstructure:"memory_kib"`
	Threads   uint8  `mapstructure:"threads"`
}

// ChainConfig configures the on-chain deposit verifier.
type ChainConfig struct {
	RPCEndpoint      string `mapstructure:"rpc_endpoint"`
	TokenAddress     string `mapstructure:"token_address"`
	TreasuryAddress  string `mapstructure:"treasury_address"`
	TokenDecimals    int32  `mapstructure:"token_decimals"`
	MinConfirmations uint64 `mapstructure:"min_confirmations"`
	// MinDeposit is the smallest creditable deposit in whole deposit-token
	// units, as a decimal string.
	MinDeposit string `mapstructure:"min_deposit"`
}

// MinDepositAmount parses MinDeposit, returning zero on garbage.
func (c ChainConfig) MinDepositAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.MinDeposit)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RatesConfig holds the fixed token conversion rates.
type RatesConfig struct {
	// FiatTokenCost is the mobile-money price of one token in minor units.
	FiatTokenCost int64 `mapstructure:"fiat_token_cost"`
	// CardTokenCost is the card price of one token in the currency's minor units.
	CardTokenCost int64 `mapstructure:"card_token_cost"`
	// DepositFiatRate is the fiat value of one deposit-token unit (decimal string).
	DepositFiatRate string `mapstructure:"deposit_fiat_rate"`
	// DepositTokenCost is the fiat price of one token on the crypto path
	// (decimal string).
	DepositTokenCost string `mapstructure:"deposit_token_cost"`
}

// WebhookConfig configures inbound card-payment webhook verification.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
	// Tolerance bounds the signature timestamp age.
	Tolerance time.Duration `mapstructure:"tolerance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: RTL_ (Ride Token Ledger).
// Nested keys use underscore: RTL_DATABASE_HOST, RTL_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ride_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "ride-token-ledger")
	v.SetDefault("hash.time", 1)
	v.SetDefault("hash.memory_kib", 65536)
	v.SetDefault("hash.threads", 4)
	v.SetDefault("chain.rpc_endpoint", "")
	v.SetDefault("chain.token_address", "")
	v.SetDefault("chain.treasury_address", "")
	v.SetDefault("chain.token_decimals", 18)
	v.SetDefault("chain.min_confirmations", 3)
	v.SetDefault("chain.min_deposit", "10")
	v.SetDefault("rates.fiat_token_cost", 10)
	v.SetDefault("rates.card_token_cost", 100)
	v.SetDefault("rates.deposit_fiat_rate", "65.5957")
	v.SetDefault("rates.deposit_token_cost", "20")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.tolerance", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: RTL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("RTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// DepositFiatRateAmount parses DepositFiatRate, returning zero on garbage.
func (c RatesConfig) DepositFiatRateAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.DepositFiatRate)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DepositTokenCostAmount parses DepositTokenCost, returning zero on garbage.
func (c RatesConfig) DepositTokenCostAmount() decimal.Decimal {
	d, err := decimal.NewFromString(c.DepositTokenCost)
	if err != nil {
		return decimal.Zero
	}
	return d
}
