// Package config loads server configuration.
//
// Values are resolved in increasing precedence: built-in defaults, an
// optional YAML file (--config flag or PROOFPASS_CONFIG), a .env file in the
// working directory, and finally process environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pstrings "proofpass/pkg/platform/strings"
)

// ConfigPathEnv names the environment variable holding the YAML config path.
const ConfigPathEnv = "PROOFPASS_CONFIG"

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Ledger backends.
const (
	LedgerMock = "mock"
	LedgerEVM  = "evm"
)

// Config is the full server configuration.
type Config struct {
	Server     Server      `yaml:"server"`
	Auth       Auth        `yaml:"auth"`
	Database   Database    `yaml:"database"`
	Redis      RedisConfig `yaml:"redis"`
	Audit      Audit       `yaml:"audit"`
	Issuer     Issuer      `yaml:"issuer"`
	Attendance Attendance  `yaml:"attendance"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string      `yaml:"addr"`
	Environment        Environment `yaml:"environment"`
	LogLevel           string      `yaml:"log_level"`
	RateLimitPerMinute int64       `yaml:"rate_limit_per_minute"`
}

type Auth struct {
	JWTSigningKey string        `yaml:"jwt_signing_key"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// Database selects the repository backend; an empty URL keeps everything in memory.
type Database struct {
	URL string `yaml:"url"`
}

// RedisConfig configures the shared redis client; an empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Audit configures the audit sink; without brokers events stay in memory
// (or in postgres when a database is configured).
type Audit struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Topic        string   `yaml:"topic"`
	BufferSize   int      `yaml:"buffer_size"`
}

type Issuer struct {
	Name                    string        `yaml:"name"`
	Backend                 string        `yaml:"backend"`
	RPCURL                  string        `yaml:"rpc_url"`
	ContractAddress         string        `yaml:"contract_address"`
	PrivateKey              string        `yaml:"private_key"`
	ChainID                 int64         `yaml:"chain_id"`
	Timeout                 time.Duration `yaml:"timeout"`
	BreakerFailureThreshold int           `yaml:"breaker_failure_threshold"`
	BreakerSuccessThreshold int           `yaml:"breaker_success_threshold"`
	BreakerCooldown         time.Duration `yaml:"breaker_cooldown"`
	UnassociatedWallets     []string      `yaml:"unassociated_wallets"`
}

type Attendance struct {
	DefaultStatus         string `yaml:"default_status"`
	ClearStartedAtOnClose bool   `yaml:"clear_started_at_on_close"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:               ":8080",
			Environment:        Development,
			LogLevel:           "info",
			RateLimitPerMinute: 100,
		},
		Auth: Auth{
			JWTSigningKey: "dev-secret-key-change-in-production",
			TokenTTL:      7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: Audit{
			Topic:      "proofpass.audit",
			BufferSize: 1024,
		},
		Issuer: Issuer{
			Name:                    "ProofPass",
			Backend:                 LedgerMock,
			Timeout:                 30 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerSuccessThreshold: 2,
			BreakerCooldown:         30 * time.Second,
		},
		Attendance: Attendance{
			DefaultStatus:         "CLOSED",
			ClearStartedAtOnClose: true,
		},
	}
}

// Load resolves the configuration. path may be empty, in which case
// PROOFPASS_CONFIG is consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int64) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	env := string(cfg.Server.Environment)
	str("PROOFPASS_ADDR", &cfg.Server.Addr)
	str("ENVIRONMENT", &env)
	cfg.Server.Environment = Environment(env)
	str("LOG_LEVEL", &cfg.Server.LogLevel)
	integer("RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimitPerMinute)

	str("JWT_SIGNING_KEY", &cfg.Auth.JWTSigningKey)
	dur("JWT_TTL", &cfg.Auth.TokenTTL)

	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)

	list("KAFKA_BROKERS", &cfg.Audit.KafkaBrokers)
	str("AUDIT_TOPIC", &cfg.Audit.Topic)

	str("ISSUER_NAME", &cfg.Issuer.Name)
	str("LEDGER_BACKEND", &cfg.Issuer.Backend)
	str("LEDGER_RPC_URL", &cfg.Issuer.RPCURL)
	str("LEDGER_CONTRACT_ADDRESS", &cfg.Issuer.ContractAddress)
	str("LEDGER_PRIVATE_KEY", &cfg.Issuer.PrivateKey)
	integer("LEDGER_CHAIN_ID", &cfg.Issuer.ChainID)
	dur("ISSUER_TIMEOUT", &cfg.Issuer.Timeout)
	list("LEDGER_UNASSOCIATED_WALLETS", &cfg.Issuer.UnassociatedWallets)

	str("DEFAULT_ATTENDANCE_STATUS", &cfg.Attendance.DefaultStatus)
	boolean("CLEAR_STARTED_AT_ON_CLOSE", &cfg.Attendance.ClearStartedAtOnClose)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	return pstrings.SplitList(v, ",")
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("auth.jwt_signing_key is required"))
	}
	if c.Server.Environment == Production && c.Auth.JWTSigningKey == Default().Auth.JWTSigningKey {
		errs = append(errs, errors.New("auth.jwt_signing_key must be overridden in production"))
	}
	switch strings.ToUpper(c.Attendance.DefaultStatus) {
	case "OPEN", "CLOSED":
	default:
		errs = append(errs, fmt.Errorf("attendance.default_status must be OPEN or CLOSED, got %q", c.Attendance.DefaultStatus))
	}
	switch c.Issuer.Backend {
	case LedgerMock:
	case LedgerEVM:
		if c.Issuer.RPCURL == "" || c.Issuer.ContractAddress == "" || c.Issuer.PrivateKey == "" {
			errs = append(errs, errors.New("evm ledger requires rpc_url, contract_address and private_key"))
		}
		if c.Issuer.ChainID <= 0 {
			errs = append(errs, errors.New("evm ledger requires a positive chain_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("issuer.backend must be %q or %q, got %q", LedgerMock, LedgerEVM, c.Issuer.Backend))
	}
	if c.Issuer.Timeout <= 0 {
		errs = append(errs, errors.New("issuer.timeout must be positive"))
	}
	return errors.Join(errs...)
}
