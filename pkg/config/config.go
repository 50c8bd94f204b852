package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the harmonad daemon configuration
type Config struct {
	Server   ServerConfig   `env:", prefix=SERVER_"`
	Sensor   SensorConfig   `env:", prefix=SENSOR_"`
	Debounce DebounceConfig `env:", prefix=DEBOUNCE_"`
	Chain    ChainConfig    `env:", prefix=CHAIN_"`
	Routing  RoutingConfig  `env:", prefix=ROUTING_"`
	Wallet   WalletConfig   `env:", prefix=WALLET_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	NATS     NATSConfig     `env:", prefix=NATS_"`
	InfluxDB InfluxConfig   `env:", prefix=INFLUXDB_"`
	Queue    QueueConfig    `env:", prefix=QUEUE_"`
	Features FeaturesConfig `env:", prefix=FEATURES_"`
	Logging  LoggingConfig  `env:", prefix=LOG_"`
}

// ServerConfig holds the status API server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
	CORSEnabled  bool          `env:"CORS_ENABLED, default=true"`
}

// SensorConfig holds the lid-angle bridge connection configuration
type SensorConfig struct {
	URL                  string        `env:"URL, default=ws://localhost:8765"`
	ReconnectDelay       time.Duration `env:"RECONNECT_DELAY, default=1s"`
	MaxReconnectDelay    time.Duration `env:"MAX_RECONNECT_DELAY, default=30s"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS, default=0"` // 0 = unlimited
	ReadTimeout          time.Duration `env:"READ_TIMEOUT, default=60s"`
}

// DebounceConfig holds the stability debouncer configuration
type DebounceConfig struct {
	Window time.Duration `env:"WINDOW, default=3s"`
}

// ChainConfig holds Monad testnet parameters
type ChainConfig struct {
	ID              int64  `env:"ID, default=10143"`
	Name            string `env:"NAME, default=Monad Testnet"`
	RPCURL          string `env:"RPC_URL, default=https://testnet-rpc.monad.xyz"`
	ExplorerURL     string `env:"EXPLORER_URL, default=https://testnet.monadexplorer.com"`
	NativeSymbol    string `env:"NATIVE_SYMBOL, default=MON"`
	AllowanceHolder string `env:"ALLOWANCE_HOLDER, default=0x0000000000001fF3684f28c67538d4D072C22734"`
}

// RoutingConfig holds swap-routing API configuration
type RoutingConfig struct {
	BaseURL     string        `env:"BASE_URL, default=https://api.0x.org"`
	APIKey      string        `env:"API_KEY"`
	Timeout     time.Duration `env:"TIMEOUT, default=12s"`
	SlippageBps int           `env:"SLIPPAGE_BPS, default=100"`
	// SellAmount is the per-swap native amount in wei (0.01 MON).
	SellAmount string `env:"SELL_AMOUNT, default=10000000000000000"`
}

// WalletConfig holds signing-key configuration
type WalletConfig struct {
	PrivateKey string `env:"PRIVATE_KEY"`
	// MinNativeBalance is the grant-time balance floor in wei (0.1 MON
	// for minimum swap plus gas headroom).
	MinNativeBalance string `env:"MIN_NATIVE_BALANCE, default=100000000000000000"`
}

// RedisConfig holds the persistence backend configuration
type RedisConfig struct {
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
}

// InfluxConfig holds angle telemetry storage configuration
type InfluxConfig struct {
	URL     string        `env:"URL, default=http://localhost:8086"`
	Token   string        `env:"TOKEN"`
	Org     string        `env:"ORG, default=harmonad"`
	Bucket  string        `env:"BUCKET, default=lid_angle"`
	Timeout time.Duration `env:"TIMEOUT, default=10s"`
}

// QueueConfig holds swap request queue tuning
type QueueConfig struct {
	// MinSpacing is the floor between consecutive executions per user, so
	// the quote API is not hammered and a prior submission can settle.
	MinSpacing time.Duration `env:"MIN_SPACING, default=1s"`
	// RetainTerminal is how long completed/failed entries stay visible.
	RetainTerminal time.Duration `env:"RETAIN_TERMINAL, default=10s"`
	// Cooldown is the duplicate-suppression window around one trigger.
	Cooldown time.Duration `env:"COOLDOWN, default=5s"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	EventBusEnabled  bool          `env:"EVENT_BUS_ENABLED, default=false"`
	TelemetryEnabled bool          `env:"TELEMETRY_ENABLED, default=false"`
	HistoryLimit     int           `env:"HISTORY_LIMIT, default=50"`
	AuthValidity     time.Duration `env:"AUTH_VALIDITY, default=24h"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Sensor.URL == "" {
		return fmt.Errorf("sensor URL is required")
	}
	if c.Debounce.Window <= 0 {
		return fmt.Errorf("debounce window must be positive: %s", c.Debounce.Window)
	}
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain RPC URL is required")
	}
	if c.Routing.BaseURL == "" {
		return fmt.Errorf("routing API base URL is required")
	}
	if c.Queue.MinSpacing < 0 {
		return fmt.Errorf("queue min spacing must not be negative: %s", c.Queue.MinSpacing)
	}
	return nil
}

// Addr returns the host:port Redis dial address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns the API server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
