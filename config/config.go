package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, read from the environment and optional .env files.
type Config struct {
	OKX       OKXConfig       `envPrefix:"OKX_"`
	Broadcast BroadcastConfig `envPrefix:"BROADCAST_"`
	Server    ServerConfig
	Log       LogConfig `envPrefix:"LOG_"`

	SimulateDefaultQuantity decimal.Decimal `env:"SIMULATE_DEFAULT_QTY" envDefault:"1"`
	DebugMode               bool            `env:"DEBUG_MODE" envDefault:"false"`
}

type OKXConfig struct {
	URL              string        `env:"WS_URL" envDefault:"wss://ws.okx.com:8443/ws/v5/public"`
	Channel          string        `env:"CHANNEL" envDefault:"books5"`
	InstID           string        `env:"INST_ID" envDefault:"BTC-USDT"`
	ReconnectBackoff time.Duration `env:"RECONNECT_BACKOFF" envDefault:"5s"`
	PingInterval     time.Duration `env:"PING_INTERVAL" envDefault:"25s"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
	RestartDelay     time.Duration `env:"RESTART_DELAY" envDefault:"30s"`
}

type BroadcastConfig struct {
	Interval     time.Duration `env:"INTERVAL" envDefault:"250ms"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"2s"`
}

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9000"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads the given .env files (missing files are skipped, existing
// environment variables win) and parses the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.OKX.URL == "":
		return fmt.Errorf("%w: OKX_WS_URL is empty", ErrInvalidConfig)
	case c.OKX.Channel == "":
		return fmt.Errorf("%w: OKX_CHANNEL is empty", ErrInvalidConfig)
	case c.OKX.InstID == "":
		return fmt.Errorf("%w: OKX_INST_ID is empty", ErrInvalidConfig)
	case c.OKX.ReconnectBackoff <= 0:
		return fmt.Errorf("%w: OKX_RECONNECT_BACKOFF must be positive", ErrInvalidConfig)
	case c.OKX.PingInterval <= 0:
		return fmt.Errorf("%w: OKX_PING_INTERVAL must be positive", ErrInvalidConfig)
	case c.OKX.RestartDelay <= 0:
		return fmt.Errorf("%w: OKX_RESTART_DELAY must be positive", ErrInvalidConfig)
	case c.Broadcast.Interval <= 0:
		return fmt.Errorf("%w: BROADCAST_INTERVAL must be positive", ErrInvalidConfig)
	case c.Broadcast.WriteTimeout <= 0:
		return fmt.Errorf("%w: BROADCAST_WRITE_TIMEOUT must be positive", ErrInvalidConfig)
	case c.SimulateDefaultQuantity.IsNegative():
		return fmt.Errorf("%w: SIMULATE_DEFAULT_QTY must not be negative", ErrInvalidConfig)
	}
	return nil
}
