package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type BinanceConfig struct {
	WSURL                string  `mapstructure:"ws_url"`
	DepthStream          string  `mapstructure:"depth_stream"`
	TopN                 int     `mapstructure:"top_n"`
	PingIntervalSec      float64 `mapstructure:"ping_interval_sec"`
	PingTimeoutSec       float64 `mapstructure:"ping_timeout_sec"`
	ReconnectMinDelaySec float64 `mapstructure:"reconnect_min_delay_sec"`
	ReconnectMaxDelaySec float64 `mapstructure:"reconnect_max_delay_sec"`
	ReconnectBackoff     float64 `mapstructure:"reconnect_backoff"`
	ReconnectJitter      float64 `mapstructure:"reconnect_jitter"`
	SubscribeBatchSize   int     `mapstructure:"subscribe_batch_size"`
}

type GatewayConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type MetricsConfig struct {
	VolumeMode string `mapstructure:"volume_mode"`
}

// TriggerRule is one alert rule as written in the config file. Validation of
// operators and emit modes happens when the trigger engine is built.
type TriggerRule struct {
	Name        string  `mapstructure:"name"`
	Metric      string  `mapstructure:"metric"`
	Op          string  `mapstructure:"op"`
	Value       float64 `mapstructure:"value"`
	CooldownSec float64 `mapstructure:"cooldown_sec"`
	Emit        string  `mapstructure:"emit"`
}

type SinkConfig struct {
	Type       string `mapstructure:"type"`
	LogMetrics bool   `mapstructure:"log_metrics"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type Config struct {
	Pairs    []string       `mapstructure:"pairs"`
	LogLevel string         `mapstructure:"log_level"`
	Binance  BinanceConfig  `mapstructure:"binance"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Triggers []TriggerRule  `mapstructure:"triggers"`
	Sinks    []SinkConfig   `mapstructure:"sinks"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	NATS     NATSConfig     `mapstructure:"nats"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("binance.ws_url", "wss://stream.binance.com:9443/stream")
	v.SetDefault("binance.depth_stream", "depth10@100ms")
	v.SetDefault("binance.top_n", 10)
	v.SetDefault("binance.ping_interval_sec", 20)
	v.SetDefault("binance.ping_timeout_sec", 20)
	v.SetDefault("binance.reconnect_min_delay_sec", 0.5)
	v.SetDefault("binance.reconnect_max_delay_sec", 15)
	v.SetDefault("binance.reconnect_backoff", 1.7)
	v.SetDefault("binance.reconnect_jitter", 0.25)
	v.SetDefault("binance.subscribe_batch_size", 50)
	v.SetDefault("gateway.queue_size", 5000)
	v.SetDefault("metrics.volume_mode", "qty")
	v.SetDefault("http.port", "8080")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	for i, p := range cfg.Pairs {
		cfg.Pairs[i] = strings.ToUpper(strings.TrimSpace(p))
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("config: pairs list is empty")
	}
	if c.Binance.TopN <= 0 {
		return fmt.Errorf("config: binance.top_n must be positive")
	}
	if c.Gateway.QueueSize <= 0 {
		return fmt.Errorf("config: gateway.queue_size must be positive")
	}
	if c.Binance.ReconnectBackoff < 1 {
		return fmt.Errorf("config: binance.reconnect_backoff must be >= 1")
	}
	if c.Binance.ReconnectJitter < 0 || c.Binance.ReconnectJitter >= 1 {
		return fmt.Errorf("config: binance.reconnect_jitter must be in [0, 1)")
	}
	return nil
}
