package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Alpaca    AlpacaConfig    `mapstructure:"alpaca"`
	Yahoo     YahooConfig     `mapstructure:"yahoo"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Earnings  EarningsConfig  `mapstructure:"earnings"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Workers   int             `mapstructure:"workers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
}

type AlpacaConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	KeyID     string `mapstructure:"key_id"`
	SecretKey string `mapstructure:"secret_key"`
	Feed      string `mapstructure:"feed"`
}

type YahooConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// HTTPConfig tunes the shared provider HTTP client behavior.
type HTTPConfig struct {
	RatePerSecond int `mapstructure:"rate_per_second"`
	TimeoutSec    int `mapstructure:"timeout_sec"`
	RetryCount    int `mapstructure:"retry_count"`
	RetryDelaySec int `mapstructure:"retry_delay_sec"`
}

type EarningsConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// ScreeningConfig carries the screening windows and thresholds. Defaults
// match the strategy the screener implements; see Load.
type ScreeningConfig struct {
	HorizonDays    int     `mapstructure:"horizon_days"`
	RVWindow       int     `mapstructure:"rv_window"`
	VolumeWindow   int     `mapstructure:"volume_window"`
	TradingPeriods int     `mapstructure:"trading_periods"`
	HistoryDays    int     `mapstructure:"history_days"`
	MinExpirations int     `mapstructure:"min_expirations"`
	MinAvgVolume   float64 `mapstructure:"min_avg_volume"`
	MinIVRVRatio   float64 `mapstructure:"min_iv_rv_ratio"`
	MaxTermSlope   float64 `mapstructure:"max_term_slope"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

// NotifyConfig configures the ntfy push channel for scheduled runs.
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

// DaemonConfig schedules the recurring earnings screen.
type DaemonConfig struct {
	ScheduleHour   int    `mapstructure:"schedule_hour"`
	ScheduleMinute int    `mapstructure:"schedule_minute"`
	Timezone       string `mapstructure:"timezone"`
	StateFile      string `mapstructure:"state_file"`
	RunOnStartup   bool   `mapstructure:"run_on_startup"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("alpaca.base_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca.feed", "iex")
	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("http.rate_per_second", 4)
	v.SetDefault("http.timeout_sec", 30)
	v.SetDefault("http.retry_count", 3)
	v.SetDefault("http.retry_delay_sec", 2)
	v.SetDefault("earnings.base_url", "https://www.dolthub.com/api/v1alpha1/post-no-preference/earnings/master")
	v.SetDefault("earnings.timeout_sec", 30)
	v.SetDefault("screening.horizon_days", 45)
	v.SetDefault("screening.rv_window", 30)
	v.SetDefault("screening.volume_window", 30)
	v.SetDefault("screening.trading_periods", 252)
	v.SetDefault("screening.history_days", 90)
	v.SetDefault("screening.min_expirations", 2)
	v.SetDefault("screening.min_avg_volume", 1_500_000)
	v.SetDefault("screening.min_iv_rv_ratio", 1.25)
	v.SetDefault("screening.max_term_slope", -0.00406)
	v.SetDefault("workers", 4)
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("daemon.schedule_hour", 9)
	v.SetDefault("daemon.schedule_minute", 0)
	v.SetDefault("daemon.timezone", "America/New_York")
	v.SetDefault("daemon.state_file", ".earnscan-state")
	v.SetDefault("daemon.run_on_startup", true)

	// Environment variable support
	v.SetEnvPrefix("EARNSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Alpaca publishes credentials under its own env names; honor them.
	_ = v.BindEnv("alpaca.key_id", "APCA_API_KEY_ID")
	_ = v.BindEnv("alpaca.secret_key", "APCA_API_SECRET_KEY")
	_ = v.BindEnv("notify.topic", "EARNSCAN_NTFY_TOPIC")
	_ = v.BindEnv("notify.token", "EARNSCAN_NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
