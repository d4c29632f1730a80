package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Arena    Arena    `mapstructure:"arena"`
	Market   Market   `mapstructure:"market"`
	Judge    Judge    `mapstructure:"judge"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// AgentConfig describes one competitor. An empty URL selects the built-in
// hold-only baseline instead of a live endpoint.
type AgentConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Arena holds the competition parameters.
type Arena struct {
	Agents           []AgentConfig `mapstructure:"agents"`
	Symbols          []string      `mapstructure:"symbols"`
	StartDate        string        `mapstructure:"start_date"`
	EndDate          string        `mapstructure:"end_date"`
	DecisionInterval string        `mapstructure:"decision_interval"`
	DecisionsPerDay  int           `mapstructure:"decisions_per_day"`
	InitialBalance   float64       `mapstructure:"initial_balance"`
	FeeBps           float64       `mapstructure:"fee_bps"`
	SlippageBps      float64       `mapstructure:"slippage_bps"`
	DisclosureCycles []int         `mapstructure:"disclosure_cycles"`
	StrictReasoning  bool          `mapstructure:"strict_reasoning"`
	CachePath        string        `mapstructure:"cache_path"`
}

// Market holds the configuration for the historical data source.
type Market struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Judge holds the configuration for the reasoning-quality judge.
type Judge struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// Server holds the configuration for the report web server.
type Server struct {
	Port        int    `mapstructure:"port"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("arena.decision_interval", "4h")
	viper.SetDefault("arena.decisions_per_day", 6)
	viper.SetDefault("arena.initial_balance", 10000.0)
	viper.SetDefault("arena.fee_bps", 5.0)
	viper.SetDefault("arena.slippage_bps", 2.0)
	viper.SetDefault("market.base_url", "https://api.binance.com/api/v3")
	viper.SetDefault("market.rate_limit", 20)      // requests per second
	viper.SetDefault("market.rate_limit_burst", 5) // burst size

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
