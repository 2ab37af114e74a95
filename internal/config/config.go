package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Rates   RatesConfig   `yaml:"rates" mapstructure:"rates"`
	Markup  MarkupConfig  `yaml:"markup" mapstructure:"markup"`
	Scorer  ScorerConfig  `yaml:"scorer" mapstructure:"scorer"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. An empty driver runs fully
// in memory with the built-in fixtures.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RatesConfig holds the labor rate the rollup engine is built with.
type RatesConfig struct {
	BaseLaborRate    float64 `yaml:"base_labor_rate" mapstructure:"base_labor_rate"`
	BurdenMultiplier float64 `yaml:"burden_multiplier" mapstructure:"burden_multiplier"`
}

// MarkupConfig holds the default overhead and profit percentages used when a
// caller does not supply its own.
type MarkupConfig struct {
	OverheadPercent float64 `yaml:"overhead_percent" mapstructure:"overhead_percent"`
	ProfitPercent   float64 `yaml:"profit_percent" mapstructure:"profit_percent"`
}

// ScorerConfig tunes the win-probability scorer. Bonuses and penalties are
// whole points on the 1-99 scale.
type ScorerConfig struct {
	BaseScore int `yaml:"base_score" mapstructure:"base_score"`

	StrongClientWinRate float64 `yaml:"strong_client_win_rate" mapstructure:"strong_client_win_rate"`
	PoorClientWinRate   float64 `yaml:"poor_client_win_rate" mapstructure:"poor_client_win_rate"`
	StrongClientBonus   int     `yaml:"strong_client_bonus" mapstructure:"strong_client_bonus"`
	PoorClientPenalty   int     `yaml:"poor_client_penalty" mapstructure:"poor_client_penalty"`

	SectorMinWins int `yaml:"sector_min_wins" mapstructure:"sector_min_wins"`
	SectorBonus   int `yaml:"sector_bonus" mapstructure:"sector_bonus"`

	SweetSpotMin    float64 `yaml:"sweet_spot_min" mapstructure:"sweet_spot_min"`
	SweetSpotMax    float64 `yaml:"sweet_spot_max" mapstructure:"sweet_spot_max"`
	SweetSpotBonus  int     `yaml:"sweet_spot_bonus" mapstructure:"sweet_spot_bonus"`
	HighRiskValue   float64 `yaml:"high_risk_value" mapstructure:"high_risk_value"`
	HighRiskPenalty int     `yaml:"high_risk_penalty" mapstructure:"high_risk_penalty"`

	GreenAbove int `yaml:"green_above" mapstructure:"green_above"`
	RedBelow   int `yaml:"red_below" mapstructure:"red_below"`
}

// CatalogConfig points at an optional assembly catalog file.
type CatalogConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// NotifyConfig configures where user-input events are delivered.
type NotifyConfig struct {
	WebhookURL    string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	QueueSize     int     `yaml:"queue_size" mapstructure:"queue_size"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts   int     `yaml:"max_attempts" mapstructure:"max_attempts"`

	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PricingConfig configures the material price book.
type PricingConfig struct {
	CommodityAdderPercent float64 `yaml:"commodity_adder_percent" mapstructure:"commodity_adder_percent"`
	VendorURL             string  `yaml:"vendor_url" mapstructure:"vendor_url"`
	FTPTimeoutSecs        int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("rates.base_labor_rate", 35.00)
	v.SetDefault("rates.burden_multiplier", 1.45)
	v.SetDefault("markup.overhead_percent", 10.0)
	v.SetDefault("markup.profit_percent", 15.0)
	v.SetDefault("catalog.cache_size", 512)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.rate_per_second", 5.0)
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("notify.max_attempts", 3)
	v.SetDefault("notify.breaker_threshold", 5)
	v.SetDefault("notify.breaker_reset_secs", 30)
	v.SetDefault("pricing.ftp_timeout_secs", 30)
	v.SetDefault("scorer.base_score", 50)
	v.SetDefault("scorer.strong_client_win_rate", 0.7)
	v.SetDefault("scorer.poor_client_win_rate", 0.3)
	v.SetDefault("scorer.strong_client_bonus", 20)
	v.SetDefault("scorer.poor_client_penalty", 15)
	v.SetDefault("scorer.sector_min_wins", 2)
	v.SetDefault("scorer.sector_bonus", 15)
	v.SetDefault("scorer.sweet_spot_min", 10_000)
	v.SetDefault("scorer.sweet_spot_max", 500_000)
	v.SetDefault("scorer.sweet_spot_bonus", 10)
	v.SetDefault("scorer.high_risk_value", 2_000_000)
	v.SetDefault("scorer.high_risk_penalty", 20)
	v.SetDefault("scorer.green_above", 75)
	v.SetDefault("scorer.red_below", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "estimate",
// "history", "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "estimate", "history", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Rates.BaseLaborRate < 0 {
		errs = append(errs, "rates.base_labor_rate must be >= 0")
	}
	if c.Rates.BurdenMultiplier < 1 {
		errs = append(errs, "rates.burden_multiplier must be >= 1")
	}
	if c.Markup.OverheadPercent < 0 {
		errs = append(errs, "markup.overhead_percent must be >= 0")
	}
	if c.Markup.ProfitPercent < 0 {
		errs = append(errs, "markup.profit_percent must be >= 0")
	}

	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, "store.driver must be empty, sqlite or postgres")
	}

	if mode == "history" && c.Store.Driver == "" {
		errs = append(errs, "store.driver is required to record history")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
