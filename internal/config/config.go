// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the optional persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for scenario discovery.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EngineConfig holds the matching, revenue, and ranking tunables.
type EngineConfig struct {
	MinMatchThreshold           float64 `yaml:"min_match_threshold" mapstructure:"min_match_threshold"`
	Strategy                    string  `yaml:"strategy" mapstructure:"strategy"`
	MatchWeight                 float64 `yaml:"match_weight" mapstructure:"match_weight"`
	RevenueWeight               float64 `yaml:"revenue_weight" mapstructure:"revenue_weight"`
	Limit                       int     `yaml:"limit" mapstructure:"limit"`
	RevenueNormalizationCeiling float64 `yaml:"revenue_normalization_ceiling" mapstructure:"revenue_normalization_ceiling"`
	HighValueThreshold          float64 `yaml:"high_value_threshold" mapstructure:"high_value_threshold"`
	QuickWinScoreThreshold      float64 `yaml:"quick_win_score_threshold" mapstructure:"quick_win_score_threshold"`
	QuickWinTimeThresholdHours  float64 `yaml:"quick_win_time_threshold_hours" mapstructure:"quick_win_time_threshold_hours"`
	Workers                     int     `yaml:"workers" mapstructure:"workers"`
}

// SynthesisConfig holds the multi-source scenario synthesis tunables.
// The per-source boost and its cap are deliberately configuration rather
// than derived constants.
type SynthesisConfig struct {
	MinConfidence  float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	BoostPerSource float64 `yaml:"boost_per_source" mapstructure:"boost_per_source"`
	BoostCap       float64 `yaml:"boost_cap" mapstructure:"boost_cap"`
	DedupPrefixLen int     `yaml:"dedup_prefix_len" mapstructure:"dedup_prefix_len"`
}

// DiscoveryConfig configures Claude-backed scenario discovery.
type DiscoveryConfig struct {
	MaxCandidates     int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	SourceName        string  `yaml:"source_name" mapstructure:"source_name"`
	SourceReliability float64 `yaml:"source_reliability" mapstructure:"source_reliability"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPPORTUNITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "opportunity.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("engine.min_match_threshold", 0)
	v.SetDefault("engine.strategy", "composite")
	v.SetDefault("engine.match_weight", 0.6)
	v.SetDefault("engine.revenue_weight", 0.4)
	v.SetDefault("engine.revenue_normalization_ceiling", 50_000)
	v.SetDefault("engine.high_value_threshold", 5_000)
	v.SetDefault("engine.quick_win_score_threshold", 80)
	v.SetDefault("engine.quick_win_time_threshold_hours", 2)
	v.SetDefault("engine.workers", 8)
	v.SetDefault("synthesis.min_confidence", 0.5)
	v.SetDefault("synthesis.boost_per_source", 0.1)
	v.SetDefault("synthesis.boost_cap", 0.2)
	v.SetDefault("synthesis.dedup_prefix_len", 40)
	v.SetDefault("discovery.max_candidates", 20)
	v.SetDefault("discovery.requests_per_minute", 30)
	v.SetDefault("discovery.source_name", "claude_discovery")
	v.SetDefault("discovery.source_reliability", 0.7)
	v.SetDefault("discovery.max_retries", 3)

	// Read config file (optional)
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
