package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		DecisionsTopic string   `yaml:"decisions_topic"`
		OutcomesTopic  string   `yaml:"outcomes_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id"`
			OffsetReset string        `yaml:"offset_reset"`
			Workers     int           `yaml:"workers"`
			BufferSize  int           `yaml:"buffer_size"`
			RetryMax    int           `yaml:"retry_max"`
			BackoffMin  time.Duration `yaml:"backoff_min"`
			BackoffMax  time.Duration `yaml:"backoff_max"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	MarketData struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Instrument     string        `yaml:"instrument"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		SnapshotWindow int           `yaml:"snapshot_window"` // trailing returns per snapshot
		CycleInterval  time.Duration `yaml:"cycle_interval"`  // min gap between fusion cycles
	} `yaml:"marketdata"`
	Signals struct {
		ServiceURL        string             `yaml:"service_url"`
		Timeout           time.Duration      `yaml:"timeout"`
		RetryAttempts     int                `yaml:"retry_attempts"`
		ProviderRateLimit float64            `yaml:"provider_rate_limit"` // calls/sec per signal
		Baseline          map[string]float64 `yaml:"baseline"`            // signal name -> prior weight
	} `yaml:"signals"`
	Fusion struct {
		ProviderTimeout     time.Duration `yaml:"provider_timeout"`
		MLWeight            float64       `yaml:"ml_weight"`
		DisagreementPenalty float64       `yaml:"disagreement_penalty"`
		BoostFloor          float64       `yaml:"boost_floor"`
	} `yaml:"fusion"`
	Buckets []BucketConfig `yaml:"buckets"`
	Learning struct {
		Window       time.Duration `yaml:"window"`
		MinSamples   int           `yaml:"min_samples"`
		DeadZone     float64       `yaml:"dead_zone"`
		ScoreFloor   float64       `yaml:"score_floor"`
		ScoreCap     float64       `yaml:"score_cap"`
		ScoreBlend   float64       `yaml:"score_blend"`
		MaxRelChange float64       `yaml:"max_rel_change"`
		Schedule     string        `yaml:"schedule"` // cron expression
	} `yaml:"learning"`
	Coordinator struct {
		TrailWindow  time.Duration `yaml:"trail_window"`
		MinTrades    int           `yaml:"min_trades"`
		BoostFactor  float64       `yaml:"boost_factor"`
		CapitalFloor string        `yaml:"capital_floor"` // decimal string
		Schedule     string        `yaml:"schedule"`      // cron expression
	} `yaml:"coordinator"`
	Regime struct {
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"regime"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// BucketConfig declares one strategy bucket and its base thresholds.
type BucketConfig struct {
	StrategyID         string  `yaml:"strategy_id"`
	MinSignalsAgreeing int     `yaml:"min_signals_agreeing"`
	MinConfidence      float64 `yaml:"min_confidence"`
	MinExpectedMove    float64 `yaml:"min_expected_move"`
	InitialCapital     string  `yaml:"initial_capital"` // decimal string
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("INSTRUMENT"); v != "" {
		c.MarketData.Instrument = v
	}
	if v := os.Getenv("SIGNALS_SERVICE_URL"); v != "" {
		c.Signals.ServiceURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.MarketData.Instrument == "" {
		return fmt.Errorf("marketdata.instrument is required")
	}
	if c.MarketData.APIKey == "" {
		return fmt.Errorf("marketdata.api_key is required")
	}
	if c.Signals.ServiceURL == "" {
		return fmt.Errorf("signals.service_url is required")
	}
	if len(c.Signals.Baseline) == 0 {
		return fmt.Errorf("signals.baseline cannot be empty")
	}
	if len(c.Buckets) == 0 {
		return fmt.Errorf("at least one bucket is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	for i, b := range c.Buckets {
		if b.StrategyID == "" {
			return fmt.Errorf("buckets[%d].strategy_id is required", i)
		}
		if b.MinSignalsAgreeing < 1 {
			return fmt.Errorf("buckets[%d].min_signals_agreeing must be at least 1", i)
		}
		if b.MinConfidence <= 0 || b.MinConfidence > 1 {
			return fmt.Errorf("buckets[%d].min_confidence must be in (0, 1]", i)
		}
		if b.MinExpectedMove < 0 {
			return fmt.Errorf("buckets[%d].min_expected_move must be non-negative", i)
		}
	}
	return nil
}
