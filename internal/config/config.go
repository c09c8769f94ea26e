package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	streamforwarder "github.com/markusylisiurunen/go-stream-forwarder"
)

type Config struct {
	Destinations []DestinationConfig `mapstructure:"destinations"`
	Concurrency  int                 `mapstructure:"concurrency"`
	Log          LogConfig           `mapstructure:"log"`
	Publish      PublishConfig       `mapstructure:"publish"`
	Kafka        KafkaConfig         `mapstructure:"kafka"`
	RabbitMQ     RabbitMQConfig      `mapstructure:"rabbitmq"`
	PubSub       PubSubConfig        `mapstructure:"pubsub"`
	Postgres     PostgresConfig      `mapstructure:"postgres"`
	HTTP         HTTPConfig          `mapstructure:"http"`
	Telemetry    TelemetryConfig     `mapstructure:"telemetry"`
}

type DestinationConfig struct {
	Endpoint   string   `mapstructure:"endpoint"`
	EventNames []string `mapstructure:"event_names"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// PublishConfig applies to every destination. A zero timeout leaves publishes bounded by the invocation only.
type PublishConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type RabbitMQConfig struct {
	URL           string `mapstructure:"url"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("publish.timeout", "0s")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.retry_attempts", 5)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.schema", "streamforwarder")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Load reads the YAML file at configPath, if any, and applies environment overrides. Without a file the
// configuration comes from the environment alone, including the single-queue SQS_ENDPOINT and EVENT_NAMES
// variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("sqs_endpoint", "SQS_ENDPOINT")
	_ = v.BindEnv("event_names", "EVENT_NAMES")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// expand ${VAR} before parsing so that values nested in lists are covered too
		if err := v.ReadConfig(bytes.NewReader([]byte(os.ExpandEnv(string(content))))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Destinations) == 0 {
		if endpoint := v.GetString("sqs_endpoint"); endpoint != "" {
			config.Destinations = []DestinationConfig{{
				Endpoint:   endpoint,
				EventNames: splitList(v.GetString("event_names")),
			}}
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *Config) Validate() error {
	if len(c.Destinations) == 0 {
		return fmt.Errorf("destinations must list at least one destination (or set SQS_ENDPOINT)")
	}
	for i, d := range c.Destinations {
		if strings.TrimSpace(d.Endpoint) == "" {
			return fmt.Errorf("destinations[%d].endpoint is required", i)
		}
		if _, err := streamforwarder.NormalizeEventNames(d.EventNames); err != nil {
			return fmt.Errorf("destinations[%d].event_names: %w", i, err)
		}
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Publish.Timeout < 0 {
		return fmt.Errorf("publish.timeout must not be negative")
	}
	if c.Kafka.BatchTimeout < 0 {
		return fmt.Errorf("kafka.batch_timeout must not be negative")
	}

	schemes, err := c.Schemes()
	if err != nil {
		return err
	}
	if schemes[streamforwarder.SchemeKafka] && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for kafka:// destinations")
	}
	if schemes[streamforwarder.SchemeRabbitMQ] && c.RabbitMQ.URL == "" {
		return fmt.Errorf("rabbitmq.url is required for rabbitmq:// destinations")
	}
	if schemes[streamforwarder.SchemePubSub] && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required for pubsub:// destinations")
	}
	if schemes[streamforwarder.SchemePostgres] && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required for postgres:// destinations")
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}

	return nil
}

// Schemes reports which publisher kinds the configured destinations need.
func (c *Config) Schemes() (map[string]bool, error) {
	schemes := map[string]bool{}
	for i, d := range c.Destinations {
		scheme, err := streamforwarder.EndpointScheme(strings.TrimSpace(d.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("destinations[%d].endpoint: %w", i, err)
		}
		switch scheme {
		case streamforwarder.SchemeSQS, streamforwarder.SchemeHTTP, streamforwarder.SchemeKafka,
			streamforwarder.SchemeRabbitMQ, streamforwarder.SchemePubSub, streamforwarder.SchemePostgres:
			schemes[scheme] = true
		default:
			return nil, fmt.Errorf("destinations[%d].endpoint: unsupported scheme %q", i, scheme)
		}
	}
	return schemes, nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("invalid log.level: %s (valid options: debug, info, warn, error)", c.Log.Level)
	}
	return level, nil
}

func (c *Config) HandlerDestinations() []streamforwarder.DestinationConfig {
	destinations := make([]streamforwarder.DestinationConfig, 0, len(c.Destinations))
	for _, d := range c.Destinations {
		destinations = append(destinations, streamforwarder.DestinationConfig{
			Endpoint:   d.Endpoint,
			EventNames: d.EventNames,
		})
	}
	return destinations
}
