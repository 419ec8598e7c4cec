package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the harness configuration
type Config struct {
	S3        S3Config     `yaml:"s3"`
	Kafka     KafkaConfig  `yaml:"kafka"`
	Bucket    BucketConfig `yaml:"bucket"`
	Poll      PollConfig   `yaml:"poll"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"`
}

// S3Config holds object-storage connection settings
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// VirtualHostAddressing switches from path-style to
	// virtual-host-style bucket addressing; emulators generally need
	// path style
	VirtualHostAddressing bool `yaml:"virtual_host_addressing"`
}

// KafkaConfig holds broker connection settings
type KafkaConfig struct {
	BootstrapServers []string `yaml:"bootstrap_servers"`
}

// BucketConfig holds bucket lifecycle settings
type BucketConfig struct {
	Prefix              string   `yaml:"prefix"`
	CleanupEnabled      bool     `yaml:"cleanup_enabled"`
	CleanupInitialDelay Duration `yaml:"cleanup_initial_delay"`
	MaxCleanupTimeout   Duration `yaml:"max_cleanup_timeout"`
}

// PollConfig bounds the consistency poller
type PollConfig struct {
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		S3: S3Config{
			Region: "us-east-1",
		},
		Kafka: KafkaConfig{
			BootstrapServers: []string{"localhost:9092"},
		},
		Bucket: BucketConfig{
			Prefix:            "kafka-backup-test",
			CleanupEnabled:    true,
			MaxCleanupTimeout: Duration(10 * time.Minute),
		},
		Poll: PollConfig{
			Attempts: 10,
			Delay:    Duration(time.Second),
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := ValidateBucketPrefix(c.Bucket.Prefix); err != nil {
		return err
	}

	if c.Poll.Attempts < 1 {
		return fmt.Errorf("poll attempts must be at least 1")
	}
	if c.Poll.Delay <= 0 {
		return fmt.Errorf("poll delay must be positive")
	}

	if c.Bucket.MaxCleanupTimeout <= 0 {
		return fmt.Errorf("max cleanup timeout must be positive")
	}
	if c.Bucket.CleanupInitialDelay < 0 {
		return fmt.Errorf("cleanup initial delay cannot be negative")
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		return fmt.Errorf("kafka bootstrap servers must be specified")
	}

	return nil
}

// overrideFromEnv overrides configuration from environment variables
func (c *Config) overrideFromEnv() {
	if val := os.Getenv("HARNESS_S3_ENDPOINT"); val != "" {
		c.S3.Endpoint = val
	}
	if val := os.Getenv("HARNESS_S3_REGION"); val != "" {
		c.S3.Region = val
	}
	if val := os.Getenv("AWS_ACCESS_KEY_ID"); val != "" {
		c.S3.AccessKeyID = val
	}
	if val := os.Getenv("AWS_SECRET_ACCESS_KEY"); val != "" {
		c.S3.SecretAccessKey = val
	}

	if val := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); val != "" {
		c.Kafka.BootstrapServers = []string{val}
	}

	if val := os.Getenv("HARNESS_BUCKET_PREFIX"); val != "" {
		c.Bucket.Prefix = val
	}
	if val := os.Getenv("HARNESS_CLEANUP_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Bucket.CleanupEnabled = enabled
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}
