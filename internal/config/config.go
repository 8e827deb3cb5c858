// Package config loads the job configuration from a dl.toml file and the
// environment. Credentials and paths are carried explicitly into the
// pipelines rather than through process-wide state.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/loevda/datalake/internal/storage"
)

// DefaultInputPath is the public dataset the job was built around. It can
// be overridden through the config file or SPARKIFY_INPUT_PATH.
const DefaultInputPath = "s3a://udacity-dend/"

// Config is the complete job configuration.
type Config struct {
	AWS AWSConfig `toml:"aws"`
}

// AWSConfig holds storage credentials and the dataset locations.
type AWSConfig struct {
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Region          string `toml:"region"`
	OutputBucket    string `toml:"output_bucket"`
	InputPath       string `toml:"input_path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region:    "us-east-1",
			InputPath: DefaultInputPath,
		},
	}
}

// Load reads configuration from a TOML file, then applies environment
// overrides. An empty path skips the file and relies on the environment.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("AWS_S3_OUTPUT_BUCKET"); v != "" {
		cfg.AWS.OutputBucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("SPARKIFY_INPUT_PATH"); v != "" {
		cfg.AWS.InputPath = v
	}

	return cfg, nil
}

// Validate checks the configuration before any pipeline runs. Credentials
// are required only when either dataset location is on S3.
func (c *Config) Validate() error {
	if c.AWS.OutputBucket == "" {
		return fmt.Errorf("output_bucket cannot be empty")
	}
	if c.AWS.InputPath == "" {
		return fmt.Errorf("input_path cannot be empty")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if storage.IsS3Path(c.AWS.InputPath) || storage.IsS3Path(c.AWS.OutputBucket) {
		if c.AWS.AccessKeyID == "" {
			return fmt.Errorf("access_key_id cannot be empty for S3 paths")
		}
		if c.AWS.SecretAccessKey == "" {
			return fmt.Errorf("secret_access_key cannot be empty for S3 paths")
		}
	}
	return nil
}
