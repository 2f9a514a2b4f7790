package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	SourceStdin = "stdin"
	SourceNATS  = "nats"
	SourceGmail = "gmail"
)

type Config struct {
	Source          string   `json:"source,omitempty" mapstructure:"source"`
	LogLevel        string   `json:"log_level,omitempty" mapstructure:"log_level"`
	NATSURL         string   `json:"nats_url,omitempty" mapstructure:"nats_url"`
	NATSSubject     string   `json:"nats_subject,omitempty" mapstructure:"nats_subject"`
	CredentialsFile string   `json:"credentials_file,omitempty" mapstructure:"credentials_file"`
	PollInterval    string   `json:"poll_interval,omitempty" mapstructure:"poll_interval"`
	MetricsAddr     string   `json:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
	AutoSubmit      bool     `json:"auto_submit,omitempty" mapstructure:"auto_submit"`
	Senders         []string `json:"senders,omitempty" mapstructure:"senders"`
}

// Poll parses PollInterval. The interval must be positive.
func (c Config) Poll() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, err
	}

	if d <= 0 {
		return 0, fmt.Errorf("poll interval must be positive, got %s", d)
	}

	return d, nil
}

func getConfigPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir, err = os.UserConfigDir()
	} else {
		configDir, err = os.UserHomeDir()
		if err == nil {
			configDir = filepath.Join(configDir, ".config")
		}
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "otpfill", "config.json"), nil
}

// Load returns the effective configuration: the config file layered over
// defaults, with OTPFILL_* environment variables taking precedence.
func Load() (Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("OTPFILL")
	v.AutomaticEnv()

	v.SetDefault("source", SourceStdin)
	v.SetDefault("log_level", "info")
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("nats_subject", "sms.incoming")
	v.SetDefault("credentials_file", "credentials.json")
	v.SetDefault("poll_interval", "30s")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("auto_submit", false)
	v.SetDefault("senders", []string{})

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, err
	}

	return conf, nil
}

// ReadConfig returns the contents of the config file alone, without defaults
// or environment overrides. A missing file reads as an empty Config.
func ReadConfig() (Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(data, &config)

	return config, err
}

// update applies fn to the stored config and writes the result back unless fn
// fails.
func update(fn func(conf *Config) error) error {
	conf, err := ReadConfig()
	if err != nil {
		return err
	}

	if err := fn(&conf); err != nil {
		return err
	}

	return WriteConfig(conf)
}

func WriteConfig(config Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
