package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type WorkerConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	UseTemporal      bool          `mapstructure:"use_temporal"`
	TemporalHostPort string        `mapstructure:"temporal_host_port"`
}

type EmailConfig struct {
	From            string   `mapstructure:"from"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	AlertRecipients []string `mapstructure:"alert_recipients"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type Config struct {
	DatabaseURL   string        `mapstructure:"database_url"`
	ServerPort    string        `mapstructure:"server_port"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	Worker        WorkerConfig  `mapstructure:"worker"`
	Email         EmailConfig   `mapstructure:"email"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	// Secrets may come from the environment instead of the file.
	v.SetEnvPrefix("talentsync")
	v.BindEnv("encryption_key", "TALENTSYNC_ENC_KEY")
	v.BindEnv("jwt_secret")
	v.BindEnv("database_url")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Worker.PollInterval == 0 {
		config.Worker.PollInterval = 10 * time.Second
	}

	if config.Worker.UseTemporal && config.Worker.TemporalHostPort == "" {
		config.Worker.TemporalHostPort = "localhost:7233"
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	return &config
}
