package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	VK        VKConfig        `mapstructure:"vk"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// VKConfig configures the push provider. AccessToken is the community
// token used for notifications.sendMessage; leaving it empty makes every
// send attempt fail fast with a configuration error.
type VKConfig struct {
	AccessToken string        `mapstructure:"access_token"`
	APIVersion  string        `mapstructure:"api_version"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AffiliateConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	Login        string        `mapstructure:"login"`
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenExpiry  time.Duration `mapstructure:"token_expiry"`
}

type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MetricsPort  int           `mapstructure:"metrics_port"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("MARKETING")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine when everything comes from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("vk.api_version", "5.131")
	viper.SetDefault("vk.base_url", "https://api.vk.com/method")
	viper.SetDefault("vk.timeout", 10*time.Second)
	viper.SetDefault("affiliate.timeout", 15*time.Second)
	viper.SetDefault("admin.token_expiry", 24*time.Hour)
	viper.SetDefault("worker.poll_interval", time.Minute)
	viper.SetDefault("worker.metrics_port", 8081)
	viper.SetDefault("rate_limit.requests_per_second", 50.0)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("logging.level", "info")
}
