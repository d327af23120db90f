// Package config loads groupchatd's runtime configuration with Viper,
// adapted from the config.Load() the teacher's cmd/server/main.go calls
// into (config.yaml + environment overrides, the shape every other
// config.Load in the corpus follows).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs"`
	Password string   `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	NotifyTopic  string   `mapstructure:"notify_topic"`
}

type GroupDefaults struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	EventsTTLMillis int64  `mapstructure:"events_ttl_millis"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Group   GroupDefaults `mapstructure:"group"`
	Log     LogConfig     `mapstructure:"log"`
}

// Load reads ./config.yaml (if present), then GROUPCHATD_-prefixed
// environment variables, over a set of sane defaults — the same
// precedence order every viper.New()-based Load in the pack uses.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/groupchatd")

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.notify_topic", "groupchat.notifications")
	v.SetDefault("group.rate_limit_rps", 5.0)
	v.SetDefault("group.rate_limit_burst", 10)
	v.SetDefault("group.events_ttl_millis", 0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("groupchatd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
