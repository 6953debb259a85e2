package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode              string        `mapstructure:"mode"`
	Port              int           `mapstructure:"port"`
	ReadLimit         int64         `mapstructure:"read_limit"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	EnforceLAN        bool          `mapstructure:"enforce_lan"`
	AllowedSubnets    string        `mapstructure:"allowed_subnets"`
	ConnRateLimit     int           `mapstructure:"conn_rate_limit"`
	ConnRateWindow    time.Duration `mapstructure:"conn_rate_window"`
	Secret            string        `mapstructure:"secret"`
	AuditPath         string        `mapstructure:"audit_path"`
}

// Subnets splits the allowed_subnets CSV into individual CIDR ranges.
func (c *Config) Subnets() []string {
	return strings.Split(c.AllowedSubnets, ",")
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("heartbeat_interval", "15s")
	v.SetDefault("idle_timeout", "90s")
	v.SetDefault("enforce_lan", true)
	v.SetDefault("allowed_subnets", "127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16")
	v.SetDefault("conn_rate_limit", 10)
	v.SetDefault("conn_rate_window", "1m")
	v.SetDefault("audit_path", "./data/audit")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | LAN-only: %v\n", cfg.Mode, cfg.Port, cfg.EnforceLAN)
	return &cfg, nil
}
