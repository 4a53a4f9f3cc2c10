package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
	Messenger  MessengerConfig  `mapstructure:"messenger"`
	NLU        NLUConfig        `mapstructure:"nlu"`
	Pacing     PacingConfig     `mapstructure:"pacing"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	ClickHouse DatabaseConfig   `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Restaurant RestaurantConfig `mapstructure:"restaurant"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	AssetsDir string `mapstructure:"assets_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MessengerConfig struct {
	APIBaseURL  string        `mapstructure:"api_base_url"` // Graph API root
	PageToken   string        `mapstructure:"page_token"`
	VerifyToken string        `mapstructure:"verify_token"`
	AppSecret   string        `mapstructure:"app_secret"`
	PageInboxID string        `mapstructure:"page_inbox_id"`
	ServerURL   string        `mapstructure:"server_url"` // public base for static assets
	Timeout     time.Duration `mapstructure:"timeout"`
}

type NLUConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ProjectID    string        `mapstructure:"project_id"`
	LanguageCode string        `mapstructure:"language_code"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PacingConfig struct {
	Quantum time.Duration `mapstructure:"quantum"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type RestaurantConfig struct {
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
}

// Enabled reports whether the delivery-event stream is configured at all.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (MERLABOT_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (MERLABOT_*)
	v.SetEnvPrefix("MERLABOT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the bot must not start with. Missing
// platform credentials are fatal; everything optional degrades at runtime.
func (c Config) Validate() error {
	required := []struct{ name, val string }{
		{"messenger.page_token", c.Messenger.PageToken},
		{"messenger.verify_token", c.Messenger.VerifyToken},
		{"messenger.app_secret", c.Messenger.AppSecret},
		{"messenger.server_url", c.Messenger.ServerURL},
		{"nlu.project_id", c.NLU.ProjectID},
		{"nlu.language_code", c.NLU.LanguageCode},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("missing required config %s", r.name)
		}
	}
	if c.Pacing.Quantum <= 0 {
		return fmt.Errorf("pacing.quantum must be positive, got %s", c.Pacing.Quantum)
	}
	return nil
}
