package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Client  ClientConfig  `mapstructure:"client"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Origin is the public base URL, used to build hook URLs and to check
	// websocket handshake origins.
	Origin string `mapstructure:"origin"`
	// Only the header read is bounded. A whole-response write timeout would
	// sever long-lived websocket connections.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

type RelayConfig struct {
	SendBuffer   int           `mapstructure:"send_buffer"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	// TokenKey keys the at-rest hashing of session tokens.
	TokenKey             string        `mapstructure:"token_key"`
	SessionAbsoluteTTL   time.Duration `mapstructure:"session_absolute_ttl"`
	SessionInactivityTTL time.Duration `mapstructure:"session_inactivity_ttl"`
	InviteTTL            time.Duration `mapstructure:"invite_ttl"`
}

type ClientConfig struct {
	ServerURL      string        `mapstructure:"server_url"`
	Token          string        `mapstructure:"token"`
	Forwarders     int           `mapstructure:"forwarders"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("localhook")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/localhook")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOCALHOOK")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.origin", "http://localhost:8080")
	viper.SetDefault("server.read_header_timeout", 10*time.Second)

	viper.SetDefault("relay.send_buffer", 64)
	viper.SetDefault("relay.ping_interval", 30*time.Second)
	viper.SetDefault("relay.write_timeout", 10*time.Second)

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./data/localhook.db")

	viper.SetDefault("auth.token_key", "")
	viper.SetDefault("auth.session_absolute_ttl", 14*24*time.Hour)
	viper.SetDefault("auth.session_inactivity_ttl", 24*time.Hour)
	viper.SetDefault("auth.invite_ttl", 14*24*time.Hour)

	viper.SetDefault("client.server_url", "http://localhost:8080")
	viper.SetDefault("client.forwarders", 8)
	viper.SetDefault("client.timeout", 30*time.Second)
	viper.SetDefault("client.reconnect_delay", 3*time.Second)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
