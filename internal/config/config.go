package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Hub      HubConfig      `yaml:"hub"`
	History  HistoryConfig  `yaml:"history"`
	Database DBConfig       `yaml:"database"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds settings for the external delivery backend.
type UpstreamConfig struct {
	BaseURL       string        `yaml:"base_url"`
	StatusTimeout time.Duration `yaml:"status_timeout"`
	StoreTimeout  time.Duration `yaml:"store_timeout"`
}

// HubConfig holds room fan-out settings.
type HubConfig struct {
	// SessionBuffer is the per-connection outbox size. Messages beyond
	// it are dropped rather than blocking the publisher.
	SessionBuffer int `yaml:"session_buffer"`
}

// HistoryConfig holds the optional local position-history sink settings.
// The sink is disabled by default; the relay's real-time path never
// depends on it.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds the Postgres connection for the history sink.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
