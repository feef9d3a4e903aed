package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent codescout configuration stored as
// config.toml in the .codescout/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Ingest      IngestConfig      `toml:"ingest"`
	Review      ReviewConfig      `toml:"review"`
	GitHub      GitHubConfig      `toml:"github"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds local filesystem settings.
type StorageConfig struct {
	ReposDir   string `toml:"repos_dir,omitempty"`
	UploadsDir string `toml:"uploads_dir,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// codescout server (e.g. codescout chat, codescout review). Values are
// full URLs (scheme + host + port).
type ClientConfig struct {
	ServerTarget string `toml:"server_target,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds completion backend settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	ChunkSize   uint `toml:"chunk_size,omitempty"`
	Concurrency uint `toml:"concurrency,omitempty"`
}

// ReviewConfig holds PR review pipeline settings.
type ReviewConfig struct {
	MaxContextBytes uint `toml:"max_context_bytes,omitempty"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token string `toml:"token,omitempty"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.repos_dir": {
		get: func(c *Config) string { return c.Storage.ReposDir },
		set: func(c *Config, v string) error { c.Storage.ReposDir = v; return nil },
	},
	"storage.uploads_dir": {
		get: func(c *Config) string { return c.Storage.UploadsDir },
		set: func(c *Config, v string) error { c.Storage.UploadsDir = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"client.server_target": {
		get: func(c *Config) string { return c.Client.ServerTarget },
		set: func(c *Config, v string) error { c.Client.ServerTarget = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"ingest.chunk_size": {
		get: func(c *Config) string {
			if c.Ingest.ChunkSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Ingest.ChunkSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.chunk_size: %w", err)
			}
			c.Ingest.ChunkSize = uint(n)
			return nil
		},
	},
	"ingest.concurrency": {
		get: func(c *Config) string {
			if c.Ingest.Concurrency == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Ingest.Concurrency), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for ingest.concurrency: %w", err)
			}
			c.Ingest.Concurrency = uint(n)
			return nil
		},
	},
	"review.max_context_bytes": {
		get: func(c *Config) string {
			if c.Review.MaxContextBytes == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Review.MaxContextBytes), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for review.max_context_bytes: %w", err)
			}
			c.Review.MaxContextBytes = uint(n)
			return nil
		},
	},
	"github.token": {
		get: func(c *Config) string { return c.GitHub.Token },
		set: func(c *Config, v string) error { c.GitHub.Token = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Events.Brokers = nil
				return nil
			}
			c.Events.Brokers = strings.Split(v, ",")
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
