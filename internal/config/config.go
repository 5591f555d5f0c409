// Package config loads song-bot settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Responder kinds.
const (
	ResponderAuto   = "auto"
	ResponderOpenAI = "openai"
	ResponderOllama = "ollama"
	ResponderNone   = "none"
)

// Recommendation modes.
const (
	ModeSeed    = "seed"
	ModeContent = "content"
)

type Config struct {
	Spotify   SpotifyConfig   `yaml:"spotify"`
	Responder ResponderConfig `yaml:"responder"`
	Storage   StorageConfig   `yaml:"storage"`
	Dialogue  DialogueConfig  `yaml:"dialogue"`
	Server    ServerConfig    `yaml:"server"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

type SpotifyConfig struct {
	ClientID          string        `yaml:"client_id"`
	ClientSecret      string        `yaml:"client_secret"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoffMs    int           `yaml:"retry_backoff_ms"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// RetryBackoff returns the base retry delay.
func (s SpotifyConfig) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMs) * time.Millisecond
}

type ResponderConfig struct {
	// Kind is one of auto, openai, ollama or none. Auto picks openai when an
	// API key is present, then ollama when a host is set.
	Kind          string `yaml:"kind"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaHost    string `yaml:"ollama_host"`
	OllamaModel   string `yaml:"ollama_model"`
}

// Resolved returns the concrete responder kind.
func (r ResponderConfig) Resolved() string {
	if r.Kind != "" && r.Kind != ResponderAuto {
		return r.Kind
	}
	switch {
	case r.OpenAIAPIKey != "":
		return ResponderOpenAI
	case r.OllamaHost != "":
		return ResponderOllama
	default:
		return ResponderNone
	}
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type DialogueConfig struct {
	Mode              string        `yaml:"mode"`
	TurnTimeout       time.Duration `yaml:"turn_timeout"`
	MaxClarifications int           `yaml:"max_clarifications"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	// Seed fixes the genre shuffle. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type WorkerConfig struct {
	Workers     int `yaml:"workers"`
	QueueSize   int `yaml:"queue_size"`
	Parallelism int `yaml:"parallelism"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Spotify: SpotifyConfig{
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			RetryBackoffMs:    500,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Responder: ResponderConfig{Kind: ResponderAuto},
		Storage:   StorageConfig{Path: "song-bot.db"},
		Dialogue: DialogueConfig{
			Mode:        ModeSeed,
			TurnTimeout: 20 * time.Second,
			SessionTTL:  30 * time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Worker: WorkerConfig{Workers: 2, QueueSize: 100, Parallelism: 4},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = n
	}

	str("SPOTIFY_CLIENT_ID", &c.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret)
	num("SPOTIFY_MAX_RETRIES", &c.Spotify.MaxRetries)
	num("SPOTIFY_RETRY_BACKOFF_MS", &c.Spotify.RetryBackoffMs)
	str("OPENAI_API_KEY", &c.Responder.OpenAIAPIKey)
	str("OPENAI_MODEL", &c.Responder.OpenAIModel)
	str("OLLAMA_HOST", &c.Responder.OllamaHost)
	str("RESPONDER", &c.Responder.Kind)
	str("STORAGE_PATH", &c.Storage.Path)
	str("RECOMMEND_MODE", &c.Dialogue.Mode)
	str("LISTEN_ADDR", &c.Server.ListenAddr)
	str("LOG_LEVEL", &c.Log.Level)

	c.Responder.Kind = strings.ToLower(c.Responder.Kind)
	c.Dialogue.Mode = strings.ToLower(c.Dialogue.Mode)
	return errors.Join(errs...)
}

// Validate checks the settings. Spotify credentials are only required when
// needSpotify is set, so offline commands such as catalog import run without
// them.
func (c Config) Validate(needSpotify bool) error {
	var errs []error
	if needSpotify && (c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "") {
		errs = append(errs, errors.New("config: SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required"))
	}
	if c.Spotify.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("config: max_retries must not be negative, got %d", c.Spotify.MaxRetries))
	}
	switch c.Responder.Kind {
	case "", ResponderAuto, ResponderNone, ResponderOllama:
	case ResponderOpenAI:
		if c.Responder.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("config: responder openai needs OPENAI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown responder %q", c.Responder.Kind))
	}
	switch c.Dialogue.Mode {
	case ModeSeed, ModeContent:
	default:
		errs = append(errs, fmt.Errorf("config: unknown recommend mode %q", c.Dialogue.Mode))
	}
	if c.Dialogue.MaxClarifications < 0 {
		errs = append(errs, errors.New("config: max_clarifications must not be negative"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("config: storage path is required"))
	}
	return errors.Join(errs...)
}
