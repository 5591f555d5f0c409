package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValidWithoutSpotify(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true))
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song-bot.yaml")
	body := `
spotify:
  client_id: file-id
  client_secret: file-secret
dialogue:
  mode: content
  turn_timeout: 5s
  max_clarifications: 3
server:
  listen_addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("LISTEN_ADDR", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "file-secret", cfg.Spotify.ClientSecret)
	assert.Equal(t, ModeContent, cfg.Dialogue.Mode)
	assert.Equal(t, 5*time.Second, cfg.Dialogue.TurnTimeout)
	assert.Equal(t, 3, cfg.Dialogue.MaxClarifications)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Spotify.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Dialogue.SessionTTL)
	require.NoError(t, cfg.Validate(true))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"SPOTIFY_MAX_RETRIES":      "5",
		"SPOTIFY_RETRY_BACKOFF_MS": "250",
		"RESPONDER":                "OpenAI",
		"OPENAI_API_KEY":           "sk-test",
		"RECOMMEND_MODE":           "Content",
		"STORAGE_PATH":             "",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Spotify.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Spotify.RetryBackoff())
	assert.Equal(t, ResponderOpenAI, cfg.Responder.Kind)
	assert.Equal(t, ModeContent, cfg.Dialogue.Mode)
	assert.Equal(t, "song-bot.db", cfg.Storage.Path, "empty env values are ignored")
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{"SPOTIFY_MAX_RETRIES": "lots"}))
	assert.ErrorContains(t, err, "SPOTIFY_MAX_RETRIES")
}

func TestResponderResolved(t *testing.T) {
	tests := []struct {
		name string
		cfg  ResponderConfig
		want string
	}{
		{name: "auto prefers openai", cfg: ResponderConfig{Kind: ResponderAuto, OpenAIAPIKey: "k", OllamaHost: "h"}, want: ResponderOpenAI},
		{name: "auto falls to ollama", cfg: ResponderConfig{OllamaHost: "http://localhost:11434"}, want: ResponderOllama},
		{name: "auto without anything", cfg: ResponderConfig{Kind: ResponderAuto}, want: ResponderNone},
		{name: "explicit wins", cfg: ResponderConfig{Kind: ResponderNone, OpenAIAPIKey: "k"}, want: ResponderNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Resolved())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown responder", mutate: func(c *Config) { c.Responder.Kind = "bard" }, want: "unknown responder"},
		{name: "openai without key", mutate: func(c *Config) { c.Responder.Kind = ResponderOpenAI }, want: "OPENAI_API_KEY"},
		{name: "unknown mode", mutate: func(c *Config) { c.Dialogue.Mode = "vibes" }, want: "unknown recommend mode"},
		{name: "negative retries", mutate: func(c *Config) { c.Spotify.MaxRetries = -1 }, want: "max_retries"},
		{name: "no storage", mutate: func(c *Config) { c.Storage.Path = "" }, want: "storage path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(false), tt.want)
		})
	}
}
