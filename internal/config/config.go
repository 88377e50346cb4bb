// Package config loads the console configuration from an optional yaml file,
// VOXTERM_* environment variables, and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport selects the wire under the event channel.
type Transport string

const (
	TransportWebRTC    Transport = "webrtc"
	TransportWebSocket Transport = "websocket"
)

// Config stores everything the session lifecycle needs: endpoint URLs, the
// API credential, model/voice selection, and local audio plumbing.
type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	SessionsURL  string        `mapstructure:"sessions_url"`
	RealtimeURL  string        `mapstructure:"realtime_url"`
	Model        string        `mapstructure:"model"`
	Voice        string        `mapstructure:"voice"`
	Instructions string        `mapstructure:"instructions"`
	Transport    Transport     `mapstructure:"transport"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	STUNServers  []string      `mapstructure:"stun_servers"`
	AudioIn      string        `mapstructure:"audio_in"`  // PCM source for the microphone track (48kHz mono s16le)
	AudioOut     string        `mapstructure:"audio_out"` // PCM sink for remote audio playback
}

// Load reads the configuration. A config file is optional; environment
// variables (VOXTERM_API_KEY, VOXTERM_MODEL, ...) and defaults cover the rest.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("voxterm")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/voxterm")

	v.SetEnvPrefix("VOXTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a meaningful default still need registration so the
	// VOXTERM_* env bindings reach Unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("audio_in", "")
	v.SetDefault("audio_out", "")
	v.SetDefault("sessions_url", "https://api.openai.com/v1/realtime/sessions")
	v.SetDefault("realtime_url", "https://api.openai.com/v1/realtime")
	v.SetDefault("model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("voice", "verse")
	v.SetDefault("instructions", "You are a helpful assistant. Keep spoken answers short.")
	v.SetDefault("transport", string(TransportWebRTC))
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("stun_servers", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})

	// Missing config file is fine; env vars and defaults take over.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the session lifecycle cannot work with.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("missing api_key (set VOXTERM_API_KEY)")
	}
	switch c.Transport {
	case TransportWebRTC, TransportWebSocket:
	default:
		return fmt.Errorf("invalid transport %q: must be webrtc or websocket", c.Transport)
	}
	return nil
}
