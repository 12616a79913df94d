package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Web      WebConfig      `yaml:"web"`
	Voice    VoiceConfig    `yaml:"voice"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type DeviceConfig struct {
	// Address of the relay board, with or without an http:// prefix.
	Address      string `yaml:"address"`
	DemoMode     bool   `yaml:"demo_mode"`
	PollInterval string `yaml:"poll_interval"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type VoiceConfig struct {
	// Recognizer selects where recognition runs: "remote" (the browser)
	// or "microphone" (local capture, needs the portaudio build tag).
	Recognizer string `yaml:"recognizer"`
	SampleRate int    `yaml:"sample_rate"`
	OpenAIKey  string `yaml:"openai_api_key"`
	Language   string `yaml:"language"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Device.Address == "" {
		// Without a device to talk to the hub runs against local state.
		c.Device.DemoMode = true
	}
	if c.Device.PollInterval == "" {
		c.Device.PollInterval = "5s"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Voice.Recognizer == "" {
		c.Voice.Recognizer = "remote"
	}
	if c.Voice.SampleRate == 0 {
		c.Voice.SampleRate = 16000
	}
	if c.Voice.Language == "" {
		c.Voice.Language = "en"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// PollIntervalDuration parses the configured poll interval, falling
// back to the given default on bad input.
func (c *Config) PollIntervalDuration(fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(c.Device.PollInterval)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
