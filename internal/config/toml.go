// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Training TrainingConfig `toml:"training"`
	Voice    VoiceConfig    `toml:"voice"`
	Speech   SpeechConfig   `toml:"speech"`
	Audio    AudioConfig    `toml:"audio"`
	Parent   ParentConfig   `toml:"parent"`
}

// TrainingConfig maps deck-related settings.
type TrainingConfig struct {
	Cards      *int      `toml:"cards"`
	Words      *string   `toml:"words"`
	Categories *[]string `toml:"categories"`
	FocusWeak  *bool     `toml:"focus-weak"`
	WeakTop    *int      `toml:"weak-top"`
	WeakFactor *float64  `toml:"weak-factor"`
	WeakWindow *int      `toml:"weak-window"`
}

// VoiceConfig maps voice detection thresholds.
type VoiceConfig struct {
	MinDurationMs    *int     `toml:"min-duration-ms"`
	VolumeThreshold  *float64 `toml:"volume-threshold"`
	MaxDurationMs    *int     `toml:"max-duration-ms"`
	SilenceTimeoutMs *int     `toml:"silence-timeout-ms"`
}

// SpeechConfig maps text-to-speech settings.
type SpeechConfig struct {
	Engine *string `toml:"engine"`
	Voice  *string `toml:"voice"`
	Rate   *int    `toml:"rate"`
}

// AudioConfig maps device settings.
type AudioConfig struct {
	Device *string `toml:"device"`
	Mute   *bool   `toml:"mute"`
}

// ParentConfig maps the parent area settings.
type ParentConfig struct {
	PIN *string `toml:"pin"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
