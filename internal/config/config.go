// Package config loads and validates the studio configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	validSampleRates = []int{44100, 48000, 96000}
	validBufferSizes = []int{128, 256, 512, 1024, 2048}
)

// AudioConfig holds the duplex stream parameters.
type AudioConfig struct {
	SampleRate     int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	BufferSize     int    `mapstructure:"buffer_size" yaml:"buffer_size"`
	InputDevice    string `mapstructure:"input_device" yaml:"input_device"`
	OutputDevice   string `mapstructure:"output_device" yaml:"output_device"`
	InputChannels  int    `mapstructure:"input_channels" yaml:"input_channels"`
	OutputChannels int    `mapstructure:"output_channels" yaml:"output_channels"`
	MonitorChannel int    `mapstructure:"monitor_channel" yaml:"monitor_channel"`
}

// StudioConfig identifies the studio for session logs.
type StudioConfig struct {
	Musician string `mapstructure:"musician" yaml:"musician"`
	Name     string `mapstructure:"name" yaml:"name"`
	Location string `mapstructure:"location" yaml:"location"`
}

// Instrument is one configured instrument input.
type Instrument struct {
	Name     string `mapstructure:"name" yaml:"name"`
	FullName string `mapstructure:"full_name" yaml:"full_name"`
	Musician string `mapstructure:"musician" yaml:"musician"`
}

// OutputConfig controls where and how takes are written.
type OutputConfig struct {
	ProjectsDirectory string `mapstructure:"projects_directory" yaml:"projects_directory"`
	TakeFormat        string `mapstructure:"take_format" yaml:"take_format"`
}

// Config is the full studio configuration.
type Config struct {
	Audio               AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Studio              StudioConfig `mapstructure:"studio" yaml:"studio"`
	Output              OutputConfig `mapstructure:"output" yaml:"output"`
	Instruments         []Instrument `mapstructure:"instruments" yaml:"instruments"`
	LatencyCompensation float64      `mapstructure:"latency_compensation_ms" yaml:"latency_compensation_ms"`
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/takedeck.yaml")
}

func defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Audio: AudioConfig{
			SampleRate:     48000,
			BufferSize:     512,
			InputChannels:  1,
			OutputChannels: 2,
		},
		Output: OutputConfig{
			ProjectsDirectory: filepath.Join(home, "Takedeck Projects"),
			TakeFormat:        "flac",
		},
	}
}

// Load reads the configuration file. A missing file yields the defaults;
// a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TAKEDECK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.ProjectsDirectory = expandPath(cfg.Output.ProjectsDirectory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []string

	if !containsInt(validSampleRates, c.Audio.SampleRate) {
		errs = append(errs, fmt.Sprintf("invalid sample rate %d, must be one of %v", c.Audio.SampleRate, validSampleRates))
	}
	if !containsInt(validBufferSizes, c.Audio.BufferSize) {
		errs = append(errs, fmt.Sprintf("invalid buffer size %d, must be one of %v", c.Audio.BufferSize, validBufferSizes))
	}
	if c.Audio.InputChannels < 1 {
		errs = append(errs, "input channels must be >= 1")
	}
	if c.Audio.OutputChannels < 1 {
		errs = append(errs, "output channels must be >= 1")
	}
	if c.Audio.MonitorChannel < 0 || c.Audio.MonitorChannel >= c.Audio.InputChannels {
		errs = append(errs, fmt.Sprintf("monitor channel %d out of range for %d input channels", c.Audio.MonitorChannel, c.Audio.InputChannels))
	}
	if c.LatencyCompensation < 0 {
		errs = append(errs, "latency compensation must be >= 0")
	}
	switch strings.ToLower(c.Output.TakeFormat) {
	case "flac", "wav":
	default:
		errs = append(errs, fmt.Sprintf("take format must be 'flac' or 'wav', got: %s", c.Output.TakeFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// LatencyFrames converts the configured latency compensation to frames at
// the configured sample rate.
func (c *Config) LatencyFrames() int {
	return int(c.LatencyCompensation * float64(c.Audio.SampleRate) / 1000.0)
}

// GetInstrument finds a configured instrument by name, case-insensitively.
func (c *Config) GetInstrument(name string) (Instrument, bool) {
	for _, inst := range c.Instruments {
		if strings.EqualFold(inst.Name, name) {
			return inst, true
		}
	}
	return Instrument{}, false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
