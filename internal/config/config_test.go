package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.BufferSize != 512 {
		t.Errorf("BufferSize = %d", cfg.Audio.BufferSize)
	}
	if cfg.Output.TakeFormat != "flac" {
		t.Errorf("TakeFormat = %q", cfg.Output.TakeFormat)
	}
}

func TestLoadFile(t *testing.T) {
	content := `audio:
  sample_rate: 44100
  buffer_size: 256
  input_channels: 2
  output_channels: 2
  monitor_channel: 1
studio:
  musician: Sam
  name: Garage
  location: Lisbon
output:
  projects_directory: /tmp/projects
  take_format: wav
instruments:
  - name: guitar
    full_name: Electric Guitar
    musician: Alex
latency_compensation_ms: 12.5
`
	path := filepath.Join(t.TempDir(), "takedeck.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BufferSize != 256 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.MonitorChannel != 1 {
		t.Errorf("MonitorChannel = %d", cfg.Audio.MonitorChannel)
	}
	if cfg.Studio.Musician != "Sam" || cfg.Studio.Location != "Lisbon" {
		t.Errorf("studio = %+v", cfg.Studio)
	}
	if cfg.Output.ProjectsDirectory != "/tmp/projects" || cfg.Output.TakeFormat != "wav" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.LatencyCompensation != 12.5 {
		t.Errorf("LatencyCompensation = %v", cfg.LatencyCompensation)
	}

	inst, ok := cfg.GetInstrument("GUITAR")
	if !ok {
		t.Fatal("GetInstrument case-insensitive lookup failed")
	}
	if inst.Musician != "Alex" {
		t.Errorf("instrument musician = %q", inst.Musician)
	}
	if _, ok := cfg.GetInstrument("drums"); ok {
		t.Error("GetInstrument found an unconfigured instrument")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "takedeck.yaml")
	if err := os.WriteFile(path, []byte("audio: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "bad sample rate",
			mutate:  func(c *Config) { c.Audio.SampleRate = 22050 },
			wantErr: "invalid sample rate",
		},
		{
			name:    "bad buffer size",
			mutate:  func(c *Config) { c.Audio.BufferSize = 500 },
			wantErr: "invalid buffer size",
		},
		{
			name:    "no input channels",
			mutate:  func(c *Config) { c.Audio.InputChannels = 0 },
			wantErr: "input channels",
		},
		{
			name:    "monitor channel out of range",
			mutate:  func(c *Config) { c.Audio.MonitorChannel = 1 },
			wantErr: "monitor channel",
		},
		{
			name:    "negative latency",
			mutate:  func(c *Config) { c.LatencyCompensation = -1 },
			wantErr: "latency compensation",
		},
		{
			name:    "bad take format",
			mutate:  func(c *Config) { c.Output.TakeFormat = "mp3" },
			wantErr: "take format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := defaults()
	cfg.Audio.SampleRate = 1
	cfg.Output.TakeFormat = "ogg"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "sample rate") || !strings.Contains(msg, "take format") {
		t.Errorf("error does not report both problems: %q", msg)
	}
}

func TestLatencyFrames(t *testing.T) {
	tests := []struct {
		ms   float64
		rate int
		want int
	}{
		{0, 48000, 0},
		{10, 48000, 480},
		{12.5, 44100, 551},
		{1, 96000, 96},
	}
	for _, tt := range tests {
		cfg := defaults()
		cfg.LatencyCompensation = tt.ms
		cfg.Audio.SampleRate = tt.rate
		if got := cfg.LatencyFrames(); got != tt.want {
			t.Errorf("LatencyFrames(%vms @ %d) = %d, want %d", tt.ms, tt.rate, got, tt.want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/music"); got != filepath.Join(home, "music") {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("expandPath left absolute alone: %q", got)
	}
}
