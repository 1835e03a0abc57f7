// ABOUTME: Tests for configuration loading and validation
// ABOUTME: Covers defaults, file merging, flag and environment overrides
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9730 {
		t.Errorf("expected default port 9730, got %d", cfg.Server.Port)
	}

	if cfg.Server.Name != "Tactus Server" {
		t.Errorf("expected default name 'Tactus Server', got '%s'", cfg.Server.Name)
	}

	if !cfg.Server.MDNS {
		t.Error("expected mDNS enabled by default")
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 || cfg.Audio.BitDepth != 16 {
		t.Errorf("unexpected default format: %+v", cfg.Audio)
	}

	if cfg.Engine.Period != 20*time.Millisecond {
		t.Errorf("expected default period 20ms, got %v", cfg.Engine.Period)
	}

	if cfg.Sync.StartThreshold != 200000 {
		t.Errorf("expected default start threshold 200000, got %d", cfg.Sync.StartThreshold)
	}

	if cfg.Sync.StartupDamping != 0.5 {
		t.Errorf("expected default damping 0.5, got %v", cfg.Sync.StartupDamping)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	content := `
server:
  port: 9999
  name: Living Room
  mdns: false
  buffer_ahead: 250ms
audio:
  sample_rate: 44100
engine:
  period: 50ms
sync:
  start_threshold: 100000
  startup_damping: 0.25
dsp:
  path: /usr/bin/camilladsp
  config_in: /etc/tactus/camilla.yml.in
  config_out: /tmp/camilla.yml
  extra_samples_44100: 8192
  extra_samples_48000: 8916
log:
  level: warn
`
	path := filepath.Join(t.TempDir(), "tactus.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--config_file", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}

	if cfg.Server.Name != "Living Room" {
		t.Errorf("expected name 'Living Room', got '%s'", cfg.Server.Name)
	}

	if cfg.Server.MDNS {
		t.Error("expected mDNS disabled")
	}

	if cfg.Server.BufferAhead != 250*time.Millisecond {
		t.Errorf("expected buffer_ahead 250ms, got %v", cfg.Server.BufferAhead)
	}

	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", cfg.Audio.SampleRate)
	}

	// Unset keys keep their defaults
	if cfg.Audio.Channels != 2 {
		t.Errorf("expected default channels 2, got %d", cfg.Audio.Channels)
	}

	if cfg.Engine.Period != 50*time.Millisecond {
		t.Errorf("expected period 50ms, got %v", cfg.Engine.Period)
	}

	if cfg.Sync.StartThreshold != 100000 {
		t.Errorf("expected start threshold 100000, got %d", cfg.Sync.StartThreshold)
	}

	if cfg.DSP.Path != "/usr/bin/camilladsp" {
		t.Errorf("unexpected dsp path '%s'", cfg.DSP.Path)
	}

	if cfg.DSP.ExtraSamples48000 != 8916 {
		t.Errorf("expected extra_samples_48000 8916, got %d", cfg.DSP.ExtraSamples48000)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn', got '%s'", cfg.Log.Level)
	}
}

func TestLoadFlagOverridesFile(t *testing.T) {
	content := "server:\n  port: 1234\n"
	path := filepath.Join(t.TempDir(), "tactus.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--config_file", path, "--port", "4321"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 4321 {
		t.Errorf("expected flag port 4321 to win, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TACTUS_SERVER_PORT", "8888")
	t.Setenv("TACTUS_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("expected env port 8888, got %d", cfg.Server.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected env log level 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load([]string{"--config_file", "/nonexistent/tactus.yaml"})
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	_, err := Load([]string{"--no_such_flag"})
	if err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: Server{Port: 9730},
			Audio:  Audio{SampleRate: 48000, Channels: 2, BitDepth: 16},
			Engine: Engine{Period: 20 * time.Millisecond},
			Sync:   Sync{StartupDamping: 0.5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "bad bit depth",
			mutate:  func(c *Config) { c.Audio.BitDepth = 20 },
			wantErr: "invalid audio format",
		},
		{
			name:    "zero period",
			mutate:  func(c *Config) { c.Engine.Period = 0 },
			wantErr: "invalid engine period",
		},
		{
			name:    "damping above one",
			mutate:  func(c *Config) { c.Sync.StartupDamping = 1.5 },
			wantErr: "damping",
		},
		{
			name: "dsp template and command together",
			mutate: func(c *Config) {
				c.DSP.Path = "/usr/bin/dsp"
				c.DSP.ConfigIn = "in.yml"
				c.DSP.ConfigCmd = "gen.sh"
			},
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	cfg := &Config{Audio: Audio{SampleRate: 44100, Channels: 1, BitDepth: 24}}

	f := cfg.Format()
	if f.SampleRate != 44100 || f.Channels != 1 || f.BitDepth != 24 {
		t.Errorf("unexpected format %+v", f)
	}
}

func TestDSPOptions(t *testing.T) {
	cfg := &Config{}
	if cfg.DSPOptions() != nil {
		t.Error("expected nil options without a dsp path")
	}

	cfg.DSP = DSP{
		Path:              "/usr/bin/camilladsp",
		ConfigIn:          "in.yml",
		ConfigOut:         "out.yml",
		ExtraSamples48000: 8916,
	}

	opts := cfg.DSPOptions()
	if opts == nil {
		t.Fatal("expected options for a configured processor")
	}

	if opts.Path != "/usr/bin/camilladsp" || opts.ConfigIn != "in.yml" {
		t.Errorf("unexpected options %+v", opts)
	}

	if opts.ExtraSamples48000 != 8916 {
		t.Errorf("expected extra samples carried over, got %d", opts.ExtraSamples48000)
	}
}

func TestInitLog(t *testing.T) {
	oldLevel := log.GetLevel()
	defer func() {
		log.SetLevel(oldLevel)
		log.SetReportCaller(false)
	}()

	if err := InitLog(Log{Level: "warn"}); err != nil {
		t.Fatalf("InitLog() error = %v", err)
	}

	if log.GetLevel() != log.WarnLevel {
		t.Errorf("expected warn level, got %v", log.GetLevel())
	}

	if err := InitLog(Log{Level: "nonsense"}); err == nil {
		t.Error("expected error for invalid level")
	}
}
