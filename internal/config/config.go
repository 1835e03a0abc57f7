// ABOUTME: Configuration resolution for the server binary
// ABOUTME: Merges defaults, flags, a YAML file, and TACTUS_ environment variables
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tactus-audio/tactus-go/internal/dsp"
	"github.com/tactus-audio/tactus-go/pkg/audio"
)

const (
	// DefaultConfigName is the config file searched for when no
	// explicit path is given.
	DefaultConfigName = "tactus"

	// EnvPrefix namespaces environment overrides, e.g. TACTUS_SERVER_PORT.
	EnvPrefix = "TACTUS"
)

// Config is the resolved server configuration.
type Config struct {
	Server Server `mapstructure:"server"`
	Audio  Audio  `mapstructure:"audio"`
	Source Source `mapstructure:"source"`
	Engine Engine `mapstructure:"engine"`
	Sync   Sync   `mapstructure:"sync"`
	DSP    DSP    `mapstructure:"dsp"`
	Log    Log    `mapstructure:"log"`
}

// Server configures the WebSocket endpoint and its announcements.
type Server struct {
	Port        int           `mapstructure:"port"`
	Name        string        `mapstructure:"name"`
	MDNS        bool          `mapstructure:"mdns"`
	Metrics     bool          `mapstructure:"metrics"`
	BufferAhead time.Duration `mapstructure:"buffer_ahead"`
}

// Audio is the stream format to produce.
type Audio struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
	BitDepth   int `mapstructure:"bit_depth"`
}

// Source selects what to stream. An empty path plays the test tone.
type Source struct {
	Path     string  `mapstructure:"path"`
	ToneFreq float64 `mapstructure:"tone_freq"`
}

// Engine tunes the transfer loop.
type Engine struct {
	Period time.Duration `mapstructure:"period"`
	Buffer time.Duration `mapstructure:"buffer"`
}

// Sync tunes the rate synchronizer.
type Sync struct {
	StartThreshold uint64  `mapstructure:"start_threshold"`
	StartupDamping float64 `mapstructure:"startup_damping"`
}

// DSP configures an optional external processor between source and
// subscribers. Disabled when Path is empty.
type DSP struct {
	Path              string        `mapstructure:"path"`
	ConfigIn          string        `mapstructure:"config_in"`
	ConfigOut         string        `mapstructure:"config_out"`
	ConfigCmd         string        `mapstructure:"config_cmd"`
	Args              []string      `mapstructure:"args"`
	ExtraSamples      uint64        `mapstructure:"extra_samples"`
	ExtraSamples44100 uint64        `mapstructure:"extra_samples_44100"`
	ExtraSamples48000 uint64        `mapstructure:"extra_samples_48000"`
	CloseTimeout      time.Duration `mapstructure:"close_timeout"`
}

// Log configures the global logger.
type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load resolves the configuration from defaults, command line flags, a
// YAML config file, and environment variables. Flags win over the
// environment, the environment wins over the file, the file wins over
// defaults.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("tactus-server", pflag.ContinueOnError)
	flags.Int("port", 9730, "WebSocket listen port")
	flags.String("name", "Tactus Server", "advertised server name")
	flags.Bool("mdns", true, "announce the server over mDNS")
	flags.Bool("metrics", true, "serve Prometheus metrics on /metrics")
	flags.String("source", "", "audio file to stream, test tone when empty")
	flags.String("config_file", "", "configuration file path")
	flags.String("level", "info", "log level")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	bindings := map[string]string{
		"server.port":    "port",
		"server.name":    "name",
		"server.mdns":    "mdns",
		"server.metrics": "metrics",
		"source.path":    "source",
		"log.level":      "level",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	configFile, _ := flags.GetString("config_file")
	if configFile != "" {
		// An explicit file must exist
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		for _, path := range configPaths() {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else {
			log.Debugf("read config file %s", v.ConfigFileUsed())
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9730)
	v.SetDefault("server.name", "Tactus Server")
	v.SetDefault("server.mdns", true)
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.buffer_ahead", 500*time.Millisecond)

	v.SetDefault("audio.sample_rate", 48000)
	v.SetDefault("audio.channels", 2)
	v.SetDefault("audio.bit_depth", 16)

	v.SetDefault("source.path", "")
	v.SetDefault("source.tone_freq", 440.0)

	v.SetDefault("engine.period", 20*time.Millisecond)
	v.SetDefault("engine.buffer", 100*time.Millisecond)

	v.SetDefault("sync.start_threshold", 200000)
	v.SetDefault("sync.startup_damping", 0.5)

	// Registered so environment overrides resolve for these keys too
	v.SetDefault("dsp.path", "")
	v.SetDefault("dsp.config_in", "")
	v.SetDefault("dsp.config_out", "")
	v.SetDefault("dsp.config_cmd", "")
	v.SetDefault("dsp.extra_samples", 0)
	v.SetDefault("dsp.extra_samples_44100", 0)
	v.SetDefault("dsp.extra_samples_48000", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func configPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home+"/.config/tactus")
	}
	paths = append(paths, "/etc/tactus")
	return paths
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}

	format := audio.Format{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BitDepth:   c.Audio.BitDepth,
	}
	if err := format.Validate(); err != nil {
		return fmt.Errorf("invalid audio format: %w", err)
	}

	if c.Engine.Period <= 0 {
		return fmt.Errorf("invalid engine period %v", c.Engine.Period)
	}

	if d := c.Sync.StartupDamping; d < 0 || d > 1 {
		return fmt.Errorf("startup damping %v outside (0, 1]", d)
	}

	if c.DSP.Path != "" && c.DSP.ConfigIn != "" && c.DSP.ConfigCmd != "" {
		return fmt.Errorf("dsp config_in and config_cmd are mutually exclusive")
	}

	return nil
}

// Format returns the configured stream format.
func (c *Config) Format() audio.Format {
	return audio.Format{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BitDepth:   c.Audio.BitDepth,
	}
}

// DSPOptions maps the dsp section onto processor options. Nil when no
// processor is configured.
func (c *Config) DSPOptions() *dsp.Options {
	if c.DSP.Path == "" {
		return nil
	}
	return &dsp.Options{
		Path:              c.DSP.Path,
		ConfigIn:          c.DSP.ConfigIn,
		ConfigOut:         c.DSP.ConfigOut,
		ConfigCmd:         c.DSP.ConfigCmd,
		Args:              c.DSP.Args,
		ExtraSamples:      c.DSP.ExtraSamples,
		ExtraSamples44100: c.DSP.ExtraSamples44100,
		ExtraSamples48000: c.DSP.ExtraSamples48000,
		CloseTimeout:      c.DSP.CloseTimeout,
	}
}

// InitLog applies the log section to the process-wide logger.
func InitLog(cfg Log) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)
	log.SetReportCaller(level == log.DebugLevel)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		log.SetOutput(f)
	}

	return nil
}
