package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type ImageConfig struct {
	MaxWidth    int `yaml:"max_width"`
	MaxHeight   int `yaml:"max_height"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

type VisionConfig struct {
	Mode      string `yaml:"mode"` // mock, google
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	MaxLabels int    `yaml:"max_labels"`
}

type NarratorConfig struct {
	Mode       string `yaml:"mode"` // mock, gemini
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	PromptFile string `yaml:"prompt_file"`
}

type SynthConfig struct {
	Mode       string `yaml:"mode"` // mock, gemini, exec
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Voice      string `yaml:"voice"`
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type PipelineConfig struct {
	MinWords         int    `yaml:"min_words"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
	MaxIdleMS        int    `yaml:"max_idle_ms"`
	WordCountFirst   bool   `yaml:"word_count_first"`
	MaxSynthAttempts int    `yaml:"max_synth_attempts"` // 0 = retry until stream ends
	TmpDir           string `yaml:"tmp_dir"`
}

type PlayerConfig struct {
	Command string `yaml:"command"`
	Probe   string `yaml:"probe"`
}

type PlaybackConfig struct {
	Enabled bool           `yaml:"enabled"`
	Players []PlayerConfig `yaml:"players"`
}

type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Image       ImageConfig     `yaml:"image"`
	Vision      VisionConfig    `yaml:"vision"`
	Narrator    NarratorConfig  `yaml:"narrator"`
	Synth       SynthConfig     `yaml:"synth"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Playback    PlaybackConfig  `yaml:"playback"`
	Cache       CacheConfig     `yaml:"cache"`
}

func Default() Config {
	return Config{
		RuntimeName: "scenevoice-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Image: ImageConfig{
			MaxWidth:    640,
			MaxHeight:   480,
			JPEGQuality: 75,
		},
		Vision: VisionConfig{
			Mode:      "mock",
			Endpoint:  "https://vision.googleapis.com",
			MaxLabels: 10,
		},
		Narrator: NarratorConfig{
			Mode:       "mock",
			Endpoint:   "https://generativelanguage.googleapis.com",
			Model:      "gemini-2.5-flash-lite",
			PromptFile: "prompts.yaml",
		},
		Synth: SynthConfig{
			Mode:       "mock",
			Endpoint:   "https://generativelanguage.googleapis.com",
			Model:      "gemini-2.5-flash-preview-tts",
			Voice:      "Kore",
			SampleRate: 24000,
			Channels:   1,
		},
		Pipeline: PipelineConfig{
			MinWords:         8,
			PollIntervalMS:   300,
			MaxIdleMS:        1500,
			WordCountFirst:   false,
			MaxSynthAttempts: 0,
		},
		Playback: PlaybackConfig{
			Enabled: true,
			Players: []PlayerConfig{
				{Command: "mpv --no-terminal", Probe: "--version"},
				{Command: "ffplay -nodisp -autoexit -loglevel error", Probe: "-version"},
				{Command: "mpg123 -q", Probe: "--version"},
				{Command: "aplay -q", Probe: "--version"},
			},
		},
		Cache: CacheConfig{
			Enabled:       false,
			Path:          "./data/scenevoice-segments.db",
			RetentionDays: 7,
			MaxEntries:    2000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "SCENEVOICE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "SCENEVOICE_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SCENEVOICE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SCENEVOICE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "SCENEVOICE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SCENEVOICE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SCENEVOICE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "SCENEVOICE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "SCENEVOICE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SCENEVOICE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "SCENEVOICE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "SCENEVOICE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "SCENEVOICE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "SCENEVOICE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "SCENEVOICE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "SCENEVOICE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "SCENEVOICE_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Image.MaxWidth, "SCENEVOICE_IMAGE_MAX_WIDTH")
	overrideInt(&cfg.Image.MaxHeight, "SCENEVOICE_IMAGE_MAX_HEIGHT")
	overrideInt(&cfg.Image.JPEGQuality, "SCENEVOICE_IMAGE_JPEG_QUALITY")
	overrideString(&cfg.Vision.Mode, "SCENEVOICE_VISION_MODE")
	overrideString(&cfg.Vision.Endpoint, "SCENEVOICE_VISION_ENDPOINT")
	overrideString(&cfg.Vision.APIKey, "SCENEVOICE_VISION_API_KEY")
	overrideInt(&cfg.Vision.MaxLabels, "SCENEVOICE_VISION_MAX_LABELS")
	overrideString(&cfg.Narrator.Mode, "SCENEVOICE_NARRATOR_MODE")
	overrideString(&cfg.Narrator.Endpoint, "SCENEVOICE_NARRATOR_ENDPOINT")
	overrideString(&cfg.Narrator.APIKey, "SCENEVOICE_NARRATOR_API_KEY")
	overrideString(&cfg.Narrator.Model, "SCENEVOICE_NARRATOR_MODEL")
	overrideString(&cfg.Narrator.PromptFile, "SCENEVOICE_NARRATOR_PROMPT_FILE")
	overrideString(&cfg.Synth.Mode, "SCENEVOICE_SYNTH_MODE")
	overrideString(&cfg.Synth.Endpoint, "SCENEVOICE_SYNTH_ENDPOINT")
	overrideString(&cfg.Synth.APIKey, "SCENEVOICE_SYNTH_API_KEY")
	overrideString(&cfg.Synth.Model, "SCENEVOICE_SYNTH_MODEL")
	overrideString(&cfg.Synth.Voice, "SCENEVOICE_SYNTH_VOICE")
	overrideString(&cfg.Synth.Command, "SCENEVOICE_SYNTH_COMMAND")
	overrideInt(&cfg.Synth.SampleRate, "SCENEVOICE_SYNTH_SAMPLE_RATE")
	overrideInt(&cfg.Synth.Channels, "SCENEVOICE_SYNTH_CHANNELS")
	overrideInt(&cfg.Pipeline.MinWords, "SCENEVOICE_PIPELINE_MIN_WORDS")
	overrideInt(&cfg.Pipeline.PollIntervalMS, "SCENEVOICE_PIPELINE_POLL_INTERVAL_MS")
	overrideInt(&cfg.Pipeline.MaxIdleMS, "SCENEVOICE_PIPELINE_MAX_IDLE_MS")
	overrideBool(&cfg.Pipeline.WordCountFirst, "SCENEVOICE_PIPELINE_WORD_COUNT_FIRST")
	overrideInt(&cfg.Pipeline.MaxSynthAttempts, "SCENEVOICE_PIPELINE_MAX_SYNTH_ATTEMPTS")
	overrideString(&cfg.Pipeline.TmpDir, "SCENEVOICE_PIPELINE_TMP_DIR")
	overrideBool(&cfg.Playback.Enabled, "SCENEVOICE_PLAYBACK_ENABLED")
	overrideBool(&cfg.Cache.Enabled, "SCENEVOICE_CACHE_ENABLED")
	overrideString(&cfg.Cache.Path, "SCENEVOICE_CACHE_PATH")
	overrideInt(&cfg.Cache.RetentionDays, "SCENEVOICE_CACHE_RETENTION_DAYS")
	overrideInt(&cfg.Cache.MaxEntries, "SCENEVOICE_CACHE_MAX_ENTRIES")
	overrideBool(&cfg.Cache.VacuumOnStart, "SCENEVOICE_CACHE_VACUUM_ON_START")

	// The original deployment exposes a single Gemini credential; honor it as
	// a fallback for both remote backends so one env var is enough to go live.
	if key, ok := os.LookupEnv("GEMINI_API_KEY"); ok && strings.TrimSpace(key) != "" {
		if cfg.Narrator.APIKey == "" {
			cfg.Narrator.APIKey = key
		}
		if cfg.Synth.APIKey == "" {
			cfg.Synth.APIKey = key
		}
	}
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Image.MaxWidth <= 0 || cfg.Image.MaxHeight <= 0 {
		return errors.New("image.max_width and image.max_height must be positive")
	}
	if cfg.Image.JPEGQuality < 1 || cfg.Image.JPEGQuality > 100 {
		return errors.New("image.jpeg_quality must be between 1 and 100")
	}
	switch cfg.Vision.Mode {
	case "mock", "google":
	default:
		return errors.New("vision.mode must be one of mock|google")
	}
	if cfg.Vision.Mode == "google" && cfg.Vision.APIKey == "" {
		return errors.New("vision.api_key must be set when mode=google")
	}
	switch cfg.Narrator.Mode {
	case "mock", "gemini":
	default:
		return errors.New("narrator.mode must be one of mock|gemini")
	}
	if cfg.Narrator.Mode == "gemini" {
		if cfg.Narrator.APIKey == "" {
			return errors.New("narrator.api_key must be set when mode=gemini")
		}
		if cfg.Narrator.Model == "" {
			return errors.New("narrator.model must be set when mode=gemini")
		}
	}
	switch cfg.Synth.Mode {
	case "mock", "gemini", "exec":
	default:
		return errors.New("synth.mode must be one of mock|gemini|exec")
	}
	if cfg.Synth.Mode == "gemini" && cfg.Synth.APIKey == "" {
		return errors.New("synth.api_key must be set when mode=gemini")
	}
	if cfg.Synth.Mode == "exec" && cfg.Synth.Command == "" {
		return errors.New("synth.command must be set when mode=exec")
	}
	if cfg.Synth.SampleRate <= 0 {
		return errors.New("synth.sample_rate must be positive")
	}
	if cfg.Synth.Channels <= 0 {
		return errors.New("synth.channels must be positive")
	}
	if cfg.Pipeline.MinWords <= 0 {
		return errors.New("pipeline.min_words must be positive")
	}
	if cfg.Pipeline.PollIntervalMS <= 0 {
		return errors.New("pipeline.poll_interval_ms must be positive")
	}
	if cfg.Pipeline.MaxIdleMS < cfg.Pipeline.PollIntervalMS {
		return errors.New("pipeline.max_idle_ms must be >= pipeline.poll_interval_ms")
	}
	if cfg.Pipeline.MaxSynthAttempts < 0 {
		return errors.New("pipeline.max_synth_attempts must be >= 0")
	}
	if cfg.Playback.Enabled {
		for _, p := range cfg.Playback.Players {
			if strings.TrimSpace(p.Command) == "" {
				return errors.New("playback.players entries must have a command")
			}
		}
	}
	if cfg.Cache.Enabled {
		if cfg.Cache.Path == "" {
			return errors.New("cache.path must not be empty when cache is enabled")
		}
		if cfg.Cache.RetentionDays < 0 {
			return errors.New("cache.retention_days must be >= 0")
		}
		if cfg.Cache.MaxEntries < 0 {
			return errors.New("cache.max_entries must be >= 0")
		}
	}
	return nil
}
