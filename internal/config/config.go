package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Server   ServerConfig  `mapstructure:"server"`
	TTS      TTSConfig     `mapstructure:"tts"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	ModelPath     string `mapstructure:"model_path"`
	VoicesPath    string `mapstructure:"voices_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type ServerConfig struct {
	ListenAddr       string `mapstructure:"listen_addr"`
	APIKey           string `mapstructure:"api_key"`
	Workers          int    `mapstructure:"workers"`
	MaxInputChars    int    `mapstructure:"max_input_chars"`
	AdmissionTimeout int    `mapstructure:"admission_timeout"` // seconds; 0 disables
	ShutdownTimeout  int    `mapstructure:"shutdown_timeout"`  // seconds
	StreamBuffer     int    `mapstructure:"stream_buffer"`     // chunks buffered per streaming response
}

type TTSConfig struct {
	DefaultVoice  string `mapstructure:"default_voice"`
	MaxChunkChars int    `mapstructure:"max_chunk_chars"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ModelPath:     "models/kokoro.onnx",
			VoicesPath:    "models/voices.json",
			TokenizerPath: "models/tokenizer.model",
		},
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTAPIVersion:  0,
		},
		Server: ServerConfig{
			ListenAddr:       ":8000",
			APIKey:           "",
			Workers:          1,
			MaxInputChars:    4096,
			AdmissionTimeout: 30,
			ShutdownTimeout:  30,
			StreamBuffer:     8,
		},
		TTS: TTSConfig{
			DefaultVoice:  "af_alloy",
			MaxChunkChars: 300,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-model-path", defaults.Paths.ModelPath, "Path to the Kokoro ONNX model")
	fs.String("paths-voices-path", defaults.Paths.VoicesPath, "Path to the voice style table (JSON)")
	fs.String("paths-tokenizer-path", defaults.Paths.TokenizerPath, "Path to the SentencePiece tokenizer model")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to the ONNX Runtime shared library")
	fs.Uint32("runtime-ort-api-version", defaults.Runtime.ORTAPIVersion, "ONNX Runtime C API version (0 = default)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.String("server-api-key", defaults.Server.APIKey, "Bearer token required on API routes (empty disables auth)")
	fs.Int("server-workers", defaults.Server.Workers, "Number of exclusive inference workers (1-8)")
	fs.Int("server-max-input-chars", defaults.Server.MaxInputChars, "Maximum input length in characters")
	fs.Int("server-admission-timeout", defaults.Server.AdmissionTimeout, "Seconds to wait for a free worker before 503 (0 = wait forever)")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("server-stream-buffer", defaults.Server.StreamBuffer, "Chunks buffered per streaming response")
	fs.String("tts-default-voice", defaults.TTS.DefaultVoice, "Voice used when a request omits one")
	fs.Int("tts-max-chunk-chars", defaults.TTS.MaxChunkChars, "Maximum characters per incremental synthesis unit")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("KOKORO")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("server.api_key", "KOKORO_API_KEY", "API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("kokorod")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks startup invariants. A violation here is fatal: the
// server must not come up degraded.
func (c Config) Validate() error {
	if c.Server.Workers < 1 || c.Server.Workers > 8 {
		return fmt.Errorf("server workers must be between 1 and 8, got %d", c.Server.Workers)
	}

	if c.Server.MaxInputChars < 1 {
		return fmt.Errorf("server max input chars must be positive, got %d", c.Server.MaxInputChars)
	}

	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return fmt.Errorf("server listen address must not be empty")
	}

	if c.Server.AdmissionTimeout < 0 {
		return fmt.Errorf("server admission timeout must not be negative, got %d", c.Server.AdmissionTimeout)
	}

	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.model_path", c.Paths.ModelPath)
	v.SetDefault("paths.voices_path", c.Paths.VoicesPath)
	v.SetDefault("paths.tokenizer_path", c.Paths.TokenizerPath)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.api_key", c.Server.APIKey)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_input_chars", c.Server.MaxInputChars)
	v.SetDefault("server.admission_timeout", c.Server.AdmissionTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.stream_buffer", c.Server.StreamBuffer)
	v.SetDefault("tts.default_voice", c.TTS.DefaultVoice)
	v.SetDefault("tts.max_chunk_chars", c.TTS.MaxChunkChars)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.model_path", "paths-model-path")
	v.RegisterAlias("paths.voices_path", "paths-voices-path")
	v.RegisterAlias("paths.tokenizer_path", "paths-tokenizer-path")
	v.RegisterAlias("runtime.ort_library_path", "runtime-ort-library-path")
	v.RegisterAlias("runtime.ort_api_version", "runtime-ort-api-version")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.api_key", "server-api-key")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.max_input_chars", "server-max-input-chars")
	v.RegisterAlias("server.admission_timeout", "server-admission-timeout")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("server.stream_buffer", "server-stream-buffer")
	v.RegisterAlias("tts.default_voice", "tts-default-voice")
	v.RegisterAlias("tts.max_chunk_chars", "tts-max-chunk-chars")
	v.RegisterAlias("log_level", "log-level")
}
