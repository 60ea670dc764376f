package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level string `yaml:"level"`
}

type ModelConfig struct {
	Path     string `yaml:"path"`
	Alphabet string `yaml:"alphabet"`
	LM       string `yaml:"lm"`
	Trie     string `yaml:"trie"`
}

type FeatureConfig struct {
	SampleRate int  `yaml:"sample_rate"`
	NCep       int  `yaml:"ncep"`
	NContext   int  `yaml:"ncontext"`
	Stride     int  `yaml:"stride"`
	UseCMN     bool `yaml:"use_cmn"`
	Whiten     bool `yaml:"whiten"`
}

type DecoderConfig struct {
	BeamWidth            int     `yaml:"beam_width"`
	TopPaths             int     `yaml:"top_paths"`
	Parallelism          int     `yaml:"parallelism"`
	LMWeight             float64 `yaml:"lm_weight"`
	WordCountWeight      float64 `yaml:"word_count_weight"`
	ValidWordCountWeight float64 `yaml:"valid_word_count_weight"`
	PrefixLookahead      bool    `yaml:"prefix_lookahead"`
}

type ONNXConfig struct {
	InputName   string `yaml:"input_name"`
	LengthName  string `yaml:"length_name"`
	OutputName  string `yaml:"output_name"`
	LibraryPath string `yaml:"library_path"`
}

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Model   ModelConfig   `yaml:"model"`
	Feature FeatureConfig `yaml:"feature"`
	Decoder DecoderConfig `yaml:"decoder"`
	ONNX    ONNXConfig    `yaml:"onnx"`
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Feature: FeatureConfig{
			SampleRate: 16000,
			NCep:       26,
			NContext:   9,
			Stride:     2,
			Whiten:     true,
		},
		Decoder: DecoderConfig{
			BeamWidth:            500,
			TopPaths:             1,
			Parallelism:          1,
			LMWeight:             1.75,
			WordCountWeight:      1.0,
			ValidWordCountWeight: 1.0,
		},
		ONNX: ONNXConfig{
			InputName:  "input_node",
			LengthName: "input_lengths",
			OutputName: "Reshape_3",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// CTCSPEECH_* environment overrides and validates the result.
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

// SlogLevel maps the configured level name onto a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Log.Level, "CTCSPEECH_LOG_LEVEL")
	overrideString(&cfg.Model.Path, "CTCSPEECH_MODEL_PATH")
	overrideString(&cfg.Model.Alphabet, "CTCSPEECH_MODEL_ALPHABET")
	overrideString(&cfg.Model.LM, "CTCSPEECH_MODEL_LM")
	overrideString(&cfg.Model.Trie, "CTCSPEECH_MODEL_TRIE")
	overrideInt(&cfg.Feature.SampleRate, "CTCSPEECH_FEATURE_SAMPLE_RATE")
	overrideInt(&cfg.Feature.NCep, "CTCSPEECH_FEATURE_NCEP")
	overrideInt(&cfg.Feature.NContext, "CTCSPEECH_FEATURE_NCONTEXT")
	overrideInt(&cfg.Feature.Stride, "CTCSPEECH_FEATURE_STRIDE")
	overrideBool(&cfg.Feature.UseCMN, "CTCSPEECH_FEATURE_USE_CMN")
	overrideBool(&cfg.Feature.Whiten, "CTCSPEECH_FEATURE_WHITEN")
	overrideInt(&cfg.Decoder.BeamWidth, "CTCSPEECH_DECODER_BEAM_WIDTH")
	overrideInt(&cfg.Decoder.TopPaths, "CTCSPEECH_DECODER_TOP_PATHS")
	overrideInt(&cfg.Decoder.Parallelism, "CTCSPEECH_DECODER_PARALLELISM")
	overrideFloat(&cfg.Decoder.LMWeight, "CTCSPEECH_DECODER_LM_WEIGHT")
	overrideFloat(&cfg.Decoder.WordCountWeight, "CTCSPEECH_DECODER_WORD_COUNT_WEIGHT")
	overrideFloat(&cfg.Decoder.ValidWordCountWeight, "CTCSPEECH_DECODER_VALID_WORD_COUNT_WEIGHT")
	overrideBool(&cfg.Decoder.PrefixLookahead, "CTCSPEECH_DECODER_PREFIX_LOOKAHEAD")
	overrideString(&cfg.ONNX.InputName, "CTCSPEECH_ONNX_INPUT_NAME")
	overrideString(&cfg.ONNX.LengthName, "CTCSPEECH_ONNX_LENGTH_NAME")
	overrideString(&cfg.ONNX.OutputName, "CTCSPEECH_ONNX_OUTPUT_NAME")
	overrideString(&cfg.ONNX.LibraryPath, "CTCSPEECH_ONNX_LIBRARY_PATH")
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

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug|info|warn|error")
	}
	if cfg.Model.Trie != "" && cfg.Model.LM == "" {
		return errors.New("model.trie requires model.lm")
	}
	if cfg.Feature.SampleRate <= 0 {
		return errors.New("feature.sample_rate must be positive")
	}
	if cfg.Feature.NCep <= 0 {
		return errors.New("feature.ncep must be positive")
	}
	if cfg.Feature.NContext < 0 {
		return errors.New("feature.ncontext must be >= 0")
	}
	if cfg.Feature.Stride <= 0 {
		return errors.New("feature.stride must be positive")
	}
	if cfg.Decoder.BeamWidth <= 0 {
		return errors.New("decoder.beam_width must be positive")
	}
	if cfg.Decoder.TopPaths <= 0 {
		return errors.New("decoder.top_paths must be positive")
	}
	if cfg.Decoder.Parallelism <= 0 {
		return errors.New("decoder.parallelism must be positive")
	}
	if cfg.ONNX.InputName == "" || cfg.ONNX.LengthName == "" || cfg.ONNX.OutputName == "" {
		return errors.New("onnx input/length/output names must not be empty")
	}
	return nil
}
