// Package config loads and validates the pipeline configuration file.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PipelineConfig is the full configuration surface of a run.
type PipelineConfig struct {
	Mode      string `yaml:"mode" validate:"required,oneof=basic local_ai api_transcription api_generation full_api hybrid"`
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	DBPath    string `yaml:"db_path"`

	ChunkWorkers         int     `yaml:"chunk_workers" validate:"min=0,max=16"`
	QualityThreshold     float64 `yaml:"quality_threshold" validate:"min=0,max=1"`
	PreserveIntermediate bool    `yaml:"preserve_intermediate"`

	Fallback  FallbackConfig  `yaml:"fallback"`
	Providers ProvidersConfig `yaml:"providers"`
	Audio     AudioConfig     `yaml:"audio"`
	Guide     GuideConfig     `yaml:"guide"`
}

// FallbackConfig holds the per-pair fallthrough permissions.
type FallbackConfig struct {
	TranscriptionRemoteToLocal bool `yaml:"transcription_remote_to_local"`
	GenerationRemoteToLocalAI  bool `yaml:"generation_remote_to_local_ai"`
}

type ProvidersConfig struct {
	WhisperCpp    WhisperCppConfig    `yaml:"whispercpp"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	WhisperServer WhisperServerConfig `yaml:"whisper_server"`
	Ollama        OllamaConfig        `yaml:"ollama"`
}

type WhisperCppConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
	Language   string `yaml:"language"`
}

type OpenAIConfig struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url" validate:"omitempty,url"`
	TranscriptionModel string  `yaml:"transcription_model"`
	ChatModel          string  `yaml:"chat_model"`
	Temperature        float32 `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens          int     `yaml:"max_tokens" validate:"min=0"`
}

type WhisperServerConfig struct {
	BaseURL       string `yaml:"base_url" validate:"omitempty,url"`
	InferencePath string `yaml:"inference_path"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`
	TimeoutSec    int    `yaml:"timeout_sec" validate:"min=0"`
}

type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
	NumPredict  int     `yaml:"num_predict" validate:"min=0"`
	AutoPull    bool    `yaml:"auto_pull"`
}

type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate" validate:"omitempty,oneof=8000 16000 22050 44100 48000"`
	Channels   int    `yaml:"channels" validate:"min=0,max=2"`
	Quality    string `yaml:"quality" validate:"omitempty,oneof=low medium high"`
}

type GuideConfig struct {
	TemplateDir  string `yaml:"template_dir"`
	TemplateName string `yaml:"template_name"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, env-expands, defaults, and validates a configuration file.
func Load(configPath string) (*PipelineConfig, error) {
	configPath = os.ExpandEnv(configPath)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from raw YAML.
func Parse(data []byte) (*PipelineConfig, error) {
	expanded := envVarPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})

	var cfg PipelineConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.setDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns a usable configuration without a file on disk.
func Default() *PipelineConfig {
	cfg := &PipelineConfig{
		Mode:      "basic",
		OutputDir: "output",
	}
	cfg.setDefaults()
	return cfg
}

func (c *PipelineConfig) setDefaults() {
	if c.Mode == "" {
		c.Mode = "basic"
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.DBPath == "" {
		c.DBPath = "data/items.db"
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 0.7
	}
	if c.Providers.WhisperCpp.Language == "" {
		c.Providers.WhisperCpp.Language = "en"
	}
	if c.Providers.Ollama.BaseURL == "" {
		c.Providers.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Providers.Ollama.Model == "" {
		c.Providers.Ollama.Model = "llama3.2"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.Quality == "" {
		c.Audio.Quality = "medium"
	}
}
