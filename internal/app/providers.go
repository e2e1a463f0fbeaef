package app

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"video2guide/internal/app/audio"
	"video2guide/internal/app/chunk"
	"video2guide/internal/app/guide"
	"video2guide/internal/app/pipeline"
	"video2guide/internal/app/provider/ollama"
	"video2guide/internal/app/provider/openaiapi"
	"video2guide/internal/app/provider/whispercpp"
	"video2guide/internal/app/provider/whisperserver"
	"video2guide/internal/app/repository"
	"video2guide/internal/app/repository/sqlite"
	"video2guide/internal/app/util/files"
	"video2guide/internal/config"
)

// provideProviders constructs every adapter the configuration enables. Slots
// without configuration stay nil and the mode chains skip them.
func provideProviders(cfg *config.PipelineConfig, log *zap.Logger) pipeline.Providers {
	p := pipeline.Providers{
		Template: guide.NewTemplateGenerator(cfg.Guide.TemplateDir, cfg.Guide.TemplateName, guide.DefaultExtractOptions()),
	}

	if cfg.Providers.WhisperCpp.BinaryPath != "" {
		p.Local = whispercpp.New(
			cfg.Providers.WhisperCpp.BinaryPath,
			cfg.Providers.WhisperCpp.ModelPath,
			cfg.Providers.WhisperCpp.Language,
			log)
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		openaiCfg := openaiapi.Config{
			APIKey:             cfg.Providers.OpenAI.APIKey,
			BaseURL:            cfg.Providers.OpenAI.BaseURL,
			TranscriptionModel: cfg.Providers.OpenAI.TranscriptionModel,
			ChatModel:          cfg.Providers.OpenAI.ChatModel,
			Temperature:        cfg.Providers.OpenAI.Temperature,
			MaxTokens:          cfg.Providers.OpenAI.MaxTokens,
		}
		p.Remote = append(p.Remote, openaiapi.NewTranscriber(openaiCfg, log))
		p.Remote2 = openaiapi.NewGenerator(openaiCfg, log)
	}

	if cfg.Providers.WhisperServer.BaseURL != "" {
		p.Remote = append(p.Remote, whisperserver.New(whisperserver.Config{
			BaseURL:       cfg.Providers.WhisperServer.BaseURL,
			InferencePath: cfg.Providers.WhisperServer.InferencePath,
			Model:         cfg.Providers.WhisperServer.Model,
			APIKey:        cfg.Providers.WhisperServer.APIKey,
			Timeout:       time.Duration(cfg.Providers.WhisperServer.TimeoutSec) * time.Second,
		}, log))
	}

	if cfg.Providers.Ollama.BaseURL != "" {
		p.LocalLLM = ollama.New(ollama.Config{
			BaseURL:     cfg.Providers.Ollama.BaseURL,
			Model:       cfg.Providers.Ollama.Model,
			Temperature: cfg.Providers.Ollama.Temperature,
			NumPredict:  cfg.Providers.Ollama.NumPredict,
			AutoPull:    cfg.Providers.Ollama.AutoPull,
		}, log)
	}

	return p
}

func provideDAO(cfg *config.PipelineConfig) (repository.ItemDAO, error) {
	dbPath := cfg.DBPath
	if !filepath.IsAbs(dbPath) {
		if root, err := files.GetProjectRoot(); err == nil {
			dbPath = filepath.Join(root, dbPath)
		}
	}
	if err := files.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}
	return sqlite.NewItemDB(dbPath)
}

func provideExtractor(cfg *config.PipelineConfig) *audio.Extractor {
	return audio.NewExtractor(audio.ExtractorConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Quality:    cfg.Audio.Quality,
	})
}

func provideSlicer() chunk.Slicer {
	return audio.NewChunkSlicer()
}

func provideExecutor(cfg *config.PipelineConfig, slicer chunk.Slicer, log *zap.Logger) *chunk.Executor {
	return chunk.NewExecutor(slicer, log, cfg.ChunkWorkers)
}

func provideStageRunner(cfg *config.PipelineConfig, executor *chunk.Executor, log *zap.Logger) *pipeline.StageRunner {
	return pipeline.NewStageRunner(pipeline.FallbackFlags{
		TranscriptionRemoteToLocal: cfg.Fallback.TranscriptionRemoteToLocal,
		GenerationRemoteToLocalAI:  cfg.Fallback.GenerationRemoteToLocalAI,
	}, executor, log)
}
