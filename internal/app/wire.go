//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"video2guide/internal/app/pipeline"
	"video2guide/internal/config"
)

func InitializePipeline(cfg *config.PipelineConfig, opts pipeline.Options, log *zap.Logger) (*pipeline.Pipeline, error) {
	wire.Build(
		pipeline.New,
		provideProviders,
		provideStageRunner,
		provideExecutor,
		provideSlicer,
		provideExtractor,
		provideDAO,
	)
	return nil, nil
}
