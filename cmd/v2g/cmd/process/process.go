package process

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"video2guide/internal/app"
	"video2guide/internal/app/pipeline"
	"video2guide/internal/config"
)

var (
	inputDir             string
	configPath           string
	mode                 string
	outputDir            string
	count                int
	overwrite            bool
	preserveIntermediate bool
	showProgress         bool

	log = zap.NewNop()
)

// SetLogger injects the process-wide logger built by the root command.
func SetLogger(l *zap.Logger) {
	log = l
}

func init() {
	Cmd.Flags().StringVarP(&inputDir, "input", "i", "",
		"directory containing the video or audio files to process")
	Cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the pipeline configuration file (YAML)")
	Cmd.Flags().StringVarP(&mode, "mode", "m", "",
		"processing mode: basic, local_ai, api_transcription, api_generation, full_api, hybrid")
	Cmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"output directory for transcripts and guides")
	Cmd.Flags().IntVarP(&count, "count", "n", 0,
		"maximum number of unprocessed files to pick up (0 = all)")
	Cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"regenerate artifacts even when they already exist")
	Cmd.Flags().BoolVar(&preserveIntermediate, "preserve-intermediate", false,
		"keep extracted audio files after processing")
	Cmd.Flags().BoolVar(&showProgress, "progress", false,
		"force the progress bar even when stderr is not a terminal")

	Cmd.MarkFlagRequired("input")
}

// Cmd represents the process command
var Cmd = &cobra.Command{
	Use:   "process",
	Short: "Process a directory of videos into deployment guides",
	Long: `Process every video or audio file in the input directory:

- Extract audio with ffmpeg
- Transcribe through the mode's provider fallback chain, chunking as needed
- Generate a structured markdown guide from the transcript
- Record results in sqlite so finished items are skipped on rerun`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	parsedMode, err := pipeline.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Mode:                 parsedMode,
		OutputDir:            cfg.OutputDir,
		Overwrite:            overwrite,
		PreserveIntermediate: preserveIntermediate || cfg.PreserveIntermediate,
		ShowProgress:         pipeline.ShouldShowProgress(showProgress, os.Stderr),
		QualityThreshold:     cfg.QualityThreshold,
		Language:             cfg.Providers.WhisperCpp.Language,
	}

	p, err := app.InitializePipeline(cfg, opts, log)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.RunBatch(ctx, inputDir, count)
	if err != nil {
		return err
	}
	printSummary(summary)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

func loadConfig() (*config.PipelineConfig, error) {
	var cfg *config.PipelineConfig
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if mode != "" {
		cfg.Mode = mode
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, nil
}

func printSummary(s *pipeline.Summary) {
	fmt.Printf("\nRun %s: %d processed, %d succeeded, %d failed, %d skipped\n",
		s.RunID, s.Total, s.Succeeded, s.Failed, s.Skipped)
	for _, item := range s.Items {
		if item.State == pipeline.StateDone {
			fmt.Printf("  ok   %s (transcribed by %s, guide by %s)\n",
				item.Name, orDash(item.TranscriptionProvider), orDash(item.GenerationProvider))
		} else {
			fmt.Printf("  FAIL %s: %v\n", item.Name, item.Err)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
