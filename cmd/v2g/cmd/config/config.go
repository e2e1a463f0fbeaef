package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"video2guide/internal/config"
)

const exampleConfig = `# video2guide pipeline configuration
mode: basic
output_dir: output
db_path: data/items.db

# 0 keeps chunk transcription sequential; higher values bound a worker pool.
chunk_workers: 0
quality_threshold: 0.7
preserve_intermediate: false

fallback:
  transcription_remote_to_local: true
  generation_remote_to_local_ai: true

providers:
  whispercpp:
    binary_path: ${WHISPER_CPP_BINARY}
    model_path: ${WHISPER_CPP_MODEL}
    language: en
  openai:
    api_key: ${OPENAI_API_KEY}
    transcription_model: whisper-1
    chat_model: gpt-4o-mini
    temperature: 0.3
    max_tokens: 4000
  whisper_server:
    base_url: ""
    model: whisper-1
    timeout_sec: 120
  ollama:
    base_url: http://localhost:11434
    model: llama3.2
    temperature: 0.3
    num_predict: 4000
    auto_pull: false

audio:
  sample_rate: 16000
  channels: 1
  quality: medium
`

// Cmd represents the config command
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the pipeline configuration file",
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "v2g.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", path)
		}
		if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s is valid (mode: %s, output: %s)\n", args[0], cfg.Mode, cfg.OutputDir)
		return nil
	},
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(validateCmd)
}
