package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	configcmd "video2guide/cmd/v2g/cmd/config"
	"video2guide/cmd/v2g/cmd/process"
	"video2guide/cmd/v2g/cmd/version"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "v2g",
	Short: "Convert long-form instructional videos into structured deployment guides",
	Long: `v2g extracts audio from videos, transcribes it with a configurable chain of
local and remote speech-to-text backends, and turns the transcript into a
markdown deployment guide.
- Point it at a directory of video or audio files
- Pick a processing mode to trade cost against quality
- Processed items are recorded in sqlite so reruns skip finished work`,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(process.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "verbose output")
	cobra.OnInitialize(func() {
		process.SetLogger(newLogger(verbose))
	})
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
