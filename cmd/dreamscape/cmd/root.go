// cmd/dreamscape/cmd/root.go

// Package cmd contains the DreamScape CLI commands.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/Corphon/DreamScape/internal/interpreter"
	"github.com/Corphon/DreamScape/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "dreamscape",
	Short: "Turn dream narrations into explorable scenes",
	Long: `DreamScape interprets a spoken or written dream narration into a scene
model (mood, palette, elements, lighting, fog) and renders it in 2D or 3D.

Use 'dreamscape serve' to run the HTTP API, or the other commands to work
with single dreams from the shell.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Uint64("seed", 0, "random seed for element placement (0 picks a random one)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug output to stderr")

	viper.BindPFlag("seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads DREAMSCAPE_* environment variables.
func initConfig() {
	viper.SetEnvPrefix("DREAMSCAPE")
	viper.AutomaticEnv()

	logger := utils.GetLogger()
	logger.SetOutput(os.Stderr)
	if viper.GetBool("verbose") {
		logger.SetLogLevel(utils.DEBUG)
	} else {
		logger.SetLogLevel(utils.WARNING)
	}
}

// newEngine builds an interpreter without the simulated inference delay.
func newEngine() *interpreter.Engine {
	opts := interpreter.Options{Latency: -1}
	if seed := viper.GetUint64("seed"); seed != 0 {
		opts.Random = interpreter.NewSeededSource(seed)
	}
	return interpreter.NewEngine(opts)
}
