// cmd/dreamscape/cmd/serve.go
package cmd

import (
	"fmt"
	"os"

	"github.com/Corphon/DreamScape/internal/app"
	"github.com/Corphon/DreamScape/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DreamScape HTTP API",
	Long: `Run the HTTP API and render websocket until interrupted.

Flags override PORT and DATA_DIR from the environment or .env file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "listen port (default from PORT or 8080)")
	serveCmd.Flags().String("data-dir", "", "data directory (default from DATA_DIR or ./data)")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("data_dir", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if port := viper.GetString("port"); port != "" {
		os.Setenv("PORT", port)
	}
	if dir := viper.GetString("data_dir"); dir != "" {
		os.Setenv("DATA_DIR", dir)
	}

	base, err := config.Load()
	if err != nil {
		return err
	}
	if err := app.Initialize(base.DataDir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listening on http://localhost:%s\n", base.Port)
	return app.Run()
}
