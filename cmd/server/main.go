// cmd/server/main.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/Corphon/DreamScape/internal/app"
	"github.com/Corphon/DreamScape/internal/config"
)

func main() {
	log.Println("starting DreamScape server")

	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	createDirectories(baseConfig)

	if err := app.Initialize(baseConfig.DataDir); err != nil {
		log.Fatalf("initialize: %v", err)
	}
	log.Printf("listening on http://localhost:%s", baseConfig.Port)

	if err := app.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}

// createDirectories makes the data, export and log directories.
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		cfg.ExportDir,
		cfg.LogDir,
		filepath.Join(cfg.DataDir, "tmp"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create directory %s: %v", dir, err)
		}
	}
}
