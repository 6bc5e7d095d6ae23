// cmd/dreamscape/main.go
package main

import (
	"os"

	"github.com/Corphon/DreamScape/cmd/dreamscape/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
