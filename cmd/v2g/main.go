package main

import (
	"fmt"
	"os"

	"video2guide/cmd/v2g/cmd"
	"video2guide/internal/config"
)

func main() {
	if _, err := config.InitializeConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration warning: %v\n", err)
	}
	cmd.Execute()
}
