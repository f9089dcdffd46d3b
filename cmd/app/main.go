package main

import (
	"os"

	"accounting-core/internal/adapters/cli"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(cli.NewRuntime()); err != nil {
		os.Exit(1)
	}
}
