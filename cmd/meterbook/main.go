package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	_ = zap.L().Sync()
	if err != nil {
		os.Exit(1)
	}
}
