package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/dcrew44/llm-social-network/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			slog.Error(exitErr.Error())
			os.Exit(exitErr.Code)
		}
		slog.Error(err.Error())
		os.Exit(cli.ExitCommandError)
	}
}
