package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "untangle",
		Usage: "Decompose brain dumps into confirmed, scheduled atomic tasks",
		Commands: []*cli.Command{
			planCommand(),
			evalCommand(),
			profileCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
