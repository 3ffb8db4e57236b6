package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/k-nishimoto/untangle"
	"github.com/k-nishimoto/untangle/llm/claude"
	"github.com/k-nishimoto/untangle/llm/gemini"
	"github.com/k-nishimoto/untangle/llm/openai"
	"github.com/k-nishimoto/untangle/store"
	"github.com/k-nishimoto/untangle/store/filestore"
	"github.com/k-nishimoto/untangle/store/leveldb"
)

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "provider",
			Value:   "gemini",
			Sources: cli.EnvVars("UNTANGLE_PROVIDER"),
			Usage:   "LLM provider (gemini, openai, claude)",
		},
		&cli.StringFlag{
			Name:    "model",
			Sources: cli.EnvVars("UNTANGLE_MODEL"),
			Usage:   "Model name override for the selected provider",
		},
		&cli.StringFlag{
			Name:    "gcp-project",
			Sources: cli.EnvVars("UNTANGLE_GCP_PROJECT"),
			Usage:   "Google Cloud project ID (gemini provider)",
		},
		&cli.StringFlag{
			Name:    "gcp-location",
			Value:   "us-central1",
			Sources: cli.EnvVars("UNTANGLE_GCP_LOCATION"),
			Usage:   "Google Cloud location (gemini provider)",
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Value:   defaultDataDir(),
			Sources: cli.EnvVars("UNTANGLE_DATA_DIR"),
			Usage:   "Directory for persisted state",
		},
		&cli.StringFlag{
			Name:    "backend",
			Value:   "file",
			Sources: cli.EnvVars("UNTANGLE_BACKEND"),
			Usage:   "Storage backend (file, leveldb)",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".untangle"
	}
	return home + "/.untangle"
}

// newLLMClient builds the provider selected by --provider. Credentials come
// from the environment, not from flags, so they never show up in shell
// history.
func newLLMClient(ctx context.Context, cmd *cli.Command) (untangle.LLMClient, error) {
	provider := strings.ToLower(cmd.String("provider"))
	model := cmd.String("model")

	switch provider {
	case "gemini":
		project := cmd.String("gcp-project")
		if project == "" {
			return nil, fmt.Errorf("--gcp-project (or UNTANGLE_GCP_PROJECT) is required for the gemini provider")
		}
		options := []gemini.Option{gemini.WithTemperature(0.2)}
		if model != "" {
			options = append(options, gemini.WithModel(model))
		}
		return gemini.New(ctx, project, cmd.String("gcp-location"), options...)

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		options := []openai.Option{openai.WithTemperature(0.2)}
		if model != "" {
			options = append(options, openai.WithModel(model))
		}
		return openai.New(ctx, apiKey, options...)

	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the claude provider")
		}
		options := []claude.Option{claude.WithTemperature(0.2)}
		if model != "" {
			options = append(options, claude.WithModel(model))
		}
		return claude.New(ctx, apiKey, options...)

	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func newStore(cmd *cli.Command) (store.Store, error) {
	dataDir := cmd.String("data-dir")
	switch strings.ToLower(cmd.String("backend")) {
	case "file":
		return filestore.New(dataDir)
	case "leveldb":
		return leveldb.New(dataDir + "/untangle.ldb")
	default:
		return nil, fmt.Errorf("unknown backend: %s", cmd.String("backend"))
	}
}

func newLogger(cmd *cli.Command) *slog.Logger {
	if !cmd.Bool("verbose") {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
