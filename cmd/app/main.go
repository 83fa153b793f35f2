package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tempo/internal"
	"github.com/starford/tempo/internal/classify"
	"github.com/starford/tempo/internal/host/nvimhost"
	pkgconfig "github.com/starford/tempo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func manifest(_ context.Context, cmd *cli.Command) error {
	_, err := os.Stdout.Write(nvimhost.Manifest(cmd.String("host")))
	return err
}

func classifyPath(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cmd.Args().First()
	if path == "" {
		return errors.New("classify: PATH is required")
	}
	tracked := classify.Classify(path, cfg.Tracking.Root)
	fmt.Println(tracked)
	if !tracked {
		return cli.Exit("", 1)
	}
	return nil
}

func report(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := internal.NewLogger(cfg.App)
	if err != nil {
		return err
	}
	defer closeLog()
	return internal.Report(cfg, os.Stdout, int(cmd.Int("limit")), cmd.Args().Slice(), logger)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("config", "config.yaml")
	}
	return filepath.Join(dir, "tempo", "config.yaml")
}

func main() {
	configPath := defaultConfigPath()

	cmd := &cli.Command{
		Name:   "tempo",
		Usage:  "Neovim remote plugin previewing time-tracking day summaries",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: configPath,
				Value:       configPath,
				Sources:     cli.EnvVars("TEMPO_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run as a remote plugin host on stdin/stdout (default)",
				Action: serve,
			},
			{
				Name:   "manifest",
				Usage:  "Print the remote plugin manifest",
				Action: manifest,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Host name the plugin is registered under",
						Value: "tempo",
					},
				},
			},
			{
				Name:      "classify",
				Usage:     "Report whether PATH is a day file below the tracking root",
				ArgsUsage: "PATH",
				Action:    classifyPath,
			},
			{
				Name:   "report",
				Usage:  "Sync the ledger and print per-day totals",
				Action: report,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of days to list (0 lists all)",
						Value: 14,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
