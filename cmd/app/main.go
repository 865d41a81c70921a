package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

// version is set at link time.
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	if err := pkgconfig.LoadEnv(cmd.StringSlice("env-file")...); err != nil {
		return nil, err
	}
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	err = internal.Build(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	)
	if errors.Is(err, internal.ErrBuildFailed) {
		return cli.Exit("build finished with failures", 1)
	}
	return err
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithWatch(cmd.Bool("watch")),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithWatch(cmd.Bool("watch")),
	)
}

func watchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Rebuild when content files change",
		Sources: cli.EnvVars("QUIRE_WATCH"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "quire",
		Usage:   "Content pipeline that validates, compiles and serves documentation collections",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Additional env files loaded before the config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Run the pipeline once and print the report",
				Action: build,
			},
			{
				Name:   "serve",
				Usage:  "Build and serve the catalog over HTTP",
				Flags:  []cli.Flag{watchFlag()},
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Build and serve the catalog as MCP tools on stdio",
				Flags:  []cli.Flag{watchFlag()},
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}
