package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bock/internal"
	"github.com/starford/bock/internal/apperr"
	pkgconfig "github.com/starford/bock/pkg/config"
)

var version = "dev"

// Exit codes.
const (
	exitConfig        = 1
	exitNotRepository = 2
	exitRootNotFound  = 3
	exitRootRelative  = 4
	exitFailure       = 6
)

// loadConfig reads the config file and applies flag overrides. The file is
// optional unless set explicitly.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	err := pkgconfig.Load(cmd.String("config"), cmd.IsSet("config"), cfg, func(c *internal.Config) {
		if cmd.IsSet("wiki") {
			c.Wiki.Path = cmd.String("wiki")
		}
		if cmd.IsSet("port") {
			c.App.HTTP.Port = int(cmd.Int("port"))
		}
	})
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to parse config: %v", err), exitConfig)
	}
	return cfg, nil
}

// withConfig adapts an entry point to a cli action.
func withConfig(run func(ctx context.Context, cmd *cli.Command, opts ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(ctx, cmd, internal.WithConfig(cfg), internal.WithVersion(version))
	}
}

// watcherArgs rebuilds the command line for the child watcher process.
func watcherArgs(cmd *cli.Command, cfg *internal.Config) []string {
	var args []string
	if cmd.IsSet("config") {
		args = append(args, "--config", cmd.String("config"))
	}
	return append(args, "--wiki", cfg.Wiki.Path, "watch")
}

// exitCode maps startup failures to distinct process exit codes.
func exitCode(err error) int {
	var coder cli.ExitCoder
	switch {
	case errors.As(err, &coder):
		return coder.ExitCode()
	case errors.Is(err, apperr.ErrRootNotFound):
		return exitRootNotFound
	case errors.Is(err, apperr.ErrNotRepository):
		return exitNotRepository
	case errors.Is(err, apperr.ErrRootNotAbsolute):
		return exitRootRelative
	default:
		return exitFailure
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "bock",
		Usage:   "Personal wiki over a git repository of Markdown articles, with full-text search",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("BOCK_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "wiki",
				Aliases: []string{"w"},
				Usage:   "Absolute path to the article repository",
				Sources: cli.EnvVars("BOCK_WIKI_PATH"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port",
				Sources: cli.EnvVars("BOCK_PORT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the read API",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts ...internal.Option) error {
					return internal.Run(ctx, opts...)
				}),
			},
			{
				Name:  "watch",
				Usage: "Keep the search index in sync with the article tree",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts ...internal.Option) error {
					return internal.RunWatch(ctx, opts...)
				}),
			},
			{
				Name:  "local",
				Usage: "Serve the read API with a watcher in a child process",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					exe, err := os.Executable()
					if err != nil {
						return fmt.Errorf("resolve executable: %w", err)
					}
					return internal.RunLocal(ctx,
						internal.WithConfig(cfg),
						internal.WithVersion(version),
						internal.WithWatcherCommand(exe, watcherArgs(cmd, cfg)...))
				},
			},
			{
				Name:  "index",
				Usage: "Run one synchronization pass",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rebuild", Usage: "Delete the index and build it from scratch"},
				},
				Action: withConfig(func(ctx context.Context, cmd *cli.Command, opts ...internal.Option) error {
					return internal.RunIndex(ctx, cmd.Bool("rebuild"), opts...)
				}),
			},
			{
				Name:      "search",
				Usage:     "Query the search index",
				ArgsUsage: "<term>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "db", Usage: "Search the exported SQLite database instead of the index"},
				},
				Action: withConfig(func(ctx context.Context, cmd *cli.Command, opts ...internal.Option) error {
					if cmd.NArg() == 0 {
						return cli.Exit("search term is required", exitConfig)
					}
					return internal.RunSearch(ctx, cmd.Args().First(), cmd.Bool("db"), opts...)
				}),
			},
			{
				Name:  "export",
				Usage: "Export every article to a SQLite database",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts ...internal.Option) error {
					return internal.RunExport(ctx, opts...)
				}),
			},
			{
				Name:  "mcp",
				Usage: "Serve read-only MCP tools over stdio",
				Action: withConfig(func(ctx context.Context, _ *cli.Command, opts ...internal.Option) error {
					return internal.RunMCP(ctx, opts...)
				}),
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}
}
