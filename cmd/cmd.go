// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the backend HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the backend HTTP API (search, stream resolution, catalog login)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "release",
				Usage: "Run gin in release mode",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand searches the providers for tracks
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search for tracks",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			formatFlag(formatter.FormatText),
			backendFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results to print (0 prints all)",
			},
		},
		Action: r.Search,
	}
}

// trendingCommand lists trending tracks
func trendingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "trending",
		Usage:  "List trending tracks",
		Flags:  []cli.Flag{formatFlag(formatter.FormatText), backendFlag()},
		Action: r.Trending,
	}
}

// resolveCommand resolves a track id (or a query) to a stream
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Aliases:   []string{"stream"},
		Usage:     "Resolve a track id to a playable stream URL",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			formatFlag(formatter.FormatText),
			backendFlag(),
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Search and resolve the first playable result instead of an id",
			},
		},
		Action: r.Resolve,
	}
}

// playCommand launches the terminal player
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Aliases:   []string{"tui", "ui"},
		Usage:     "Launch the interactive terminal player",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			backendFlag(),
			&cli.StringFlag{
				Name:  "sink",
				Usage: "Audio output: virtual (no sound) or command (external player)",
			},
			&cli.StringFlag{
				Name:  "player",
				Usage: "External player binary for the command sink (mpv or ffplay)",
			},
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Ignore the saved queue and position",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where the player writes its logs",
				Value: "./tmp/altplay-play.log",
			},
		},
		Action: r.Play,
	}
}

// authCommand handles catalog authentication through the backend
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the catalog session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in through the backend in the browser and save the session",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Local port the login redirect returns to",
						Value: 8765,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser login",
						Value: defaultLoginTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the saved session and the catalog account",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the session and clear the saved player state",
				Action: r.AuthLogout,
			},
		},
	}
}

// libraryCommand handles catalog library operations
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse and export the catalog library",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.LibraryPlaylists,
			},
			{
				Name:      "export",
				Usage:     "Export playlists (or 'saved' for liked tracks), optionally resolving every track",
				ArgsUsage: "<playlist id or name>...",
				Flags: []cli.Flag{
					formatFlag(formatter.FormatJSON),
					backendFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default altplay_export_<timestamp>)",
					},
					&cli.BoolFlag{
						Name:  "resolve",
						Usage: "Resolve a stream for every track before writing",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent resolutions",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Resolutions started per second",
						Value: 2,
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// historyCommand handles the local search history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or clear recent searches",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of entries to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Delete all recorded searches",
				Action: r.HistoryClear,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml from the defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the latest database migration",
				Action: r.SetupRollback,
			},
		},
	}
}
