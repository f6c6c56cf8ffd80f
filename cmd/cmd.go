// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Username or id of the user (optional when only one user exists)",
		Sources: cli.EnvVars("CRATE_USER"),
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the embedded template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recently applied migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles the OAuth flow and stored tokens.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Discogs authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize crate against a Discogs account with OAuth 1.0a",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: defaultAuthTimeout,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show stored users and verify their tokens",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Call the identity endpoint with the stored token",
						Value: true,
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Inspect stored users",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List authorized users",
				Flags:  jsonFlags(),
				Action: r.UsersList,
			},
		},
	}
}

// syncCommand runs one collection synchronization.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror a user's Discogs collection into the catalog",
		Flags: append([]cli.Flag{
			userFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow progress in the interactive terminal UI",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
		}, jsonFlags()...),
		Action: r.Sync,
	}
}

// collectionCommand reads synchronized collections.
func collectionCommand(r *Runner) *cli.Command {
	filters := []cli.Flag{
		userFlag(),
		&cli.StringFlag{Name: "artist", Usage: "Only releases by this artist (substring)"},
		&cli.StringFlag{Name: "label", Usage: "Only releases on this label (substring)"},
		&cli.StringFlag{Name: "genre", Usage: "Only releases in this genre"},
		&cli.StringFlag{Name: "style", Usage: "Only releases with this style"},
		&cli.IntFlag{Name: "year", Usage: "Only releases from this year"},
		&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Match titles (substring)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of releases (list defaults to a page, export to everything)"},
		&cli.IntFlag{Name: "offset", Usage: "Releases to skip"},
	}

	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"col"},
		Usage:   "Browse and export a synchronized collection",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List releases in the collection",
				Flags:  append(filters, jsonFlags()...),
				Action: r.CollectionList,
			},
			{
				Name:   "stats",
				Usage:  "Count releases, artists, labels, genres and styles",
				Flags:  append([]cli.Flag{userFlag()}, jsonFlags()...),
				Action: r.CollectionStats,
			},
			{
				Name:   "browse",
				Usage:  "Browse the collection in the interactive terminal UI",
				Flags:  []cli.Flag{userFlag()},
				Action: r.CollectionBrowse,
			},
			{
				Name:  "export",
				Usage: "Export the collection as csv, markdown, txt or json",
				Flags: append(filters,
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, txt, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (a directory for markdown, a file base name otherwise)",
					},
					&cli.BoolFlag{
						Name:  "cover",
						Usage: "Download the newest release's cover into markdown exports",
					},
				),
				Action: r.CollectionExport,
			},
		},
	}
}

// releaseCommand looks up single releases.
func releaseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Release lookups",
		Commands: []*cli.Command{
			{
				Name:  "videos",
				Usage: "List a release's videos, deduplicated by URI",
				Flags: append([]cli.Flag{
					userFlag(),
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Release id",
						Required: true,
					},
				}, jsonFlags()...),
				Action: r.ReleaseVideos,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sync and catalog HTTP API with Prometheus metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (defaults to server.port)",
			},
		},
		Action: r.Serve,
	}
}
