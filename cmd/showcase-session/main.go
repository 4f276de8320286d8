// Command showcase-session is a terminal client for the showcase API. It
// keeps the credential in a file so consecutive invocations share one
// session.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "showcase-session",
		Usage:   "Authenticated client for the showcase API",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Aliases: []string{"u"},
				Usage:   "API base URL (defaults to SESSION_API_BASE_URL)",
			},
			&cli.StringFlag{
				Name:    "token-file",
				Aliases: []string{"t"},
				Usage:   "File holding the credential (defaults to SESSION_STORAGE_FILE)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the credential",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Account username",
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Account password",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						return s.login(ctx, cmd.String("username"), cmd.String("password"))
					})
				},
			},
			{
				Name:  "logout",
				Usage: "End the session and remove the stored credential",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						return s.logout(ctx)
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show the session restored from the credential file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						return s.status(cmd.String("format"))
					})
				},
			},
			{
				Name:  "whoami",
				Usage: "Ask the API who the credential belongs to",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, func(s *session) error {
						return s.get(ctx, "/api/me")
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Send an authenticated GET and print the response",
				ArgsUsage: "<path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					if path == "" {
						return cli.Exit("get requires a path", 2)
					}
					return withSession(ctx, cmd, func(s *session) error {
						return s.get(ctx, path)
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("showcase-session failed", slog.Any("error", err))
		os.Exit(1)
	}
}
