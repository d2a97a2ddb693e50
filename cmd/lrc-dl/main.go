package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/handiism/lrc-downloader/internal/download"
	"github.com/handiism/lrc-downloader/internal/library"
)

func main() {
	logger := newLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(&Runner{Logger: logger, Out: os.Stdout})
	err := app.Run(ctx, os.Args)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Warn("interrupted")
		os.Exit(130)
	case errors.Is(err, library.ErrRootUnreadable):
		logger.Error("cannot scan library", "err", err)
		os.Exit(1)
	default:
		logger.Error("application error", "err", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true})
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "lrc-dl",
		Usage:     "Download synchronized lyrics (.lrc) for a music library",
		ArgsUsage: "[library]",
		Version:   "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Music library root (overrides library_path)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"n"},
				Usage:   "Maximum number of files talking to the lyrics site at once",
			},
			&cli.StringFlag{
				Name:  "layout",
				Usage: "Resolver layout: three-hop or four-hop",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Search result choice: first or closest",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Retries for transport failures",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a playlist of tracks still missing lyrics to this path",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show verbose output",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Check sidecars and tags without contacting the lyrics site",
			},
		},
		Action: r.Fetch,
		Commands: []*cli.Command{
			{
				Name:  "init-config",
				Usage: "Write a commented default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.InitConfig,
			},
		},
	}
}

func levelFor(level download.ProgressLevel) log.Level {
	switch level {
	case download.LevelVerbose:
		return log.DebugLevel
	case download.LevelWarning:
		return log.WarnLevel
	case download.LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func printf(w io.Writer, format string, args ...any) {
	if w != nil {
		fmt.Fprintf(w, format, args...)
	}
}
