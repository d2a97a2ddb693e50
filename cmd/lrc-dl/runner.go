package main

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/handiism/lrc-downloader/internal/cache"
	"github.com/handiism/lrc-downloader/internal/config"
	"github.com/handiism/lrc-downloader/internal/download"
)

// Runner holds the dependencies shared by command actions.
type Runner struct {
	Logger *log.Logger
	Out    io.Writer
}

// Fetch scans the library and downloads missing sidecars.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	applyFlags(settings, cmd)

	if settings.LibraryPath == "" {
		return errors.New("no library given: pass --library or set library_path")
	}

	if cmd.Bool("verbose") {
		r.Logger.SetLevel(log.DebugLevel)
	}

	opts := []download.Option{
		download.WithLogger(r.Logger),
		download.WithDryRun(cmd.Bool("dry-run")),
		download.WithProgress(func(e download.ProgressEvent) {
			r.Logger.Log(levelFor(e.Level), e.Message)
		}),
	}

	if settings.MissCachePath != "" {
		misses, err := cache.Open(settings.MissCachePath)
		if err != nil {
			return err
		}
		defer misses.Close()
		if n, err := misses.Prune(ctx, settings.MissCacheTTL()); err == nil && n > 0 {
			r.Logger.Debug("pruned miss cache", "entries", n)
		}
		opts = append(opts, download.WithMissCache(misses))
	}

	manager, err := download.NewManager(*settings, opts...)
	if err != nil {
		return err
	}

	report, err := manager.RunLibrary(ctx, settings.LibraryPath)
	if report != nil {
		progress := manager.GetProgress()
		printf(r.Out, "%d files, %d downloaded, %.1f KB received, peak %d concurrent\n",
			report.Summary.Total(), progress.Downloaded, float64(progress.ReceivedBytes)/1024, report.PeakConcurrency)
		printf(r.Out, "%s\n", &report.Summary)
		if report.ReportPath != "" {
			printf(r.Out, "missing-lyrics report: %s\n", report.ReportPath)
		}
	}
	return err
}

// InitConfig writes the example configuration.
func (r *Runner) InitConfig(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	r.Logger.Info("wrote config", "path", path)
	return nil
}

// applyFlags overrides settings with the flags the user set explicitly.
func applyFlags(s *config.Settings, cmd *cli.Command) {
	if lib := cmd.String("library"); lib != "" {
		s.LibraryPath = lib
	} else if cmd.Args().Len() > 0 {
		s.LibraryPath = cmd.Args().First()
	}
	if cmd.IsSet("concurrency") {
		s.MaxConcurrentRequests = int(cmd.Int("concurrency"))
	}
	if cmd.IsSet("layout") {
		s.ResolverLayout = cmd.String("layout")
	}
	if cmd.IsSet("strategy") {
		s.SearchStrategy = cmd.String("strategy")
	}
	if cmd.IsSet("retries") {
		s.DownloadMaxRetries = int(cmd.Int("retries"))
	}
	if cmd.IsSet("report") {
		s.ReportPath = cmd.String("report")
	}
}
