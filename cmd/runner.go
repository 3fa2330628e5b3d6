// submodule cmd contains the Runner, which wires profiles to the pipeline
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/christuckey/scoutarr/internal/fetch"
	"github.com/christuckey/scoutarr/internal/match"
	"github.com/christuckey/scoutarr/internal/playlist"
	"github.com/christuckey/scoutarr/internal/services"
	"github.com/christuckey/scoutarr/internal/shared"
	"github.com/christuckey/scoutarr/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds the process-wide dependencies for CLI actions.
type Runner struct {
	logger *log.Logger
	out    io.Writer
}

func NewRunner(logger *log.Logger) *Runner {
	return &Runner{logger: logger, out: os.Stdout}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		runCommand(r),
		configCommand(r),
	}
}

// configDirs returns the profile search path: the --config-dir flag when
// set, otherwise ./profiles and the user config directory.
func (r *Runner) configDirs(cmd *cli.Command) []string {
	if dir := cmd.String("config-dir"); dir != "" {
		return []string{dir}
	}

	dirs := []string{"profiles"}
	if base, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(base, "scoutarr"))
	}
	return dirs
}

// Run executes one reconciliation pass over every discovered profile.
// Profiles are independent: a failing profile is reported and the run moves
// on. The command only fails when every profile failed.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	paths, err := shared.DiscoverProfiles(r.configDirs(cmd)...)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		profile, err := shared.LoadProfile(path)
		if err != nil {
			r.logger.Error("failed to load profile", "path", path, "err", err)
			failed++
			continue
		}

		if cmd.Bool("dry-run") {
			profile.Recommender.DryRun = true
		}

		if err := profile.Validate(); err != nil {
			r.logger.Error("invalid profile", "profile", profile.Name, "err", err)
			failed++
			continue
		}

		logger := shared.WithLogger(r.logger,
			"run_id", shared.GenerateRunID(), "profile", profile.Name)

		engine := r.buildEngine(*profile, logger)
		if err := engine.Run(ctx); err != nil {
			logger.Error("run finished with errors", "err", err)
			failed++
			continue
		}
		logger.Info("run complete")
	}

	if failed == len(paths) {
		return fmt.Errorf("all %d profile(s) failed", failed)
	}
	return nil
}

// buildEngine constructs the pipeline for one profile. Disabled integrations
// leave their dependency nil; the engine never touches them.
func (r *Runner) buildEngine(profile shared.Profile, logger *log.Logger) *tasks.Engine {
	fetcher := fetch.NewClient(fetch.TransportConfig{
		UserAgent: shared.UserAgent,
		ForceIPv4: profile.Recommender.ForceIPv4,
	}, logger)

	source := services.NewListenBrainzClient(
		profile.ListenBrainz.URL, profile.ListenBrainz.UserToken, fetcher, logger)
	resolver := services.NewMusicBrainzClient(profile.MusicBrainz.URL, fetcher)

	var library tasks.ArtistLibrary
	if profile.Lidarr.Enabled {
		library = services.NewLidarrClient(profile.Lidarr.URL, profile.Lidarr.APIKey, fetcher)
	}

	var (
		matcher   tasks.TrackMatcher
		publisher tasks.PlaylistPublisher
	)
	if profile.Plex.Enabled {
		plex := services.NewPlexClient(
			profile.Plex.URL, profile.Plex.Token, profile.Plex.Library, fetcher)
		matcher = match.NewMatcher(plex, profile.Plex.MatchThreshold, logger)
		publisher = playlist.NewManager(plex, profile.Plex.PlaylistPrefix, logger)
	}

	return tasks.NewEngine(profile, source, resolver, library, matcher, publisher, logger, r.out)
}

// ConfigInit writes the example profile into the config directory.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("config-dir")
	if dir == "" {
		dir = "profiles"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "default.yaml")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("wrote example profile", "path", path)
	return nil
}

// ConfigCheck loads and validates every discovered profile.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	paths, err := shared.DiscoverProfiles(r.configDirs(cmd)...)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		profile, err := shared.LoadProfile(path)
		if err == nil {
			err = profile.Validate()
		}
		if err != nil {
			r.logger.Error("invalid profile", "path", path, "err", err)
			failed++
			continue
		}
		r.logger.Info("profile ok", "path", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d profile(s) invalid", failed, len(paths))
	}
	return nil
}
