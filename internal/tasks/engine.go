package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/christuckey/scoutarr/internal/formatter"
	"github.com/christuckey/scoutarr/internal/shared"
)

// Engine runs the reconciliation pipeline for one profile. Its dependencies
// are interfaces so the pipeline can be exercised against test doubles.
type Engine struct {
	profile   shared.Profile
	source    RecommendationSource
	resolver  ArtistResolver
	library   ArtistLibrary
	matcher   TrackMatcher
	publisher PlaylistPublisher
	logger    *log.Logger
	out       io.Writer
	now       func() time.Time
}

// NewEngine wires an Engine. library, matcher and publisher may be nil when
// the corresponding integration is disabled in the profile.
func NewEngine(
	profile shared.Profile,
	source RecommendationSource,
	resolver ArtistResolver,
	library ArtistLibrary,
	matcher TrackMatcher,
	publisher PlaylistPublisher,
	logger *log.Logger,
	out io.Writer,
) *Engine {
	return &Engine{
		profile:   profile,
		source:    source,
		resolver:  resolver,
		library:   library,
		matcher:   matcher,
		publisher: publisher,
		logger:    logger,
		out:       out,
		now:       time.Now,
	}
}

// Run executes one reconciliation pass. The artist import and the playlist
// publish are isolated from each other: a failure in one is reported but
// does not abort the other.
func (e *Engine) Run(ctx context.Context) error {
	summary := formatter.RunSummary{
		Profile: e.profile.Name,
		DryRun:  e.profile.Recommender.DryRun,
	}

	lb := e.profile.ListenBrainz
	needRefs := (e.profile.Lidarr.Enabled && lb.WeeklyExploration) || e.profile.Plex.Enabled

	var ranked []datedRef
	if needRefs {
		refs, err := e.source.WeeklyExplorationPlaylists(ctx, lb.Username)
		if err != nil {
			return fmt.Errorf("listing weekly playlists: %w", err)
		}
		ranked = rankRefs(refs)
		e.logger.Debug("ranked weekly playlists", "count", len(ranked))
	}

	var runErrs []error

	if e.profile.Lidarr.Enabled {
		if err := e.importArtists(ctx, ranked, &summary); err != nil {
			e.logger.Error("artist import failed", "err", err)
			runErrs = append(runErrs, fmt.Errorf("artist import: %w", err))
		}
	}

	if e.profile.Plex.Enabled {
		if err := e.publishPreviousWeek(ctx, ranked, &summary); err != nil {
			e.logger.Error("playlist publish failed", "err", err)
			runErrs = append(runErrs, fmt.Errorf("playlist publish: %w", err))
		}
	}

	fmt.Fprint(e.out, formatter.RenderSummary(summary))
	return errors.Join(runErrs...)
}

// buildPool gathers recommended artists from the enabled feeds: the current
// weekly-exploration playlist's credited artists, plus the primary artist of
// every collaborative-filtering recording. A CF recording that cannot be
// resolved is logged and skipped; one bad MBID should not sink the run.
func (e *Engine) buildPool(ctx context.Context, ranked []datedRef) (*ArtistPool, error) {
	pool := NewArtistPool()
	lb := e.profile.ListenBrainz

	if lb.WeeklyExploration && len(ranked) > 0 {
		current := ranked[0]
		playlist, err := e.source.Playlist(ctx, current.ref.MBID)
		if err != nil {
			return nil, fmt.Errorf("fetching weekly playlist %s: %w", current.ref.MBID, err)
		}
		for _, artist := range playlist.Artists {
			pool.Add(artist, SourceWeeklyExploration)
		}
		e.logger.Info("collected weekly exploration artists",
			"period", current.period, "artists", pool.Len())
	}

	if lb.CollaborativeFiltering {
		recordings, err := e.source.CFRecordings(ctx, lb.Username)
		if err != nil {
			return nil, fmt.Errorf("fetching CF recommendations: %w", err)
		}
		for _, mbid := range recordings {
			artist, err := e.resolver.PrimaryArtist(ctx, mbid)
			if err != nil {
				e.logger.Warn("skipping unresolvable recording", "mbid", mbid, "err", err)
				continue
			}
			if artist == nil {
				continue
			}
			pool.Add(*artist, SourceCollaborativeFiltering)
		}
		e.logger.Info("collected collaborative filtering artists", "pool", pool.Len())
	}

	return pool, nil
}
