package tasks

import (
	"context"
	"fmt"

	"github.com/christuckey/scoutarr/internal/formatter"
	"github.com/christuckey/scoutarr/internal/playlist"
)

// publishPreviousWeek mirrors the previous week's exploration playlist into
// the catalog. The current week's playlist is still being listened to, so
// the most recent completed week is the one worth keeping.
func (e *Engine) publishPreviousWeek(ctx context.Context, ranked []datedRef, summary *formatter.RunSummary) error {
	currentPeriod := PeriodOf(e.now())

	var target *datedRef
	for i := range ranked {
		if ranked[i].period < currentPeriod {
			target = &ranked[i]
			break
		}
	}
	if target == nil {
		e.logger.Warn("no completed week available to publish")
		return nil
	}

	detail, err := e.source.Playlist(ctx, target.ref.MBID)
	if err != nil {
		return fmt.Errorf("fetching playlist %s: %w", target.ref.MBID, err)
	}

	var (
		trackKeys []string
		unmatched []formatter.UnmatchedRow
	)
	for _, track := range detail.Tracks {
		result, err := e.matcher.MatchTrack(ctx, track)
		if err != nil {
			return fmt.Errorf("matching %q: %w", track.Title, err)
		}
		if result.Matched() {
			trackKeys = append(trackKeys, result.Candidate.Key)
			summary.TracksMatched++
		} else {
			unmatched = append(unmatched, formatter.UnmatchedRow{
				Artist: track.Artist,
				Title:  track.Title,
				Score:  result.Score,
			})
			summary.TracksUnmatched++
		}
	}

	if report := formatter.RenderUnmatched(unmatched); report != "" {
		fmt.Fprint(e.out, report)
	}

	title, err := playlist.DeriveTitle(target.period, e.profile.Plex.PlaylistPrefix)
	if err != nil {
		return err
	}

	if e.profile.Recommender.DryRun {
		e.logger.Info("dry run, skipping playlist publish",
			"title", title, "tracks", len(trackKeys))
		return nil
	}

	if err := e.publisher.ApplyRetention(ctx, e.profile.Plex.KeepWeeks); err != nil {
		return fmt.Errorf("applying retention: %w", err)
	}

	if err := e.publisher.Publish(ctx, target.period, trackKeys); err != nil {
		return err
	}
	summary.PlaylistTitle = title

	if e.profile.Plex.RollingAlias {
		if err := e.publisher.PublishAlias(ctx, trackKeys); err != nil {
			return err
		}
	}

	return nil
}
