package tasks

import (
	"context"
	"fmt"

	"github.com/christuckey/scoutarr/internal/formatter"
	"github.com/christuckey/scoutarr/internal/services"
)

// importArtists adds the pooled recommendations to the library manager.
// Artists already in the library, and MBIDs the manager's metadata index
// does not know, are skipped. In dry-run mode the plan is rendered but
// nothing is added.
func (e *Engine) importArtists(ctx context.Context, ranked []datedRef, summary *formatter.RunSummary) error {
	pool, err := e.buildPool(ctx, ranked)
	if err != nil {
		return err
	}

	cfg := e.profile.Lidarr
	dryRun := e.profile.Recommender.DryRun

	var targets *services.ImportTargets
	if !dryRun {
		targets, err = e.library.ResolveImportTargets(ctx, cfg.QualityProfile, cfg.MetadataProfile, cfg.Tags)
		if err != nil {
			return fmt.Errorf("resolving import targets: %w", err)
		}
	}

	opts := services.AddOptions{
		RootFolder:      cfg.RootFolder,
		MonitorNew:      cfg.MonitorNew,
		MonitorExisting: cfg.MonitorExisting,
		SearchOnAdd:     cfg.SearchOnAdd,
	}

	var rows []formatter.ArtistRow
	for i, pooled := range pool.Ranked() {
		row := formatter.ArtistRow{
			Rank:    i + 1,
			Name:    pooled.Artist.Name,
			MBID:    pooled.Artist.MBID,
			Sources: pooled.Sources,
		}

		found, err := e.library.LookupArtist(ctx, pooled.Artist.MBID)
		switch {
		case err != nil:
			e.logger.Warn("artist lookup failed", "artist", pooled.Artist.Name, "err", err)
			row.Status = "error"
			summary.ArtistsSkipped++
		case found == nil:
			e.logger.Debug("artist unknown to metadata index", "artist", pooled.Artist.Name)
			row.Status = "unknown"
			summary.ArtistsSkipped++
		case found.ID != 0:
			row.Status = "exists"
			summary.ArtistsSkipped++
		default:
			row.Status = "add"
			if dryRun {
				summary.ArtistsAdded++
			} else if err := e.library.AddArtist(ctx, found, targets, opts); err != nil {
				e.logger.Warn("failed to add artist", "artist", pooled.Artist.Name, "err", err)
				row.Status = "error"
				summary.ArtistsSkipped++
			} else {
				e.logger.Info("added artist", "artist", pooled.Artist.Name, "mbid", pooled.Artist.MBID)
				summary.ArtistsAdded++
			}
		}

		rows = append(rows, row)
	}

	if dryRun {
		fmt.Fprint(e.out, formatter.RenderArtistPlan(rows))
	}
	return nil
}
