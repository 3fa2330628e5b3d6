// package tasks orchestrates one reconciliation run: pull the recommendation
// feeds, import recommended artists into the library manager, and publish
// the previous week's playlist to the media catalog.
package tasks

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/christuckey/scoutarr/internal/services"
	"github.com/christuckey/scoutarr/internal/shared"
)

// Feed source labels carried through the artist pool.
const (
	SourceWeeklyExploration      = "weekly-exploration"
	SourceCollaborativeFiltering = "collaborative-filtering"
)

// RecommendationSource is the recommendation feed surface (ListenBrainz).
type RecommendationSource interface {
	WeeklyExplorationPlaylists(ctx context.Context, user string) ([]services.WeeklyPlaylistRef, error)
	Playlist(ctx context.Context, mbid string) (*services.WeeklyPlaylist, error)
	CFRecordings(ctx context.Context, user string) ([]string, error)
}

// ArtistResolver resolves recording MBIDs to artists (MusicBrainz).
type ArtistResolver interface {
	PrimaryArtist(ctx context.Context, recordingMBID string) (*services.RecommendedArtist, error)
}

// ArtistLibrary is the library manager surface (Lidarr).
type ArtistLibrary interface {
	LookupArtist(ctx context.Context, mbid string) (*services.LidarrArtist, error)
	ResolveImportTargets(ctx context.Context, qualityProfile, metadataProfile string, tags []string) (*services.ImportTargets, error)
	AddArtist(ctx context.Context, artist *services.LidarrArtist, targets *services.ImportTargets, opts services.AddOptions) error
}

// TrackMatcher scores feed tracks against the catalog.
type TrackMatcher interface {
	MatchTrack(ctx context.Context, track services.TrackDescription) (services.MatchResult, error)
}

// PlaylistPublisher is the playlist lifecycle surface.
type PlaylistPublisher interface {
	Publish(ctx context.Context, periodID string, trackKeys []string) error
	PublishAlias(ctx context.Context, trackKeys []string) error
	ApplyRetention(ctx context.Context, keepWeeks int) error
}

// weekOfRe extracts the anchor date ListenBrainz embeds in generated
// playlist titles ("... week of 2026-08-24 Mon").
var weekOfRe = regexp.MustCompile(`week of (\d{4}-\d{2}-\d{2})`)

// PeriodOf renders a time as an ISO week period ID like "2026-W35".
func PeriodOf(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// PeriodFromTitle derives the period ID of a generated weekly playlist from
// its title's embedded anchor date.
func PeriodFromTitle(title string) (string, error) {
	m := weekOfRe.FindStringSubmatch(title)
	if m == nil {
		return "", fmt.Errorf("%w: no week anchor in title %q", shared.ErrInvalidPeriod, title)
	}
	anchor, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad week anchor in title %q", shared.ErrInvalidPeriod, title)
	}
	return PeriodOf(anchor), nil
}

// datedRef pairs a playlist reference with its derived period.
type datedRef struct {
	ref    services.WeeklyPlaylistRef
	period string
}

// rankRefs derives a period for each reference and returns one reference per
// period, newest period first. Titles are the authoritative period source;
// the feed's creation date is the fallback.
func rankRefs(refs []services.WeeklyPlaylistRef) []datedRef {
	byPeriod := make(map[string]services.WeeklyPlaylistRef)
	for _, ref := range refs {
		period, err := PeriodFromTitle(ref.Title)
		if err != nil {
			period = PeriodOf(ref.Date)
		}
		if existing, ok := byPeriod[period]; !ok || ref.Date.After(existing.Date) {
			byPeriod[period] = ref
		}
	}

	ranked := make([]datedRef, 0, len(byPeriod))
	for period, ref := range byPeriod {
		ranked = append(ranked, datedRef{ref: ref, period: period})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].period > ranked[j].period })
	return ranked
}

// poolEntry accumulates the feeds that recommended one artist.
type poolEntry struct {
	artist  services.RecommendedArtist
	sources map[string]bool
}

// ArtistPool deduplicates recommended artists across feeds by MBID, keeping
// the union of sources that surfaced each one.
type ArtistPool struct {
	entries map[string]*poolEntry
}

func NewArtistPool() *ArtistPool {
	return &ArtistPool{entries: make(map[string]*poolEntry)}
}

// Add records an artist recommendation from one source. Artists without an
// MBID cannot be imported and are dropped.
func (p *ArtistPool) Add(artist services.RecommendedArtist, source string) {
	if artist.MBID == "" {
		return
	}
	entry, ok := p.entries[artist.MBID]
	if !ok {
		entry = &poolEntry{artist: artist, sources: make(map[string]bool)}
		p.entries[artist.MBID] = entry
	}
	entry.sources[source] = true
}

// PooledArtist is one deduplicated recommendation with its source feeds.
type PooledArtist struct {
	Artist  services.RecommendedArtist
	Sources []string
}

// Ranked returns the pool ordered by source count (artists every feed agrees
// on first), then by name for a stable order.
func (p *ArtistPool) Ranked() []PooledArtist {
	ranked := make([]PooledArtist, 0, len(p.entries))
	for _, entry := range p.entries {
		sources := make([]string, 0, len(entry.sources))
		for s := range entry.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		ranked = append(ranked, PooledArtist{Artist: entry.artist, Sources: sources})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if len(ranked[i].Sources) != len(ranked[j].Sources) {
			return len(ranked[i].Sources) > len(ranked[j].Sources)
		}
		return ranked[i].Artist.Name < ranked[j].Artist.Name
	})
	return ranked
}

// Len reports the number of distinct artists in the pool.
func (p *ArtistPool) Len() int { return len(p.entries) }
