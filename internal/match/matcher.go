package match

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/christuckey/scoutarr/internal/services"
)

// Matcher resolves track descriptions against a catalog in two phases:
// a direct title search, then an album-children fallback for tracks whose
// title search misses (common for tracks indexed under a different title
// spelling than the feed uses).
type Matcher struct {
	catalog   services.Catalog
	threshold float64
	logger    *log.Logger
}

// NewMatcher creates a Matcher bound to one catalog. Candidates scoring
// below threshold are rejected.
func NewMatcher(catalog services.Catalog, threshold float64, logger *log.Logger) *Matcher {
	return &Matcher{catalog: catalog, threshold: threshold, logger: logger}
}

// MatchTrack finds the best catalog candidate for a track. When no candidate
// clears the threshold the result carries a nil candidate and the best score
// observed, so callers can report near misses.
func (m *Matcher) MatchTrack(ctx context.Context, track services.TrackDescription) (services.MatchResult, error) {
	best, err := m.searchByTitle(ctx, track)
	if err != nil {
		return services.MatchResult{}, err
	}
	if best.Matched() {
		return best, nil
	}

	fallback, err := m.searchByAlbum(ctx, track)
	if err != nil {
		return services.MatchResult{}, err
	}
	if fallback.Score > best.Score {
		best = fallback
	}

	if !best.Matched() {
		m.logger.Debug("no catalog match",
			"artist", track.Artist, "title", track.Title, "best_score", best.Score)
	}
	return best, nil
}

func (m *Matcher) searchByTitle(ctx context.Context, track services.TrackDescription) (services.MatchResult, error) {
	candidates, err := m.catalog.SearchTracks(ctx, track.Title)
	if err != nil {
		return services.MatchResult{}, err
	}
	return m.pick(track, candidates), nil
}

// searchByAlbum walks the tracks of every album matching the description's
// album title. Skipped when the description carries no usable album text,
// since an empty query would sweep the whole library.
func (m *Matcher) searchByAlbum(ctx context.Context, track services.TrackDescription) (services.MatchResult, error) {
	if Normalize(track.Album) == "" {
		return services.MatchResult{}, nil
	}

	albumKeys, err := m.catalog.SearchAlbums(ctx, track.Album)
	if err != nil {
		return services.MatchResult{}, err
	}

	var best services.MatchResult
	for _, key := range albumKeys {
		candidates, err := m.catalog.AlbumTracks(ctx, key)
		if err != nil {
			return services.MatchResult{}, err
		}
		if result := m.pick(track, candidates); result.Score > best.Score {
			best = result
		}
	}
	return best, nil
}

// pick scores every candidate and keeps the highest. The candidate pointer
// is only set when the score clears the threshold.
func (m *Matcher) pick(track services.TrackDescription, candidates []services.CatalogCandidate) services.MatchResult {
	var best services.MatchResult
	for i := range candidates {
		score := CompositeScore(track, candidates[i])
		if score > best.Score {
			best.Score = score
			if score >= m.threshold {
				best.Candidate = &candidates[i]
			} else {
				best.Candidate = nil
			}
		}
	}
	return best
}
