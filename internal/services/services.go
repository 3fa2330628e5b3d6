// package services defines the value types flowing through the reconciliation
// pipeline and the HTTP clients for ListenBrainz, MusicBrainz, Lidarr and
// Plex.
package services

import (
	"context"
	"time"
)

// TrackDescription is an externally sourced, unverified track: free-text
// artist/title/album with no guaranteed identifier. Immutable once extracted
// from the upstream feed.
type TrackDescription struct {
	Artist string
	Title  string
	Album  string
}

// CatalogCandidate is one item returned by a catalog search. Key is the only
// handle needed to reference the item later. AlternateArtist is a secondary
// artist credit some catalogs expose (Plex's originalTitle), scored as an
// extra match surface.
type CatalogCandidate struct {
	Key             string
	Title           string
	Artist          string
	Album           string
	AlternateArtist string
}

// MatchResult pairs the best candidate for a track with its composite score.
// Candidate is nil when no candidate cleared the threshold; Score then still
// carries the best score observed, for unmatched reporting.
type MatchResult struct {
	Candidate *CatalogCandidate
	Score     float64
}

// Matched reports whether a candidate cleared the threshold.
func (r MatchResult) Matched() bool { return r.Candidate != nil }

// RecommendedArtist is an artist surfaced by a recommendation feed.
type RecommendedArtist struct {
	MBID string
	Name string
}

// WeeklyPlaylistRef identifies one generated weekly playlist, newest first
// when returned in a list.
type WeeklyPlaylistRef struct {
	MBID  string
	Title string
	Date  time.Time
}

// WeeklyPlaylist is the full detail of one weekly playlist: the ordered
// tracks plus every artist credited in its metadata.
type WeeklyPlaylist struct {
	MBID    string
	Title   string
	Tracks  []TrackDescription
	Artists []RecommendedArtist
}

// Catalog is the search surface of the target media library, consumed by the
// track matcher.
type Catalog interface {
	// SearchTracks queries the library's track index.
	SearchTracks(ctx context.Context, query string) ([]CatalogCandidate, error)

	// SearchAlbums queries the library's album index, returning album keys.
	SearchAlbums(ctx context.Context, query string) ([]string, error)

	// AlbumTracks enumerates the tracks of one album.
	AlbumTracks(ctx context.Context, albumKey string) ([]CatalogCandidate, error)
}

// PlaylistEntry is one playlist visible in the catalog.
type PlaylistEntry struct {
	Key   string
	Title string
}

// PlaylistStore is the playlist surface of the target media library, consumed
// by the lifecycle manager.
type PlaylistStore interface {
	// Playlists lists every playlist in the catalog.
	Playlists(ctx context.Context) ([]PlaylistEntry, error)

	// CreatePlaylist creates a playlist containing trackKeys in order.
	CreatePlaylist(ctx context.Context, title string, trackKeys []string) error

	// DeletePlaylist removes a playlist. Deleting a playlist that no longer
	// exists is success.
	DeletePlaylist(ctx context.Context, key string) error
}
