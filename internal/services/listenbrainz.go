// ListenBrainz API client
//
// Response types based on https://listenbrainz.readthedocs.io/en/latest/users/api/
// Generated playlists embed their metadata in JSPF extension objects keyed by
// MusicBrainz documentation URLs.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/christuckey/scoutarr/internal/fetch"
)

// WeeklyExplorationPatch tags playlists generated by the weekly-exploration
// recommender.
const WeeklyExplorationPatch = "weekly-exploration"

type jspfPlaylistExtension struct {
	AdditionalMetadata struct {
		AlgorithmMetadata struct {
			SourcePatch string `json:"source_patch"`
		} `json:"algorithm_metadata"`
	} `json:"additional_metadata"`
}

type jspfTrackExtension struct {
	AdditionalMetadata struct {
		Artists []struct {
			ArtistMBID       string `json:"artist_mbid"`
			ArtistCreditName string `json:"artist_credit_name"`
		} `json:"artists"`
	} `json:"additional_metadata"`
}

type lbPlaylistMeta struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Extension  struct {
		JSPF jspfPlaylistExtension `json:"https://musicbrainz.org/doc/jspf#playlist"`
	} `json:"extension"`
}

type lbTrack struct {
	Creator   string `json:"creator"`
	Album     string `json:"album"`
	Title     string `json:"title"`
	Extension struct {
		JSPF jspfTrackExtension `json:"https://musicbrainz.org/doc/jspf#track"`
	} `json:"extension"`
}

type lbPlaylistDetail struct {
	Title string    `json:"title"`
	Track []lbTrack `json:"track"`
}

// ListenBrainzClient talks to the ListenBrainz API using token auth.
type ListenBrainzClient struct {
	baseURL string
	token   string
	fetcher *fetch.Client
	logger  *log.Logger
}

// NewListenBrainzClient creates a ListenBrainz client. All requests go
// through the resilient fetcher.
func NewListenBrainzClient(baseURL, token string, fetcher *fetch.Client, logger *log.Logger) *ListenBrainzClient {
	return &ListenBrainzClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		fetcher: fetcher,
		logger:  logger,
	}
}

func (c *ListenBrainzClient) headers() map[string]string {
	return map[string]string{"Authorization": "Token " + c.token}
}

// WeeklyExplorationPlaylists returns the user's generated weekly-exploration
// playlists, newest first by embedded creation date.
func (c *ListenBrainzClient) WeeklyExplorationPlaylists(ctx context.Context, user string) ([]WeeklyPlaylistRef, error) {
	endpoint := fmt.Sprintf("%s/1/user/%s/playlists/createdfor", c.baseURL, url.PathEscape(user))

	resp, err := c.fetcher.Get(ctx, endpoint, c.headers(), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Playlists []struct {
			Playlist lbPlaylistMeta `json:"playlist"`
		} `json:"playlists"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	var weekly []WeeklyPlaylistRef
	for _, p := range payload.Playlists {
		meta := p.Playlist
		if meta.Extension.JSPF.AdditionalMetadata.AlgorithmMetadata.SourcePatch != WeeklyExplorationPatch {
			continue
		}

		// The identifier is a URL; the playlist MBID is its last segment.
		segments := strings.Split(meta.Identifier, "/")
		mbid := segments[len(segments)-1]
		if mbid == "" {
			continue
		}

		date, err := time.Parse(time.RFC3339, meta.Date)
		if err != nil {
			c.logger.Debug("skipping playlist with unparsable date",
				"mbid", mbid, "date", meta.Date)
			continue
		}

		weekly = append(weekly, WeeklyPlaylistRef{MBID: mbid, Title: meta.Title, Date: date})
	}

	sort.Slice(weekly, func(i, j int) bool { return weekly[i].Date.After(weekly[j].Date) })
	return weekly, nil
}

// Playlist fetches one playlist's ordered tracks and credited artists.
func (c *ListenBrainzClient) Playlist(ctx context.Context, mbid string) (*WeeklyPlaylist, error) {
	endpoint := fmt.Sprintf("%s/1/playlist/%s", c.baseURL, url.PathEscape(mbid))

	resp, err := c.fetcher.Get(ctx, endpoint, c.headers(), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Playlist lbPlaylistDetail `json:"playlist"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	playlist := &WeeklyPlaylist{MBID: mbid, Title: payload.Playlist.Title}
	for _, t := range payload.Playlist.Track {
		playlist.Tracks = append(playlist.Tracks, TrackDescription{
			Artist: t.Creator,
			Title:  t.Title,
			Album:  t.Album,
		})

		for _, a := range t.Extension.JSPF.AdditionalMetadata.Artists {
			if a.ArtistMBID == "" || a.ArtistCreditName == "" {
				continue
			}
			playlist.Artists = append(playlist.Artists, RecommendedArtist{
				MBID: a.ArtistMBID,
				Name: a.ArtistCreditName,
			})
		}
	}

	return playlist, nil
}

// CFRecordings returns the recording MBIDs of the user's collaborative-
// filtering feed. A 204 or empty body means the user has insufficient data;
// that is an empty result, not an error.
func (c *ListenBrainzClient) CFRecordings(ctx context.Context, user string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/1/cf/recommendation/user/%s/recording", c.baseURL, url.PathEscape(user))
	params := url.Values{"count": []string{"100"}}

	resp, err := c.fetcher.Get(ctx, endpoint, c.headers(), params)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent || len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, nil
	}

	var payload struct {
		Payload struct {
			MBIDs []struct {
				RecordingMBID string `json:"recording_mbid"`
			} `json:"mbids"`
		} `json:"payload"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	var recordings []string
	for _, m := range payload.Payload.MBIDs {
		if m.RecordingMBID != "" {
			recordings = append(recordings, m.RecordingMBID)
		}
	}

	return recordings, nil
}
