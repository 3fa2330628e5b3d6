// MusicBrainz web service client, used to resolve the CF feed's recording
// MBIDs to their primary artist.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/christuckey/scoutarr/internal/fetch"
	"golang.org/x/time/rate"
)

// mbRateLimit throttles recording lookups to respect the MusicBrainz
// rate-limit policy (the CF feed fans out one lookup per recording).
var mbRateLimit = rate.Every(200 * time.Millisecond)

// MusicBrainzClient resolves recording MBIDs against a MusicBrainz instance.
type MusicBrainzClient struct {
	baseURL string
	fetcher *fetch.Client
	limiter *rate.Limiter
}

// NewMusicBrainzClient creates a throttled MusicBrainz client.
func NewMusicBrainzClient(baseURL string, fetcher *fetch.Client) *MusicBrainzClient {
	return &MusicBrainzClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		limiter: rate.NewLimiter(mbRateLimit, 1),
	}
}

// PrimaryArtist returns the first credited artist of a recording, or nil when
// the recording has no artist credit.
func (c *MusicBrainzClient) PrimaryArtist(ctx context.Context, recordingMBID string) (*RecommendedArtist, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/ws/2/recording/%s", c.baseURL, url.PathEscape(recordingMBID))
	params := url.Values{
		"inc": []string{"artist-credits"},
		"fmt": []string{"json"},
	}

	resp, err := c.fetcher.Get(ctx, endpoint, nil, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ArtistCredit []struct {
			Artist struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"artist-credit"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	if len(payload.ArtistCredit) == 0 {
		return nil, nil
	}

	artist := payload.ArtistCredit[0].Artist
	return &RecommendedArtist{MBID: artist.ID, Name: artist.Name}, nil
}
