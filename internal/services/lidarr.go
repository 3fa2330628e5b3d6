// Lidarr v1 API client
//
// Covers the small surface the artist import needs: profile/tag resolution,
// lookup by MBID, and artist creation.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christuckey/scoutarr/internal/fetch"
	"github.com/christuckey/scoutarr/internal/shared"
	"golang.org/x/time/rate"
)

// lidarrAddInterval spaces artist creations out; adding a feed's worth of
// artists in a tight loop trips Lidarr's indexer lookups.
var lidarrAddInterval = rate.Every(300 * time.Millisecond)

// LidarrArtist is the subset of a Lidarr artist resource the import needs.
// A non-zero ID means the artist already exists in the library.
type LidarrArtist struct {
	ID              int64  `json:"id"`
	ArtistName      string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
}

// ImportTargets are the resolved numeric IDs an artist add requires.
type ImportTargets struct {
	QualityProfileID  int64
	MetadataProfileID int64
	TagIDs            []int64
}

// AddOptions mirror the profile's lidarr settings for a single add call.
type AddOptions struct {
	RootFolder      string
	MonitorNew      string
	MonitorExisting string
	SearchOnAdd     bool
}

// LidarrClient talks to a Lidarr instance using API-key auth.
type LidarrClient struct {
	baseURL    string
	apiKey     string
	fetcher    *fetch.Client
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLidarrClient creates a Lidarr client. Reads go through the resilient
// fetcher; writes use a plain client so a failed add surfaces immediately.
func NewLidarrClient(baseURL, apiKey string, fetcher *fetch.Client) *LidarrClient {
	return &LidarrClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		fetcher:    fetcher,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(lidarrAddInterval, 1),
	}
}

func (c *LidarrClient) headers() map[string]string {
	return map[string]string{"X-Api-Key": c.apiKey}
}

func (c *LidarrClient) get(ctx context.Context, path string, params url.Values, v any) error {
	endpoint := fmt.Sprintf("%s/api/v1/%s", c.baseURL, path)
	resp, err := c.fetcher.Get(ctx, endpoint, c.headers(), params)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}

// LookupArtist searches Lidarr's metadata index for an artist MBID. A nil
// result means the index knows nothing about the MBID.
func (c *LidarrClient) LookupArtist(ctx context.Context, mbid string) (*LidarrArtist, error) {
	params := url.Values{"term": []string{"mbid:" + mbid}}

	var results []LidarrArtist
	if err := c.get(ctx, "artist/lookup", params, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// ResolveImportTargets maps the configured profile and tag names to their
// Lidarr IDs. Unknown profile names are an error; unknown tag names are
// skipped.
func (c *LidarrClient) ResolveImportTargets(ctx context.Context, qualityProfile, metadataProfile string, tags []string) (*ImportTargets, error) {
	type namedRef struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Label string `json:"label"`
	}

	var qualityProfiles, metadataProfiles, tagRefs []namedRef
	if err := c.get(ctx, "qualityprofile", nil, &qualityProfiles); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "metadataprofile", nil, &metadataProfiles); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "tag", nil, &tagRefs); err != nil {
		return nil, err
	}

	targets := &ImportTargets{}
	for _, qp := range qualityProfiles {
		if qp.Name == qualityProfile {
			targets.QualityProfileID = qp.ID
		}
	}
	if targets.QualityProfileID == 0 {
		return nil, fmt.Errorf("%w: quality profile %q not found", shared.ErrInvalidConfig, qualityProfile)
	}

	for _, mp := range metadataProfiles {
		if mp.Name == metadataProfile {
			targets.MetadataProfileID = mp.ID
		}
	}
	if targets.MetadataProfileID == 0 {
		return nil, fmt.Errorf("%w: metadata profile %q not found", shared.ErrInvalidConfig, metadataProfile)
	}

	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}
	for _, tag := range tagRefs {
		if wanted[tag.Label] {
			targets.TagIDs = append(targets.TagIDs, tag.ID)
		}
	}

	return targets, nil
}

// AddArtist creates a monitored artist from a lookup result. Calls are
// throttled by the client's limiter.
func (c *LidarrClient) AddArtist(ctx context.Context, artist *LidarrArtist, targets *ImportTargets, opts AddOptions) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := map[string]any{
		"artistName":        artist.ArtistName,
		"foreignArtistId":   artist.ForeignArtistID,
		"qualityProfileId":  targets.QualityProfileID,
		"metadataProfileId": targets.MetadataProfileID,
		"rootFolderPath":    opts.RootFolder,
		"monitored":         true,
		"monitorNewItems":   opts.MonitorNew,
		"tags":              targets.TagIDs,
		"addOptions": map[string]any{
			"monitor":                opts.MonitorExisting,
			"searchForMissingAlbums": opts.SearchOnAdd,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal add artist request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/artist", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: add artist %q returned status %d: %s",
			shared.ErrAPIRequest, artist.ArtistName, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
