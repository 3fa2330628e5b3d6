// Plex Media Server client
//
// Implements the Catalog and PlaylistStore surfaces over Plex's XML API.
// Reads go through the resilient fetcher; playlist mutations use a plain
// client because Plex write endpoints are not idempotent under retry.
package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christuckey/scoutarr/internal/fetch"
	"github.com/christuckey/scoutarr/internal/shared"
	"golang.org/x/text/cases"
)

type plexTrack struct {
	RatingKey        string `xml:"ratingKey,attr"`
	Title            string `xml:"title,attr"`
	GrandparentTitle string `xml:"grandparentTitle,attr"`
	ParentTitle      string `xml:"parentTitle,attr"`
	OriginalTitle    string `xml:"originalTitle,attr"`
}

type plexDirectory struct {
	Key       string `xml:"key,attr"`
	RatingKey string `xml:"ratingKey,attr"`
	Title     string `xml:"title,attr"`
	Type      string `xml:"type,attr"`
}

type plexPlaylist struct {
	RatingKey string `xml:"ratingKey,attr"`
	Title     string `xml:"title,attr"`
}

type plexContainer struct {
	XMLName           xml.Name        `xml:"MediaContainer"`
	MachineIdentifier string          `xml:"machineIdentifier,attr"`
	Tracks            []plexTrack     `xml:"Track"`
	Directories       []plexDirectory `xml:"Directory"`
	Playlists         []plexPlaylist  `xml:"Playlist"`
}

// PlexClient talks to a Plex Media Server using token auth.
type PlexClient struct {
	baseURL    string
	token      string
	library    string
	fetcher    *fetch.Client
	httpClient *http.Client

	machineID string
	sectionID string
}

// NewPlexClient creates a Plex client scoped to one music library section.
func NewPlexClient(baseURL, token, library string, fetcher *fetch.Client) *PlexClient {
	return &PlexClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		library:    library,
		fetcher:    fetcher,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *PlexClient) headers() map[string]string {
	return map[string]string{"X-Plex-Token": c.token}
}

func (c *PlexClient) get(ctx context.Context, path string, params url.Values) (*plexContainer, error) {
	resp, err := c.fetcher.Get(ctx, c.baseURL+path, c.headers(), params)
	if err != nil {
		return nil, err
	}

	var container plexContainer
	if err := xml.Unmarshal(resp.Body, &container); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &container, nil
}

// MachineID returns the server's machine identifier, cached after the first
// call. Playlist creation URIs embed it.
func (c *PlexClient) MachineID(ctx context.Context) (string, error) {
	if c.machineID != "" {
		return c.machineID, nil
	}

	container, err := c.get(ctx, "/identity", nil)
	if err != nil {
		return "", err
	}
	if container.MachineIdentifier == "" {
		return "", fmt.Errorf("%w: server identity has no machine identifier", shared.ErrCatalogOperation)
	}

	c.machineID = container.MachineIdentifier
	return c.machineID, nil
}

// SectionID resolves the configured library name to its section key, cached
// after the first call. Names compare case-insensitively.
func (c *PlexClient) SectionID(ctx context.Context) (string, error) {
	if c.sectionID != "" {
		return c.sectionID, nil
	}

	container, err := c.get(ctx, "/library/sections", nil)
	if err != nil {
		return "", err
	}

	fold := cases.Fold()
	want := fold.String(c.library)
	for _, dir := range container.Directories {
		if fold.String(dir.Title) == want {
			c.sectionID = dir.Key
			return c.sectionID, nil
		}
	}

	return "", fmt.Errorf("%w: library %q", shared.ErrLibraryNotFound, c.library)
}

func candidateFromTrack(t plexTrack) CatalogCandidate {
	return CatalogCandidate{
		Key:             t.RatingKey,
		Title:           t.Title,
		Artist:          t.GrandparentTitle,
		Album:           t.ParentTitle,
		AlternateArtist: t.OriginalTitle,
	}
}

// SearchTracks queries the section's track index.
func (c *PlexClient) SearchTracks(ctx context.Context, query string) ([]CatalogCandidate, error) {
	sectionID, err := c.SectionID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"type":  []string{"10"},
		"query": []string{query},
	}
	container, err := c.get(ctx, "/library/sections/"+sectionID+"/search", params)
	if err != nil {
		return nil, err
	}

	candidates := make([]CatalogCandidate, 0, len(container.Tracks))
	for _, t := range container.Tracks {
		candidates = append(candidates, candidateFromTrack(t))
	}
	return candidates, nil
}

// SearchAlbums queries the section's album index, returning album keys.
func (c *PlexClient) SearchAlbums(ctx context.Context, query string) ([]string, error) {
	sectionID, err := c.SectionID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"type":  []string{"9"},
		"query": []string{query},
	}
	container, err := c.get(ctx, "/library/sections/"+sectionID+"/search", params)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(container.Directories))
	for _, dir := range container.Directories {
		if dir.RatingKey != "" {
			keys = append(keys, dir.RatingKey)
		}
	}
	return keys, nil
}

// AlbumTracks enumerates the tracks of one album.
func (c *PlexClient) AlbumTracks(ctx context.Context, albumKey string) ([]CatalogCandidate, error) {
	container, err := c.get(ctx, "/library/metadata/"+url.PathEscape(albumKey)+"/children", nil)
	if err != nil {
		return nil, err
	}

	candidates := make([]CatalogCandidate, 0, len(container.Tracks))
	for _, t := range container.Tracks {
		candidates = append(candidates, candidateFromTrack(t))
	}
	return candidates, nil
}

// Playlists lists every playlist on the server.
func (c *PlexClient) Playlists(ctx context.Context) ([]PlaylistEntry, error) {
	container, err := c.get(ctx, "/playlists", nil)
	if err != nil {
		return nil, err
	}

	entries := make([]PlaylistEntry, 0, len(container.Playlists))
	for _, p := range container.Playlists {
		entries = append(entries, PlaylistEntry{Key: p.RatingKey, Title: p.Title})
	}
	return entries, nil
}

// CreatePlaylist creates an audio playlist containing trackKeys in order.
func (c *PlexClient) CreatePlaylist(ctx context.Context, title string, trackKeys []string) error {
	machineID, err := c.MachineID(ctx)
	if err != nil {
		return err
	}

	uri := fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		machineID, strings.Join(trackKeys, ","))
	params := url.Values{
		"type":  []string{"audio"},
		"title": []string{title},
		"smart": []string{"0"},
		"uri":   []string{uri},
	}

	endpoint := c.baseURL + "/playlists?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCatalogOperation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: create playlist %q returned status %d",
			shared.ErrCatalogOperation, title, resp.StatusCode)
	}
	return nil
}

// DeletePlaylist removes a playlist by key. A 404 means the playlist is
// already gone, which counts as success.
func (c *PlexClient) DeletePlaylist(ctx context.Context, key string) error {
	endpoint := c.baseURL + "/playlists/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCatalogOperation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: delete playlist %s returned status %d",
			shared.ErrCatalogOperation, key, resp.StatusCode)
	}
	return nil
}

var (
	_ Catalog       = (*PlexClient)(nil)
	_ PlaylistStore = (*PlexClient)(nil)
)
