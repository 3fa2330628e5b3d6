// package playlist manages the dated weekly playlists published to the
// catalog. Playlist titles are the only durable state: the week a playlist
// covers is parsed back out of its title, so the title format is a
// compatibility contract.
package playlist

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/christuckey/scoutarr/internal/services"
	"github.com/christuckey/scoutarr/internal/shared"
)

var (
	periodRe      = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
	titleSuffixRe = regexp.MustCompile(`(\d{4}) W(\d{2})$`)
)

// DeriveTitle renders a dated playlist title from an ISO week period ID like
// "2026-W35". The en dash separator is part of the durable title format.
func DeriveTitle(periodID, prefix string) (string, error) {
	m := periodRe.FindStringSubmatch(periodID)
	if m == nil {
		return "", fmt.Errorf("%w: %q is not an ISO week ID", shared.ErrInvalidPeriod, periodID)
	}
	return fmt.Sprintf("%s – %s W%s", prefix, m[1], m[2]), nil
}

// AliasTitle is the stable title of the rolling "last week" playlist.
func AliasTitle(prefix string) string {
	return prefix + " – Last Week"
}

// Manager publishes dated playlists and prunes expired ones.
type Manager struct {
	store  services.PlaylistStore
	prefix string
	logger *log.Logger
}

// NewManager creates a Manager for playlists carrying the given title prefix.
func NewManager(store services.PlaylistStore, prefix string, logger *log.Logger) *Manager {
	return &Manager{store: store, prefix: prefix, logger: logger}
}

// Publish creates the dated playlist for a period, replacing any existing
// playlist with the same title. Publishing zero tracks is skipped so a feed
// hiccup never erases an existing week.
func (m *Manager) Publish(ctx context.Context, periodID string, trackKeys []string) error {
	title, err := DeriveTitle(periodID, m.prefix)
	if err != nil {
		return err
	}
	return m.replace(ctx, title, trackKeys)
}

// PublishAlias replaces the rolling alias playlist with the given tracks.
func (m *Manager) PublishAlias(ctx context.Context, trackKeys []string) error {
	return m.replace(ctx, AliasTitle(m.prefix), trackKeys)
}

func (m *Manager) replace(ctx context.Context, title string, trackKeys []string) error {
	if len(trackKeys) == 0 {
		m.logger.Warn("skipping empty playlist", "title", title)
		return nil
	}

	entries, err := m.store.Playlists(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Title != title {
			continue
		}
		if err := m.store.DeletePlaylist(ctx, entry.Key); err != nil {
			return err
		}
		m.logger.Debug("replaced existing playlist", "title", title)
	}

	if err := m.store.CreatePlaylist(ctx, title, trackKeys); err != nil {
		return err
	}
	m.logger.Info("published playlist", "title", title, "tracks", len(trackKeys))
	return nil
}

// ApplyRetention deletes dated playlists beyond the keepWeeks most recent.
// The rolling alias is never touched, and keepWeeks <= 0 disables pruning.
// Run it before publishing the new week so the incoming playlist is never
// a retention victim.
func (m *Manager) ApplyRetention(ctx context.Context, keepWeeks int) error {
	if keepWeeks <= 0 {
		return nil
	}

	entries, err := m.store.Playlists(ctx)
	if err != nil {
		return err
	}

	type datedEntry struct {
		entry services.PlaylistEntry
		year  int
		week  int
	}

	alias := AliasTitle(m.prefix)
	prefix := m.prefix + " – "

	var dated []datedEntry
	for _, entry := range entries {
		if entry.Title == alias || !strings.HasPrefix(entry.Title, prefix) {
			continue
		}
		suffix := titleSuffixRe.FindStringSubmatch(entry.Title)
		if suffix == nil {
			continue
		}
		year, _ := strconv.Atoi(suffix[1])
		week, _ := strconv.Atoi(suffix[2])
		dated = append(dated, datedEntry{entry: entry, year: year, week: week})
	}

	sort.Slice(dated, func(i, j int) bool {
		if dated[i].year != dated[j].year {
			return dated[i].year > dated[j].year
		}
		return dated[i].week > dated[j].week
	})

	for _, d := range dated[min(keepWeeks, len(dated)):] {
		if err := m.store.DeletePlaylist(ctx, d.entry.Key); err != nil {
			return err
		}
		m.logger.Info("pruned expired playlist", "title", d.entry.Title)
	}

	return nil
}
