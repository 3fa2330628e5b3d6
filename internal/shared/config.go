package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

//go:embed config.example.yaml
var exampleConf []byte

// envPrefix scopes environment overrides, e.g. SCOUTARR_PLEX__TOKEN.
const envPrefix = "SCOUTARR_"

// Profile is one reconciliation configuration, loaded from a single YAML file.
// A deployment may carry several profiles (one file each); they are processed
// independently and in filename order.
type Profile struct {
	// Name is the profile's file basename, used in logs. Not set from YAML.
	Name string `koanf:"-"`

	Recommender  RecommenderConfig  `koanf:"recommender"`
	ListenBrainz ListenBrainzConfig `koanf:"listenbrainz"`
	MusicBrainz  MusicBrainzConfig  `koanf:"musicbrainz"`
	Lidarr       LidarrConfig       `koanf:"lidarr"`
	Plex         PlexConfig         `koanf:"plex"`
}

// RecommenderConfig contains run-wide toggles. ForceIPv4 restricts upstream
// dials to tcp4, for hosts whose IPv6 routes to the media servers are broken.
type RecommenderConfig struct {
	DryRun    bool `koanf:"dry_run"`
	ForceIPv4 bool `koanf:"force_ipv4"`
}

// ListenBrainzConfig selects which recommendation feeds to pull.
type ListenBrainzConfig struct {
	URL                    string `koanf:"url"`
	Username               string `koanf:"username"`
	UserToken              string `koanf:"user_token"`
	WeeklyExploration      bool   `koanf:"weekly-exploration"`
	CollaborativeFiltering bool   `koanf:"collaborative-filtering"`
}

// MusicBrainzConfig points at the MusicBrainz instance used to resolve
// CF recording MBIDs to artists.
type MusicBrainzConfig struct {
	URL string `koanf:"url"`
}

// LidarrConfig contains the artist-import settings.
type LidarrConfig struct {
	Enabled         bool     `koanf:"enabled"`
	URL             string   `koanf:"url"`
	APIKey          string   `koanf:"api_key"`
	QualityProfile  string   `koanf:"quality_profile"`
	MetadataProfile string   `koanf:"metadata_profile"`
	RootFolder      string   `koanf:"root_folder"`
	MonitorNew      string   `koanf:"monitor_new"`
	MonitorExisting string   `koanf:"monitor_existing"`
	SearchOnAdd     bool     `koanf:"search_on_add"`
	Tags            []string `koanf:"tags"`
}

// PlexConfig contains the playlist-publishing settings.
type PlexConfig struct {
	Enabled        bool    `koanf:"enabled"`
	URL            string  `koanf:"url"`
	Token          string  `koanf:"token"`
	Library        string  `koanf:"library"`
	PlaylistPrefix string  `koanf:"playlist_prefix"`
	RollingAlias   bool    `koanf:"rolling_alias"`
	KeepWeeks      int     `koanf:"keep_weeks"`
	MatchThreshold float64 `koanf:"match_threshold"`
}

// DefaultProfile returns a Profile with the documented defaults applied.
func DefaultProfile() Profile {
	return Profile{
		Recommender:  RecommenderConfig{DryRun: true},
		ListenBrainz: ListenBrainzConfig{URL: "https://api.listenbrainz.org"},
		MusicBrainz:  MusicBrainzConfig{URL: "https://musicbrainz.org"},
		Plex: PlexConfig{
			PlaylistPrefix: "ListenBrainz Weekly Explore",
			RollingAlias:   true,
			KeepWeeks:      6,
			MatchThreshold: 0.72,
		},
	}
}

// LoadProfile reads one YAML profile, layering defaults, the file, and
// SCOUTARR_* environment variables (double underscore separates nesting,
// e.g. SCOUTARR_PLEX__TOKEN overrides plex.token).
func LoadProfile(path string) (*Profile, error) {
	k := koanf.New(".")

	defaults := DefaultProfile()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var profile Profile
	if err := k.Unmarshal("", &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %s: %w", path, err)
	}

	profile.Name = filepath.Base(path)
	return &profile, nil
}

func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks that every enabled integration has the fields it needs.
func (p *Profile) Validate() error {
	feedEnabled := p.ListenBrainz.WeeklyExploration || p.ListenBrainz.CollaborativeFiltering
	if feedEnabled && (p.ListenBrainz.Username == "" || p.ListenBrainz.UserToken == "") {
		return fmt.Errorf("%w: listenbrainz.username and listenbrainz.user_token are required", ErrInvalidConfig)
	}
	if p.Lidarr.Enabled && (p.Lidarr.URL == "" || p.Lidarr.APIKey == "") {
		return fmt.Errorf("%w: lidarr.url and lidarr.api_key are required", ErrInvalidConfig)
	}
	if p.Plex.Enabled && (p.Plex.URL == "" || p.Plex.Token == "" || p.Plex.Library == "") {
		return fmt.Errorf("%w: plex.url, plex.token and plex.library are required", ErrInvalidConfig)
	}
	if p.Plex.MatchThreshold < 0 || p.Plex.MatchThreshold > 1 {
		return fmt.Errorf("%w: plex.match_threshold must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}

// DiscoverProfiles returns the YAML profile files in the first directory of
// dirs that contains any, sorted by filename. Missing directories are skipped.
func DiscoverProfiles(dirs ...string) ([]string, error) {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		var files []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
			}
			files = append(files, matches...)
		}

		if len(files) > 0 {
			sort.Strings(files)
			return files, nil
		}
	}

	return nil, ErrMissingConfig
}

// CreateConfigFile writes the embedded example profile to path, refusing to
// overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
