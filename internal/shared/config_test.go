package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeProfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	return path
}

const minimalProfile = `
listenbrainz:
  username: alice
  user_token: secret
  weekly-exploration: true
plex:
  enabled: true
  url: http://plex:32400
  token: plex-token
  library: Music
`

func TestLoadProfileAppliesDefaults(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "alice.yaml", minimalProfile)

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}

	if profile.Name != "alice.yaml" {
		t.Errorf("Name = %q", profile.Name)
	}
	if !profile.Recommender.DryRun {
		t.Error("dry_run should default to true")
	}
	if profile.ListenBrainz.URL != "https://api.listenbrainz.org" {
		t.Errorf("listenbrainz url = %q", profile.ListenBrainz.URL)
	}
	if profile.Plex.MatchThreshold != 0.72 {
		t.Errorf("match_threshold = %v, want default 0.72", profile.Plex.MatchThreshold)
	}
	if profile.Plex.KeepWeeks != 6 {
		t.Errorf("keep_weeks = %v, want default 6", profile.Plex.KeepWeeks)
	}
	if profile.Plex.URL != "http://plex:32400" {
		t.Errorf("plex url = %q", profile.Plex.URL)
	}
}

func TestLoadProfileEnvOverride(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "alice.yaml", minimalProfile)

	t.Setenv("SCOUTARR_PLEX__TOKEN", "from-env")
	t.Setenv("SCOUTARR_RECOMMENDER__DRY_RUN", "false")

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if profile.Plex.Token != "from-env" {
		t.Errorf("plex token = %q, want the environment override", profile.Plex.Token)
	}
	if profile.Recommender.DryRun {
		t.Error("dry_run not overridden by environment")
	}
}

func TestLoadProfileBadYAML(t *testing.T) {
	path := writeProfile(t, t.TempDir(), "bad.yaml", "plex: [not a map")
	if _, err := LoadProfile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := DefaultProfile()
	valid.ListenBrainz.Username = "alice"
	valid.ListenBrainz.UserToken = "secret"
	valid.ListenBrainz.WeeklyExploration = true
	valid.Lidarr.Enabled = true
	valid.Lidarr.URL = "http://lidarr:8686"
	valid.Lidarr.APIKey = "key"
	valid.Plex.Enabled = true
	valid.Plex.URL = "http://plex:32400"
	valid.Plex.Token = "token"
	valid.Plex.Library = "Music"

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"valid", func(p *Profile) {}, false},
		{"missing token with feeds on", func(p *Profile) { p.ListenBrainz.UserToken = "" }, true},
		{"no feeds needs no credentials", func(p *Profile) {
			p.ListenBrainz.WeeklyExploration = false
			p.ListenBrainz.UserToken = ""
			p.ListenBrainz.Username = ""
		}, false},
		{"lidarr missing api key", func(p *Profile) { p.Lidarr.APIKey = "" }, true},
		{"lidarr disabled ignores api key", func(p *Profile) {
			p.Lidarr.Enabled = false
			p.Lidarr.APIKey = ""
		}, false},
		{"plex missing library", func(p *Profile) { p.Plex.Library = "" }, true},
		{"threshold out of range", func(p *Profile) { p.Plex.MatchThreshold = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := valid
			tt.mutate(&profile)
			err := profile.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDiscoverProfiles(t *testing.T) {
	empty := t.TempDir()
	populated := t.TempDir()
	writeProfile(t, populated, "b.yaml", "")
	writeProfile(t, populated, "a.yaml", "")
	writeProfile(t, populated, "c.yml", "")
	writeProfile(t, populated, "notes.txt", "")

	paths, err := DiscoverProfiles(empty, populated)
	if err != nil {
		t.Fatalf("DiscoverProfiles failed: %v", err)
	}

	want := []string{
		filepath.Join(populated, "a.yaml"),
		filepath.Join(populated, "b.yaml"),
		filepath.Join(populated, "c.yml"),
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDiscoverProfilesNoneFound(t *testing.T) {
	_, err := DiscoverProfiles(t.TempDir(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("error = %v, want ErrMissingConfig", err)
	}
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile failed: %v", err)
	}

	// The example must round-trip through the loader.
	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("example profile does not load: %v", err)
	}
	if !profile.Recommender.DryRun {
		t.Error("example profile should default to dry_run")
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected refusal to overwrite an existing file")
	}
}
