package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/christuckey/scoutarr/internal/shared"
	ttest "github.com/christuckey/scoutarr/internal/testing"
)

func newTestPlex(t *testing.T, handler http.Handler) (*PlexClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlexClient(srv.URL, "plex-token", "Music", testFetcher()), srv
}

func plexMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<MediaContainer machineIdentifier="machine-1"/>`)
	})
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<MediaContainer>
			<Directory key="1" title="Movies" type="movie"/>
			<Directory key="2" title="MUSIC" type="artist"/>
		</MediaContainer>`)
	})
	return mux
}

func TestSectionIDCaseInsensitive(t *testing.T) {
	client, _ := newTestPlex(t, plexMux(t))

	id, err := client.SectionID(context.Background())
	if err != nil {
		t.Fatalf("SectionID failed: %v", err)
	}
	if id != "2" {
		t.Errorf("section id = %q, want 2", id)
	}
}

func TestSectionIDNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<MediaContainer><Directory key="1" title="Movies"/></MediaContainer>`)
	})
	client, _ := newTestPlex(t, mux)

	_, err := client.SectionID(context.Background())
	if !errors.Is(err, shared.ErrLibraryNotFound) {
		t.Errorf("error = %v, want ErrLibraryNotFound", err)
	}
}

func TestSearchTracks(t *testing.T) {
	mux := plexMux(t)
	mux.HandleFunc("/library/sections/2/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "10" {
			t.Errorf("type = %q, want 10", got)
		}
		if got := r.URL.Query().Get("query"); got != "Block of Ice" {
			t.Errorf("query = %q, want Block of Ice", got)
		}
		if got := r.Header.Get("X-Plex-Token"); got != "plex-token" {
			t.Errorf("X-Plex-Token = %q", got)
		}
		fmt.Fprint(w, `<MediaContainer>
			<Track ratingKey="501" title="Block of Ice" grandparentTitle="Various Artists"
			       parentTitle="Help" originalTitle="Thee Oh Sees"/>
		</MediaContainer>`)
	})
	client, _ := newTestPlex(t, mux)

	candidates, err := client.SearchTracks(context.Background(), "Block of Ice")
	if err != nil {
		t.Fatalf("SearchTracks failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	c := candidates[0]
	if c.Key != "501" || c.Title != "Block of Ice" || c.Artist != "Various Artists" ||
		c.Album != "Help" || c.AlternateArtist != "Thee Oh Sees" {
		t.Errorf("candidate = %+v", c)
	}
}

func TestSearchAlbumsAndChildren(t *testing.T) {
	mux := plexMux(t)
	mux.HandleFunc("/library/sections/2/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "9" {
			t.Errorf("type = %q, want 9", got)
		}
		if got := r.URL.Query().Get("query"); got != "Floating Coffin" {
			t.Errorf("query = %q, want Floating Coffin", got)
		}
		fmt.Fprint(w, `<MediaContainer>
			<Directory ratingKey="700" title="Floating Coffin" type="album"/>
		</MediaContainer>`)
	})
	mux.HandleFunc("/library/metadata/700/children", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<MediaContainer>
			<Track ratingKey="701" title="I Come from the Mountain"
			       grandparentTitle="Thee Oh Sees" parentTitle="Floating Coffin"/>
		</MediaContainer>`)
	})
	client, _ := newTestPlex(t, mux)

	keys, err := client.SearchAlbums(context.Background(), "Floating Coffin")
	if err != nil {
		t.Fatalf("SearchAlbums failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "700" {
		t.Fatalf("album keys = %v", keys)
	}

	tracks, err := client.AlbumTracks(context.Background(), keys[0])
	if err != nil {
		t.Fatalf("AlbumTracks failed: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Key != "701" {
		t.Errorf("album tracks = %+v", tracks)
	}
}

func TestCreatePlaylist(t *testing.T) {
	mux := plexMux(t)
	var created *http.Request
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created = r.Clone(context.Background())
		}
		fmt.Fprint(w, `<MediaContainer/>`)
	})
	client, _ := newTestPlex(t, mux)

	err := client.CreatePlaylist(context.Background(), "Weekly – 2026 W35", []string{"501", "701"})
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	if created == nil {
		t.Fatal("no POST reached the server")
	}

	q := created.URL.Query()
	if q.Get("type") != "audio" || q.Get("smart") != "0" {
		t.Errorf("query = %v", q)
	}
	if q.Get("title") != "Weekly – 2026 W35" {
		t.Errorf("title = %q", q.Get("title"))
	}
	wantURI := "server://machine-1/com.plexapp.plugins.library/library/metadata/501,701"
	if q.Get("uri") != wantURI {
		t.Errorf("uri = %q, want %q", q.Get("uri"), wantURI)
	}
}

func TestDeletePlaylistIdempotent(t *testing.T) {
	mux := plexMux(t)
	mux.HandleFunc("/playlists/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/playlists/denied", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	client, _ := newTestPlex(t, mux)

	if err := client.DeletePlaylist(context.Background(), "gone"); err != nil {
		t.Errorf("deleting a missing playlist should succeed, got %v", err)
	}

	err := client.DeletePlaylist(context.Background(), "denied")
	if !errors.Is(err, shared.ErrCatalogOperation) {
		t.Errorf("error = %v, want ErrCatalogOperation", err)
	}
}

func TestDeletePlaylistRouted(t *testing.T) {
	rt := ttest.NewRouteTripper()
	rt.HandleStatic("/playlists/900", http.StatusOK, "")

	client := NewPlexClient("http://plex.local", "plex-token", "Music", testFetcher())
	client.httpClient = &http.Client{Transport: rt}

	ttest.AssertNoError(t, client.DeletePlaylist(context.Background(), "900"))
	if len(rt.Requests) != 1 || rt.Requests[0].Method != http.MethodDelete {
		t.Errorf("requests = %+v", rt.Requests)
	}
	if got := rt.Requests[0].Header.Get("X-Plex-Token"); got != "plex-token" {
		t.Errorf("X-Plex-Token = %q", got)
	}
}

func TestPlaylists(t *testing.T) {
	mux := plexMux(t)
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<MediaContainer>
			<Playlist ratingKey="900" title="Weekly – 2026 W34"/>
			<Playlist ratingKey="901" title="Weekly – Last Week"/>
		</MediaContainer>`)
	})
	client, _ := newTestPlex(t, mux)

	entries, err := client.Playlists(context.Background())
	if err != nil {
		t.Fatalf("Playlists failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "900" || entries[1].Title != "Weekly – Last Week" {
		t.Errorf("entries = %+v", entries)
	}
}
