package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFavoritesRoundtrip(t *testing.T) {
	d := NewDocuments(t.TempDir())

	if favs := d.Favorites(); len(favs) != 0 {
		t.Fatalf("fresh store should have no favorites, got %d", len(favs))
	}

	added, err := d.AddFavorite(Song{ID: "abc", Title: "Artist - Song"})
	if err != nil || !added {
		t.Fatalf("AddFavorite: added=%v err=%v", added, err)
	}

	// Same id again is a no-op.
	added, err = d.AddFavorite(Song{ID: "abc", Title: "Artist - Song (dup)"})
	if err != nil || added {
		t.Fatalf("duplicate id must not be added, added=%v err=%v", added, err)
	}

	favs := d.Favorites()
	if len(favs) != 1 || favs[0].Title != "Artist - Song" {
		t.Errorf("favorites = %+v", favs)
	}
}

func TestConcurrentAddFavorite(t *testing.T) {
	d := NewDocuments(t.TempDir())

	// Each add is a full read-modify-write; racing adds must all land.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("song%07d", n)
			if _, err := d.AddFavorite(Song{ID: id, Title: "Artist - " + id}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if favs := d.Favorites(); len(favs) != 8 {
		t.Errorf("favorites = %d, want all concurrent adds kept", len(favs))
	}
}

func TestConcurrentUpdatePlaylists(t *testing.T) {
	d := NewDocuments(t.TempDir())
	if err := d.SavePlaylists(map[string]Playlist{
		"PL123": {Title: "Chill"},
	}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := d.UpdatePlaylists(func(all map[string]Playlist) {
				p := all["PL123"]
				p.Songs = append(p.Songs, Song{ID: fmt.Sprintf("song%07d", n)})
				all["PL123"] = p
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if songs := d.Playlists()["PL123"].Songs; len(songs) != 8 {
		t.Errorf("songs = %d, want every update applied", len(songs))
	}
}

func TestFavoritesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "favorites.json"), []byte("oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if favs := NewDocuments(dir).Favorites(); favs != nil {
		t.Errorf("corrupt file should yield empty favorites, got %+v", favs)
	}
}

func TestPlaylistsRoundtrip(t *testing.T) {
	d := NewDocuments(t.TempDir())

	in := map[string]Playlist{
		"PL123": {Title: "Chill", Songs: []Song{
			{ID: "a", Title: "One"},
			{ID: "b", Title: "Two", Recovery: "meta"},
		}},
	}
	if err := d.SavePlaylists(in); err != nil {
		t.Fatalf("SavePlaylists: %v", err)
	}

	out := d.Playlists()
	if len(out) != 1 {
		t.Fatalf("got %d playlists", len(out))
	}
	if out["PL123"].Songs[1].Recovery != "meta" {
		t.Error("recovery tag must round-trip")
	}
}

func TestPlaylistsLegacyMigration(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id": "a", "title": "One"}, {"id": "b", "title": "Two"}]`
	if err := os.WriteFile(filepath.Join(dir, "playlists.json"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	out := NewDocuments(dir).Playlists()
	p, ok := out["migrated"]
	if !ok {
		t.Fatalf("legacy array should migrate, got %+v", out)
	}
	if p.Title != "Mi Lista" || len(p.Songs) != 2 {
		t.Errorf("migrated playlist = %+v", p)
	}
}

func TestFindPlaylist(t *testing.T) {
	d := NewDocuments(t.TempDir())
	if err := d.SavePlaylists(map[string]Playlist{
		"pl123": {Title: "Road Trip Bangers"},
		"pl456": {Title: "Sleepy Time"},
	}); err != nil {
		t.Fatal(err)
	}

	if id, _, ok := d.FindPlaylist("pl123"); !ok || id != "pl123" {
		t.Errorf("exact id lookup failed: %q %v", id, ok)
	}
	if id, _, ok := d.FindPlaylist("road trip"); !ok || id != "pl123" {
		t.Errorf("title substring lookup failed: %q %v", id, ok)
	}
	if _, _, ok := d.FindPlaylist("nope"); ok {
		t.Error("unknown query should not match")
	}
	if _, _, ok := d.FindPlaylist("  "); ok {
		t.Error("blank query should not match")
	}
}

func TestMergePlaylistPreservesStoredTitles(t *testing.T) {
	old := Playlist{Title: "Chill", Songs: []Song{
		{ID: "a", Title: "Recovered Name", Recovery: "sos(wayback)"},
		{ID: "gone", Title: "No Longer Online"},
	}}
	imported := []Song{
		{ID: "a", Title: "Deleted video"},
		{ID: "new", Title: "Fresh Track"},
	}

	merged, added, preserved, orphans := MergePlaylist(old, "Chill", imported, false)

	if added != 1 || preserved != 1 {
		t.Errorf("added=%d preserved=%d, want 1/1", added, preserved)
	}
	if len(orphans) != 1 || orphans[0].ID != "gone" {
		t.Errorf("orphans = %+v", orphans)
	}
	if merged.Songs[0].Title != "Recovered Name" || merged.Songs[0].Recovery != "sos(wayback)" {
		t.Error("stored title and recovery tag must win over the re-imported name")
	}
	if len(merged.Songs) != 2 {
		t.Errorf("orphans must be dropped when not kept, got %+v", merged.Songs)
	}
}

func TestMergePlaylistKeepsOrphans(t *testing.T) {
	old := Playlist{Songs: []Song{{ID: "gone", Title: "No Longer Online"}}}
	imported := []Song{{ID: "new", Title: "Fresh Track"}}

	merged, _, _, _ := MergePlaylist(old, "Chill", imported, true)
	if len(merged.Songs) != 2 {
		t.Fatalf("kept orphans should append, got %+v", merged.Songs)
	}
	if merged.Songs[1].ID != "gone" {
		t.Errorf("orphan should come last: %+v", merged.Songs)
	}
}

func TestMergePlaylistUntitledImport(t *testing.T) {
	merged, added, _, _ := MergePlaylist(Playlist{}, "New", []Song{{ID: "x"}}, false)
	if added != 1 || merged.Songs[0].Title != "Sin título" {
		t.Errorf("untitled import should get the placeholder, got %+v", merged.Songs)
	}
}
