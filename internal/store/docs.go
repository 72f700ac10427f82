package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Song is one stored entry of a favorites or playlist document. The recovery
// tag records how its title was last restored and is preserved across
// re-imports.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Recovery string `json:"recovery_method,omitempty"`
}

// Playlist is a named set of songs keyed by the platform playlist id.
type Playlist struct {
	Title string `json:"title"`
	Songs []Song `json:"songs"`
}

// Documents owns the flat JSON favorites and playlists files. Every write
// rewrites the whole document; last writer wins.
type Documents struct {
	favPath   string
	plistPath string
	mu        sync.Mutex
}

func NewDocuments(dir string) *Documents {
	return &Documents{
		favPath:   filepath.Join(dir, "favorites.json"),
		plistPath: filepath.Join(dir, "playlists.json"),
	}
}

// Favorites loads the favorites list. Missing or corrupt file yields empty.
func (d *Documents) Favorites() []Song {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadFavoritesLocked()
}

func (d *Documents) loadFavoritesLocked() []Song {
	data, err := os.ReadFile(d.favPath)
	if err != nil {
		return nil
	}
	var favs []Song
	if err := json.Unmarshal(data, &favs); err != nil {
		return nil
	}
	return favs
}

// SaveFavorites rewrites the favorites document.
func (d *Documents) SaveFavorites(favs []Song) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(d.favPath, favs)
}

// UpdateFavorites applies mutate to a freshly loaded favorites list and
// rewrites the document, all under the store lock. Concurrent
// read-modify-write cycles (a user command racing a verification pass)
// serialize here instead of erasing each other's edits.
func (d *Documents) UpdateFavorites(mutate func(favs []Song) []Song) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(d.favPath, mutate(d.loadFavoritesLocked()))
}

// AddFavorite appends a song unless its id is already stored. It reports
// whether the song was added.
func (d *Documents) AddFavorite(s Song) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	favs := d.loadFavoritesLocked()
	for _, f := range favs {
		if f.ID == s.ID {
			return false, nil
		}
	}
	return true, d.write(d.favPath, append(favs, s))
}

// Playlists loads all imported playlists keyed by id. A legacy document
// holding a bare song array migrates into a single "migrated" playlist.
func (d *Documents) Playlists() map[string]Playlist {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadPlaylistsLocked()
}

func (d *Documents) loadPlaylistsLocked() map[string]Playlist {
	data, err := os.ReadFile(d.plistPath)
	if err != nil {
		return map[string]Playlist{}
	}

	var plists map[string]Playlist
	if err := json.Unmarshal(data, &plists); err == nil {
		return plists
	}

	var legacy []Song
	if err := json.Unmarshal(data, &legacy); err == nil && len(legacy) > 0 {
		return map[string]Playlist{
			"migrated": {Title: "Mi Lista", Songs: legacy},
		}
	}
	return map[string]Playlist{}
}

// SavePlaylists rewrites the playlists document.
func (d *Documents) SavePlaylists(plists map[string]Playlist) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(d.plistPath, plists)
}

// UpdatePlaylists applies mutate to the freshly loaded playlists map and
// rewrites the document under the store lock. All mutations of the stored
// playlists go through here so a batch pass and a user edit cannot undo one
// another.
func (d *Documents) UpdatePlaylists(mutate func(all map[string]Playlist)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	all := d.loadPlaylistsLocked()
	mutate(all)
	return d.write(d.plistPath, all)
}

// FindPlaylist resolves a query to a stored playlist: exact id match first,
// then case-insensitive substring over ids and titles.
func (d *Documents) FindPlaylist(query string) (string, Playlist, bool) {
	plists := d.Playlists()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", Playlist{}, false
	}

	if p, ok := plists[q]; ok {
		return q, p, true
	}
	for id, p := range plists {
		if strings.Contains(strings.ToLower(id), q) ||
			strings.Contains(strings.ToLower(p.Title), q) {
			return id, p, true
		}
	}
	return "", Playlist{}, false
}

// MergePlaylist folds freshly imported entries into any stored playlist with
// the same id. Entries already known keep their stored title and recovery tag;
// stored songs missing from the import ("orphans") are appended when
// keepOrphans is set. It returns the merged playlist plus the counts of new
// and preserved songs and the orphans found.
func MergePlaylist(old Playlist, title string, imported []Song, keepOrphans bool) (Playlist, int, int, []Song) {
	oldByID := make(map[string]Song, len(old.Songs))
	for _, s := range old.Songs {
		oldByID[s.ID] = s
	}
	importedIDs := make(map[string]struct{}, len(imported))
	for _, s := range imported {
		if s.ID != "" {
			importedIDs[s.ID] = struct{}{}
		}
	}

	var orphans []Song
	for _, s := range old.Songs {
		if _, ok := importedIDs[s.ID]; !ok {
			orphans = append(orphans, s)
		}
	}

	merged := Playlist{Title: title}
	var added, preserved int
	for _, s := range imported {
		if s.ID == "" {
			continue
		}
		if prev, ok := oldByID[s.ID]; ok {
			merged.Songs = append(merged.Songs, prev)
			preserved++
		} else {
			if s.Title == "" {
				s.Title = "Sin título"
			}
			merged.Songs = append(merged.Songs, s)
			added++
		}
	}
	if keepOrphans {
		merged.Songs = append(merged.Songs, orphans...)
	}
	return merged, added, preserved, orphans
}

func (d *Documents) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
