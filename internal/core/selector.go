package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tunepilot/internal/store"
	"tunepilot/pkg/fuzzy"
)

const randomFavoriteTries = 5

// nextCandidate picks the next track: manual queue first, then playlist
// round-robin, then the radio tiers. The returned path is a finished
// download, ready to hand to the player.
func (c *Controller) nextCandidate(ctx context.Context) (*MediaRef, string, error) {
	if ref, path, ok := c.fromQueue(ctx); ok {
		c.metrics.Selection(SourceQueue)
		return ref, path, nil
	}
	if ref, path, ok := c.fromPlaylist(ctx); ok {
		c.metrics.Selection(SourcePlaylist)
		return ref, path, nil
	}

	c.mu.Lock()
	radio := c.radio
	c.mu.Unlock()
	if !radio {
		return nil, "", ErrRadioOff
	}
	return c.fromRadio(ctx)
}

// fromQueue pops entries until one downloads. Entries without a source URL
// were enqueued from flat metadata and are resolved first.
func (c *Controller) fromQueue(ctx context.Context) (*MediaRef, string, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return nil, "", false
		}
		entry := c.queue[0]
		c.queue = c.queue[1:]
		c.metrics.QueueLength(len(c.queue))
		c.mu.Unlock()

		ref := entry.Ref
		if entry.Path != "" {
			return &ref, entry.Path, true
		}
		if ref.SourceURL == "" {
			full, err := c.source.Probe(ctx, ref.ID)
			if err != nil {
				c.logger.Warn("queued entry unresolvable, dropping", zap.String("id", ref.ID), zap.Error(err))
				continue
			}
			ref.Duration = full.Duration
			ref.SourceURL = full.SourceURL
			if ref.Title == "" || IsGenericStored(ref.Title) {
				ref.Title = full.Title
			}
		}
		path, err := c.download(ctx, ref)
		if err != nil {
			continue
		}
		return &ref, path, true
	}
}

// fromPlaylist advances the active playlist round-robin. History and
// similarity checks are skipped so a looping playlist can repeat itself.
func (c *Controller) fromPlaylist(ctx context.Context) (*MediaRef, string, bool) {
	c.mu.Lock()
	if !c.plistMode {
		c.mu.Unlock()
		return nil, "", false
	}
	plistID := c.plistID
	index := c.plistIndex
	cfg := *c.cfg
	c.mu.Unlock()

	songs := c.playlistSongs(plistID)
	if len(songs) == 0 {
		c.logger.Warn("active playlist vanished, leaving playlist mode", zap.String("playlist", plistID))
		c.mu.Lock()
		c.plistMode = false
		c.mu.Unlock()
		return nil, "", false
	}

	for tries := 0; tries < len(songs); tries++ {
		index = (index + 1) % len(songs)
		song := songs[index]

		ref := MediaRef{
			ID:       song.ID,
			Title:    song.Title,
			Recovery: RecoveryMethod(song.Recovery),
		}
		if plistID == favoritesPlaylistID {
			ref.FromFavorites = true
		} else {
			ref.FromPlaylist = true
		}

		full, err := c.source.Probe(ctx, ref.ID)
		if err != nil {
			c.logger.Warn("playlist entry unreachable", zap.String("id", ref.ID), zap.Error(err))
			continue
		}
		ref.Duration = full.Duration
		ref.SourceURL = full.SourceURL
		if ref.Title == "" || IsGenericStored(ref.Title) {
			ref.Title = full.Title
		}
		if !IsAllowed(ref, &cfg) {
			continue
		}

		path, err := c.download(ctx, ref)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.plistIndex = index
		c.mu.Unlock()
		return &ref, path, true
	}
	return nil, "", false
}

// playlistSongs loads the active playlist's songs; the favorites list doubles
// as a playlist under its reserved id.
func (c *Controller) playlistSongs(plistID string) []store.Song {
	if plistID == favoritesPlaylistID {
		return c.docs.Favorites()
	}
	if p, ok := c.docs.Playlists()[plistID]; ok {
		return p.Songs
	}
	return nil
}

// fromRadio runs the discovery tiers: platform recommendations, deeper
// results for the last query, random favorites, then an artist search
// derived from the current title.
func (c *Controller) fromRadio(ctx context.Context) (*MediaRef, string, error) {
	c.mu.Lock()
	currentID, currentTitle := "", ""
	if c.current != nil {
		currentID, currentTitle = c.current.ID, c.current.Title
	}
	lastQuery := c.lastQuery
	lastIndex := c.lastIndex
	cfg := *c.cfg
	c.mu.Unlock()

	if currentID != "" {
		if recs, err := c.source.Recommendations(ctx, currentID); err == nil {
			for i := range recs {
				if ref, path, ok := c.tryCandidate(ctx, recs[i], currentTitle, &cfg); ok {
					c.metrics.Selection(SourceRadio)
					return ref, path, nil
				}
			}
		} else {
			c.logger.Debug("no recommendations", zap.String("id", currentID), zap.Error(err))
		}
	}

	if lastQuery != "" {
		for i := lastIndex + 1; i <= lastIndex+cfg.SearchDepth-1; i++ {
			ref, err := c.source.Search(ctx, lastQuery, i)
			if err != nil {
				break
			}
			if got, path, ok := c.tryCandidate(ctx, *ref, currentTitle, &cfg); ok {
				c.mu.Lock()
				c.lastIndex = i
				c.mu.Unlock()
				c.metrics.Selection(SourceSearch)
				return got, path, nil
			}
		}
	}

	if favs := c.docs.Favorites(); len(favs) > 0 {
		for try := 0; try < randomFavoriteTries; try++ {
			c.mu.Lock()
			song := favs[c.rnd.Intn(len(favs))]
			c.mu.Unlock()
			full, err := c.source.Probe(ctx, song.ID)
			if err != nil {
				continue
			}
			cand := *full
			if song.Title != "" && !IsGenericStored(song.Title) {
				cand.Title = song.Title
			}
			cand.FromFavorites = true
			if ref, path, ok := c.tryCandidate(ctx, cand, currentTitle, &cfg); ok {
				c.metrics.Selection(SourceFavorites)
				return ref, path, nil
			}
		}
	}

	if artist := artistPrefix(currentTitle); artist != "" {
		ref, err := c.source.Search(ctx, artist, 0)
		if err == nil {
			if got, path, ok := c.tryCandidate(ctx, *ref, currentTitle, &cfg); ok {
				c.metrics.Selection(SourceSearch)
				return got, path, nil
			}
		}
	}

	return nil, "", ErrExhausted
}

// tryCandidate applies the strict admission rules (history, filters,
// similarity against the current title) and downloads on success. cfg is the
// caller's locked snapshot.
func (c *Controller) tryCandidate(ctx context.Context, ref MediaRef, currentTitle string, cfg *Config) (*MediaRef, string, bool) {
	if c.history.Has(ref.ID) {
		return nil, "", false
	}
	for _, t := range c.history.RecentTitles() {
		if t == ref.Title {
			return nil, "", false
		}
	}
	if !IsAllowed(ref, cfg) {
		return nil, "", false
	}
	if fuzzy.TooSimilar(currentTitle, ref.Title, cfg.ForcedKeyword, cfg.SimilarityRadio) {
		c.logger.Debug("radio candidate too similar", zap.String("title", ref.Title))
		return nil, "", false
	}
	path, err := c.download(ctx, ref)
	if err != nil {
		return nil, "", false
	}
	return &ref, path, true
}

// artistPrefix extracts the artist part of a "Artist - Title" or
// "Artist (feat...)" style title, good enough to seed a related search.
func artistPrefix(title string) string {
	cut := len(title)
	if i := strings.IndexAny(title, "-("); i >= 0 {
		cut = i
	}
	artist := strings.TrimSpace(title[:cut])
	if len(artist) <= 3 {
		return ""
	}
	return artist
}
