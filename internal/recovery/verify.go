package recovery

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tunepilot/internal/core"
	"tunepilot/internal/store"
)

const rescueAttempts = 3

var emojiTags = regexp.MustCompile(`[♻🔎🆘\x{FE0F}]`)

// VerifyOptions select the verification mode.
type VerifyOptions struct {
	// Deep skips local metadata and direct probes, going straight to the
	// external recovery tiers, and re-checks entries regardless of their
	// stored tags.
	Deep bool
	// OnlyRecovered restricts the pass to entries carrying a recovery tag.
	OnlyRecovered bool
	// Apply commits title and tag changes back to the playlists document.
	// Without it the run is read-only.
	Apply bool
}

// Unavailable describes one entry that could not be reached.
type Unavailable struct {
	PlaylistID string
	Playlist   string
	Index      int
	ID         string
	Title      string
	Method     core.RecoveryMethod
}

// Report summarizes a verification run.
type Report struct {
	Checked     int
	Available   int
	Recovered   int
	Unavailable []Unavailable
	Saved       bool
}

// Verifier walks the stored playlists, probes each entry and runs the
// recovery cascade for the unreachable ones.
type Verifier struct {
	docs    *store.Documents
	source  core.Source
	engine  core.Recoverer
	logger  *zap.Logger
	workers int
}

func NewVerifier(docs *store.Documents, source core.Source, engine core.Recoverer, logger *zap.Logger, workers int) *Verifier {
	if workers <= 0 {
		workers = 4
	}
	return &Verifier{
		docs:    docs,
		source:  source,
		engine:  engine,
		logger:  logger.Named("verify"),
		workers: workers,
	}
}

// Verify checks every playlist matching query (all when query is empty).
// Mutations are collected per worker under a mutex; the single caller
// goroutine commits only the changed entries, applied onto a fresh load of
// the document, so edits made while the pass was running survive.
func (v *Verifier) Verify(ctx context.Context, query string, opts VerifyOptions) (*Report, error) {
	all := v.docs.Playlists()
	if len(all) == 0 {
		return &Report{}, nil
	}

	targets := all
	if strings.TrimSpace(query) != "" {
		id, p, ok := v.docs.FindPlaylist(query)
		if !ok {
			return nil, core.ErrNoResults
		}
		targets = map[string]store.Playlist{id: p}
	}

	report := &Report{}
	var mu sync.Mutex
	changedSongs := make(map[string]map[string]store.Song)

	for pid, pdata := range targets {
		metaMap := v.playlistMeta(ctx, pid, opts.Deep)

		songs := pdata.Songs
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.workers)

		for i := range songs {
			idx := i
			g.Go(func() error {
				s := &songs[idx]
				if opts.OnlyRecovered && s.Recovery == "" {
					return nil
				}

				res := v.checkSong(gctx, s, metaMap, opts.Deep)

				mu.Lock()
				defer mu.Unlock()
				report.Checked++
				if res.changed {
					if changedSongs[pid] == nil {
						changedSongs[pid] = make(map[string]store.Song)
					}
					changedSongs[pid][s.ID] = *s
				}
				if res.available {
					report.Available++
					return nil
				}
				if res.recovered {
					report.Recovered++
				}
				report.Unavailable = append(report.Unavailable, Unavailable{
					PlaylistID: pid,
					Playlist:   pdata.Title,
					Index:      idx,
					ID:         s.ID,
					Title:      s.Title,
					Method:     core.RecoveryMethod(s.Recovery),
				})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if len(changedSongs) > 0 && opts.Apply {
		err := v.docs.UpdatePlaylists(func(fresh map[string]store.Playlist) {
			for pid, byID := range changedSongs {
				p, ok := fresh[pid]
				if !ok {
					continue
				}
				for i := range p.Songs {
					if u, ok := byID[p.Songs[i].ID]; ok {
						p.Songs[i] = u
					}
				}
				fresh[pid] = p
			}
		})
		if err != nil {
			return nil, err
		}
		report.Saved = true
		v.logger.Info("recovered titles saved")
	}
	return report, nil
}

// RemoveUnavailable deletes the reported entries from their playlists and
// saves the document.
func (v *Verifier) RemoveUnavailable(report *Report) (int, error) {
	if len(report.Unavailable) == 0 {
		return 0, nil
	}

	drop := make(map[string]map[string]struct{})
	for _, u := range report.Unavailable {
		if drop[u.PlaylistID] == nil {
			drop[u.PlaylistID] = make(map[string]struct{})
		}
		drop[u.PlaylistID][u.ID] = struct{}{}
	}

	removed := 0
	err := v.docs.UpdatePlaylists(func(all map[string]store.Playlist) {
		for pid, ids := range drop {
			p, ok := all[pid]
			if !ok {
				continue
			}
			kept := p.Songs[:0]
			for _, s := range p.Songs {
				if _, gone := ids[s.ID]; gone {
					removed++
					continue
				}
				kept = append(kept, s)
			}
			p.Songs = kept
			all[pid] = p
		}
	})
	return removed, err
}

// VerifyFavorites probes each favorite and rescues unreachable titles. The
// favorites document is always saved when something changed; the changed
// entries are applied onto a fresh load so a favorite added mid-pass is kept.
func (v *Verifier) VerifyFavorites(ctx context.Context) (*Report, error) {
	favs := v.docs.Favorites()
	report := &Report{}
	changedFavs := make(map[string]store.Song)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	var mu sync.Mutex

	for i := range favs {
		idx := i
		g.Go(func() error {
			s := &favs[idx]
			res := v.checkSong(gctx, s, nil, false)

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if res.changed {
				changedFavs[s.ID] = *s
			}
			if res.available {
				report.Available++
			} else {
				if res.recovered {
					report.Recovered++
				}
				report.Unavailable = append(report.Unavailable, Unavailable{
					Index: idx, ID: s.ID, Title: s.Title,
					Method: core.RecoveryMethod(s.Recovery),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(changedFavs) > 0 {
		err := v.docs.UpdateFavorites(func(fresh []store.Song) []store.Song {
			for i := range fresh {
				if u, ok := changedFavs[fresh[i].ID]; ok {
					fresh[i] = u
				}
			}
			return fresh
		})
		if err != nil {
			return nil, err
		}
		report.Saved = true
	}
	return report, nil
}

// Ensure runs the cascade verbosely for one id, using every locally stored
// playlist title as a metadata hint. Diagnostic surface for the CLI.
func (v *Verifier) Ensure(ctx context.Context, id string) (string, core.RecoveryMethod, error) {
	var hint *core.MediaRef
	for _, p := range v.docs.Playlists() {
		for _, s := range p.Songs {
			if s.ID == id && s.Title != "" && !IsGeneric(s.Title) && s.Title != id {
				hint = &core.MediaRef{ID: id, Title: cleanStoredTitle(s.Title)}
			}
		}
	}
	return v.engine.Recover(ctx, id, hint, false)
}

type checkResult struct {
	available bool
	recovered bool
	changed   bool
}

// checkSong probes one entry and mutates it in place: a live entry gets its
// tag cleared, a dead one goes through up to three rescue attempts and ends
// tagged "failed" when nothing came back.
func (v *Verifier) checkSong(ctx context.Context, s *store.Song, metaMap map[string]string, deep bool) checkResult {
	title := cleanStoredTitle(s.Title)
	if title == "" {
		title = s.ID
	}
	method := core.RecoveryMethod(s.Recovery)

	if ref, err := v.source.Probe(ctx, s.ID); err == nil && ref != nil {
		res := checkResult{available: true}
		if s.Recovery != "" {
			s.Recovery = ""
			res.changed = true
		}
		if s.Title != title {
			s.Title = title
			res.changed = true
		}
		v.logger.Debug("available", zap.String("id", s.ID), zap.String("title", title))
		return res
	}

	// A meta tag is only trustworthy while the id is still listed.
	if method == core.RecoveryMeta {
		if _, ok := metaMap[s.ID]; !ok {
			method = core.RecoveryNone
		}
	}

	res := checkResult{}
	if IsGeneric(title) || title == s.ID || method == core.RecoveryNone || deep {
		var hint *core.MediaRef
		if t, ok := metaMap[s.ID]; ok {
			hint = &core.MediaRef{ID: s.ID, Title: t}
		}

		for attempt := 1; attempt <= rescueAttempts; attempt++ {
			recovered, m, err := v.engine.Recover(ctx, s.ID, hint, deep)
			if err == nil && recovered != "" {
				s.Title = recovered
				s.Recovery = string(m)
				method = m
				res.recovered = true
				res.changed = true
				v.logger.Info("title recovered",
					zap.String("id", s.ID),
					zap.String("method", string(m)),
					zap.Int("attempt", attempt),
					zap.String("title", recovered))
				break
			}
			if deep && attempt == rescueAttempts {
				if method == core.RecoveryNone || !strings.Contains(string(method), "sos") {
					s.Recovery = string(core.RecoveryFailed)
					method = core.RecoveryFailed
					res.changed = true
				}
			}
		}
	}

	// An unreachable entry that still carries a usable local title keeps it
	// but gets marked so later passes know recovery already ran.
	if s.Recovery == "" && !IsGeneric(title) && title != s.ID {
		s.Recovery = string(core.RecoveryFailed)
		res.changed = true
	}
	return res
}

// playlistMeta flat-lists the live playlist to map ids to their current
// titles. Generated local ids and deep mode skip it.
func (v *Verifier) playlistMeta(ctx context.Context, pid string, deep bool) map[string]string {
	if deep || len(pid) <= 5 || strings.HasPrefix(pid, "migrated") {
		return nil
	}
	entries, err := v.source.PlaylistEntries(ctx, pid)
	if err != nil {
		v.logger.Debug("playlist metadata unavailable", zap.String("playlist", pid), zap.Error(err))
		return nil
	}
	meta := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.ID != "" && e.Title != "" && !IsGeneric(e.Title) {
			meta[e.ID] = e.Title
		}
	}
	return meta
}

func cleanStoredTitle(title string) string {
	return strings.TrimSpace(emojiTags.ReplaceAllString(title, ""))
}
