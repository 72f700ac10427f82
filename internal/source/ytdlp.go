// Package source implements the extraction backend over yt-dlp, with native
// search API fast paths.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"go.uber.org/zap"

	"tunepilot/internal/core"
)

const (
	watchURL    = "https://www.youtube.com/watch?v="
	playlistURL = "https://www.youtube.com/playlist?list="
	mixPrefix   = "RD"

	recommendationDepth = 15
)

var listIDRegex = regexp.MustCompile(`[&?]list=([A-Za-z0-9_-]+)`)

// Backend talks to the platform through the yt-dlp extractor. It satisfies
// core.Source and is safe for concurrent use.
type Backend struct {
	logger      *zap.Logger
	searchDepth int
	tempDir     string
}

// New creates a Backend. searchDepth bounds how many results a free-text
// search fetches; tempDir receives downloaded audio files.
func New(logger *zap.Logger, searchDepth int, tempDir string) *Backend {
	if searchDepth <= 0 {
		searchDepth = 10
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Backend{
		logger:      logger.Named("source"),
		searchDepth: searchDepth,
		tempDir:     tempDir,
	}
}

// Search resolves a query to its index-th result. URLs resolve directly and
// ignore index; free text goes through the extractor's search with flat
// listing so durations are available for filtering.
func (b *Backend) Search(ctx context.Context, query string, index int) (*core.MediaRef, error) {
	if strings.HasPrefix(query, "http") {
		return b.resolve(ctx, query)
	}

	target := fmt.Sprintf("ytsearch%d:%s", b.searchDepth, query)
	refs, err := b.flatList(ctx, target, b.searchDepth)
	if err != nil {
		return nil, err
	}
	if index >= len(refs) {
		return nil, core.ErrNoResults
	}
	return &refs[index], nil
}

// QuickSearch merges the platform's native music and video search APIs. The
// results carry id and title only; durations come back as zero.
func (b *Backend) QuickSearch(ctx context.Context, query string) ([]core.MediaRef, error) {
	var refs []core.MediaRef
	seen := make(map[string]bool)

	s := ytmusic.TrackSearch(query)
	if r, err := s.Next(); err == nil {
		for _, v := range r.Tracks {
			if v.VideoID == "" || seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			title := v.Title
			if len(v.Artists) > 0 {
				title = v.Artists[0].Name + " - " + title
			}
			refs = append(refs, core.MediaRef{
				ID:        v.VideoID,
				Title:     title,
				Type:      "url",
				SourceURL: watchURL + v.VideoID,
			})
		}
	} else {
		b.logger.Debug("music search failed", zap.Error(err))
	}

	c := ytsearch.NewClient(nil)
	if r, err := c.Search(ctx, query); err == nil {
		for _, v := range r.Results {
			if v.VideoID == "" || seen[v.VideoID] {
				continue
			}
			seen[v.VideoID] = true
			refs = append(refs, core.MediaRef{
				ID:        v.VideoID,
				Title:     v.Title,
				Type:      "url",
				SourceURL: watchURL + v.VideoID,
			})
		}
	} else {
		b.logger.Debug("video search failed", zap.Error(err))
	}

	if len(refs) == 0 {
		return nil, core.ErrNoResults
	}
	return refs, nil
}

// Download fetches the audio for ref as mp3 and returns the local path.
func (b *Backend) Download(ctx context.Context, ref core.MediaRef) (string, error) {
	base := filepath.Join(b.tempDir, "tunepilot_"+uuid.NewString())
	target := ref.SourceURL
	if target == "" {
		target = watchURL + ref.ID
	}

	start := time.Now()
	_, err := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		Output(base + ".%(ext)s").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, target)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref.ID, err)
	}

	path := base + ".mp3"
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("download %s: output missing: %w", ref.ID, err)
	}

	b.logger.Debug("downloaded",
		zap.String("id", ref.ID),
		zap.Duration("took", time.Since(start)))
	return path, nil
}

// Recommendations lists the platform's auto-generated mix for a seed video,
// excluding the seed itself.
func (b *Backend) Recommendations(ctx context.Context, id string) ([]core.MediaRef, error) {
	target := watchURL + id + "&list=" + mixPrefix + id
	refs, err := b.flatList(ctx, target, recommendationDepth)
	if err != nil {
		return nil, err
	}

	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, core.ErrNoResults
	}
	return out, nil
}

// PlaylistEntries flat-lists a platform playlist without resolving entries.
func (b *Backend) PlaylistEntries(ctx context.Context, id string) ([]core.MediaRef, error) {
	return b.flatList(ctx, playlistURL+id, 0)
}

// Probe checks a single id and returns its live metadata when reachable.
func (b *Backend) Probe(ctx context.Context, id string) (*core.MediaRef, error) {
	return b.resolve(ctx, watchURL+id)
}

// Import resolves a playlist URL into (id, title, entries). When the URL
// resolves to a single video but carries a list parameter, the playlist is
// re-extracted directly. A playlist without a platform id gets a generated
// 8-char one.
func (b *Backend) Import(ctx context.Context, url string) (string, string, []core.MediaRef, error) {
	id, title, entries, err := b.importOnce(ctx, url)
	if err != nil || len(entries) == 0 {
		if m := listIDRegex.FindStringSubmatch(url); m != nil {
			forced := playlistURL + m[1]
			b.logger.Info("retrying extraction as playlist", zap.String("url", forced))
			id, title, entries, err = b.importOnce(ctx, forced)
		}
	}
	if err != nil {
		return "", "", nil, err
	}
	if len(entries) == 0 {
		return "", "", nil, core.ErrNoResults
	}
	if id == "" || id == "NA" {
		id = uuid.NewString()[:8]
	}
	if title == "" || title == "NA" {
		title = "Playlist Desconocida"
	}
	return id, title, entries, nil
}

// EngineSearch routes a query through an external search engine extractor
// ("google" or "ddg") and returns the first hit.
func (b *Backend) EngineSearch(ctx context.Context, engine, query string) (*core.MediaRef, error) {
	var prefix string
	switch engine {
	case "google":
		prefix = "gvsearch1:"
	case "ddg":
		prefix = "ddgsearch1:"
	default:
		return nil, fmt.Errorf("unknown search engine %q", engine)
	}

	refs, err := b.flatList(ctx, prefix+query, 1)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, core.ErrNoResults
	}
	return &refs[0], nil
}

func (b *Backend) flatList(ctx context.Context, target string, limit int) ([]core.MediaRef, error) {
	cmd := ytdlp.New().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(duration)s\t%(url)s").
		NoWarnings().
		IgnoreConfig()
	if limit > 0 {
		cmd = cmd.PlaylistItems(fmt.Sprintf("1-%d", limit))
	}

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, err
	}

	refs := parseFlat(res.Stdout)
	if len(refs) == 0 {
		return nil, core.ErrNoResults
	}
	return refs, nil
}

// parseFlat decodes the tab-separated flat-listing print format
// (id, title, duration, url) into refs, skipping malformed lines.
func parseFlat(stdout string) []core.MediaRef {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	refs := make([]core.MediaRef, 0, len(lines))
	for _, l := range lines {
		ps := strings.Split(l, "\t")
		if len(ps) < 4 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[2] + "s")
		refs = append(refs, core.MediaRef{
			ID:        ps[0],
			Title:     ps[1],
			Duration:  d,
			Type:      "url",
			SourceURL: ps[3],
		})
	}
	return refs
}

func (b *Backend) resolve(ctx context.Context, url string) (*core.MediaRef, error) {
	res, err := ytdlp.New().
		Print("%(id)s\t%(title)s\t%(duration)s\t%(webpage_url)s").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", url)
	if err != nil {
		return nil, err
	}

	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 4 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[2] + "s")
		return &core.MediaRef{
			ID:        ps[0],
			Title:     ps[1],
			Duration:  d,
			Type:      "video",
			SourceURL: ps[3],
		}, nil
	}
	return nil, core.ErrNoResults
}

func (b *Backend) importOnce(ctx context.Context, url string) (string, string, []core.MediaRef, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print("%(playlist_id)s\t%(playlist_title)s\t%(id)s\t%(title)s\t%(duration)s").
		NoWarnings().
		IgnoreConfig().
		Run(ctx, url)
	if err != nil {
		return "", "", nil, err
	}

	var plistID, plistTitle string
	var entries []core.MediaRef
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 5 || ps[2] == "" || ps[2] == "NA" {
			continue
		}
		if plistID == "" {
			plistID, plistTitle = ps[0], ps[1]
		}
		d, _ := time.ParseDuration(ps[4] + "s")
		entries = append(entries, core.MediaRef{
			ID:        ps[2],
			Title:     ps[3],
			Duration:  d,
			Type:      "url",
			SourceURL: watchURL + ps[2],
		})
	}
	return plistID, plistTitle, entries, nil
}
