package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"tunepilot/internal/core"
)

const defaultWaybackBase = "https://archive.org"

var titleRegex = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

// waybackClient looks up archived snapshots of a video page and scrapes the
// song title out of them.
type waybackClient struct {
	base   string
	http   *http.Client
	source core.Source
}

func newWaybackClient(source core.Source) *waybackClient {
	return &waybackClient{
		base:   defaultWaybackBase,
		http:   &http.Client{Timeout: 5 * time.Second},
		source: source,
	}
}

// Recover tries the common URL spellings of a video against the archive.
// Old snapshots often exist under only one of them.
func (w *waybackClient) Recover(ctx context.Context, id string, log *zap.Logger) (string, bool) {
	targets := []string{
		"https://www.youtube.com/watch?v=" + id,
		"https://youtu.be/" + id,
		"https://www.youtube.com/v/" + id,
	}

	for _, target := range targets {
		snap, err := w.closestSnapshot(ctx, target)
		if err != nil {
			log.Debug("snapshot lookup failed", zap.String("target", target), zap.Error(err))
			continue
		}
		if snap == "" {
			continue
		}

		if title, ok := w.scrapeTitle(ctx, snap, id); ok {
			log.Info("recovered from web archive", zap.String("title", title))
			return title, true
		}

		// The raw page scrape missed; the extractor understands the
		// archived markup better.
		if ref, err := w.source.Search(ctx, snap, 0); err == nil {
			clean := cleanTitle(ref.Title, id)
			if acceptable(clean, ref.Title, id) {
				log.Info("recovered from archive via extractor", zap.String("title", clean))
				return clean, true
			}
		}
	}
	return "", false
}

func (w *waybackClient) closestSnapshot(ctx context.Context, target string) (string, error) {
	api := fmt.Sprintf("%s/wayback/available?url=%s", w.base, url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		ArchivedSnapshots struct {
			Closest struct {
				Available bool   `json:"available"`
				URL       string `json:"url"`
			} `json:"closest"`
		} `json:"archived_snapshots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if !payload.ArchivedSnapshots.Closest.Available {
		return "", nil
	}
	return payload.ArchivedSnapshots.Closest.URL, nil
}

func (w *waybackClient) scrapeTitle(ctx context.Context, snapURL, id string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false
	}

	m := titleRegex.FindSubmatch(body)
	if m == nil {
		return "", false
	}
	title := html.UnescapeString(strings.TrimSpace(string(m[1])))
	clean := cleanTitle(title, id)
	if !acceptable(clean, title, id) {
		return "", false
	}
	return clean, true
}
