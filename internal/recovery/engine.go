// Package recovery restores usable titles for entries that have gone
// unavailable on the platform, trying progressively heavier sources: local
// playlist metadata, a direct probe, web archive snapshots, and finally
// external search engines.
package recovery

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"tunepilot/internal/core"
)

// minTitleLen is the shortest recovered title worth keeping.
const minTitleLen = 5

var genericMarkers = []string{
	"deleted video",
	"private video",
	"vídeo eliminado",
	"vídeo privado",
	"wayback machine",
	"internet archive",
}

// IsGeneric reports whether a title is a platform placeholder rather than a
// real song name.
func IsGeneric(title string) bool {
	low := strings.ToLower(title)
	for _, m := range genericMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

// Engine implements core.Recoverer.
type Engine struct {
	source  core.Source
	wayback *waybackClient
	logger  *zap.Logger
	metrics core.Metrics
}

// New creates an Engine over the given backend.
func New(source core.Source, logger *zap.Logger, metrics core.Metrics) *Engine {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Engine{
		source:  source,
		wayback: newWaybackClient(source),
		logger:  logger.Named("recovery"),
		metrics: metrics,
	}
}

// SetWaybackBase overrides the archive endpoint. Tests point it at a local
// server.
func (e *Engine) SetWaybackBase(base string) {
	e.wayback.base = base
}

// Recover tries each tier in order and returns the first acceptable title.
// hint carries locally known metadata for the id; sosOnly skips the meta and
// probe tiers and goes straight to the external sources.
func (e *Engine) Recover(ctx context.Context, id string, hint *core.MediaRef, sosOnly bool) (string, core.RecoveryMethod, error) {
	log := e.logger.With(zap.String("id", id))

	if !sosOnly {
		if hint != nil && hint.Title != "" && !IsGeneric(hint.Title) {
			log.Info("recovered from local metadata", zap.String("title", hint.Title))
			e.metrics.Recovery(core.RecoveryMeta)
			return hint.Title, core.RecoveryMeta, nil
		}

		if ref, err := e.source.Probe(ctx, id); err == nil {
			if ref.Title != "" && !IsGeneric(ref.Title) {
				log.Info("recovered from direct probe", zap.String("title", ref.Title))
				e.metrics.Recovery(core.RecoveryFlat)
				return ref.Title, core.RecoveryFlat, nil
			}
		}
	}

	if title, ok := e.wayback.Recover(ctx, id, log); ok {
		e.metrics.Recovery(core.RecoveryWayback)
		return title, core.RecoveryWayback, nil
	}

	for _, eng := range []struct {
		name   string
		method core.RecoveryMethod
	}{
		{"google", core.RecoveryGoogle},
		{"ddg", core.RecoveryDDG},
	} {
		// Bare id first, then with platform context.
		for _, q := range []string{id, "youtube " + id} {
			ref, err := e.source.EngineSearch(ctx, eng.name, q)
			if err != nil {
				log.Debug("engine search failed",
					zap.String("engine", eng.name), zap.Error(err))
				continue
			}
			clean := cleanTitle(ref.Title, id)
			if acceptable(clean, ref.Title, id) {
				log.Info("recovered from search engine",
					zap.String("engine", eng.name), zap.String("title", clean))
				e.metrics.Recovery(eng.method)
				return clean, eng.method, nil
			}
		}
	}

	log.Info("title could not be recovered")
	return "", core.RecoveryNone, core.ErrNoResults
}

// cleanTitle strips the id, platform branding and snapshot cruft from a
// scraped title.
func cleanTitle(title, id string) string {
	t := strings.ReplaceAll(title, id, "")
	t = strings.ReplaceAll(t, " - YouTube", "")
	t = strings.ReplaceAll(t, "YouTube", "")
	t = strings.ReplaceAll(t, "(snapshot)", "")
	return strings.Trim(t, " -")
}

// acceptable applies the quality gate: the cleaned title must be long enough
// (or the raw one must reference the id directly) and must not be a
// placeholder.
func acceptable(clean, raw, id string) bool {
	if clean == "" || IsGeneric(clean) {
		return false
	}
	return len(clean) > minTitleLen || strings.Contains(raw, id)
}
