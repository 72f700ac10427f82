package recovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"tunepilot/internal/core"
)

// stubSource implements core.Source with canned responses.
type stubSource struct {
	probe       map[string]*core.MediaRef
	engineHits  map[string]*core.MediaRef // key: engine + ":" + query
	playlists   map[string][]core.MediaRef
	resolved    map[string]*core.MediaRef // by URL, for snapshot fallback
	probeCalls  int
	engineCalls int
}

func (s *stubSource) Search(ctx context.Context, query string, index int) (*core.MediaRef, error) {
	if r, ok := s.resolved[query]; ok {
		return r, nil
	}
	return nil, core.ErrNoResults
}

func (s *stubSource) QuickSearch(ctx context.Context, query string) ([]core.MediaRef, error) {
	return nil, core.ErrNoResults
}

func (s *stubSource) Download(ctx context.Context, ref core.MediaRef) (string, error) {
	return "", fmt.Errorf("not downloadable")
}

func (s *stubSource) Recommendations(ctx context.Context, id string) ([]core.MediaRef, error) {
	return nil, core.ErrNoResults
}

func (s *stubSource) PlaylistEntries(ctx context.Context, id string) ([]core.MediaRef, error) {
	if refs, ok := s.playlists[id]; ok {
		return refs, nil
	}
	return nil, core.ErrNoResults
}

func (s *stubSource) Probe(ctx context.Context, id string) (*core.MediaRef, error) {
	s.probeCalls++
	if r, ok := s.probe[id]; ok {
		return r, nil
	}
	return nil, core.ErrNoResults
}

func (s *stubSource) Import(ctx context.Context, url string) (string, string, []core.MediaRef, error) {
	return "", "", nil, core.ErrNoResults
}

func (s *stubSource) EngineSearch(ctx context.Context, engine, query string) (*core.MediaRef, error) {
	s.engineCalls++
	if r, ok := s.engineHits[engine+":"+query]; ok {
		return r, nil
	}
	return nil, core.ErrNoResults
}

// deadWayback serves an archive API with no snapshots.
func deadWayback(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"archived_snapshots": {}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T, src *stubSource, waybackBase string) *Engine {
	t.Helper()
	e := New(src, zap.NewNop(), nil)
	e.SetWaybackBase(waybackBase)
	return e
}

func TestIsGeneric(t *testing.T) {
	for _, title := range []string{
		"Deleted video",
		"Private video",
		"Vídeo eliminado",
		"vídeo privado",
		"Wayback Machine",
		"Internet Archive - snapshot",
	} {
		if !IsGeneric(title) {
			t.Errorf("IsGeneric(%q) = false, want true", title)
		}
	}
	if IsGeneric("Artist - A Real Song") {
		t.Error("real title flagged as generic")
	}
}

func TestRecoverMetaTier(t *testing.T) {
	src := &stubSource{}
	e := newTestEngine(t, src, deadWayback(t).URL)

	hint := &core.MediaRef{ID: "vid00000001", Title: "Artist - Stored Name"}
	title, method, err := e.Recover(context.Background(), "vid00000001", hint, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if title != "Artist - Stored Name" || method != core.RecoveryMeta {
		t.Errorf("got %q via %q", title, method)
	}
	if src.probeCalls != 0 {
		t.Error("meta hit must not reach the probe tier")
	}
}

func TestRecoverGenericHintIsSkipped(t *testing.T) {
	src := &stubSource{
		probe: map[string]*core.MediaRef{
			"vid00000001": {ID: "vid00000001", Title: "Artist - Live Probe"},
		},
	}
	e := newTestEngine(t, src, deadWayback(t).URL)

	hint := &core.MediaRef{ID: "vid00000001", Title: "Deleted video"}
	title, method, err := e.Recover(context.Background(), "vid00000001", hint, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if title != "Artist - Live Probe" || method != core.RecoveryFlat {
		t.Errorf("got %q via %q, want probe result", title, method)
	}
}

func TestRecoverSearchEngineTier(t *testing.T) {
	src := &stubSource{
		engineHits: map[string]*core.MediaRef{
			"google:vid00000001": {Title: "Artist - Found Song - YouTube"},
		},
	}
	e := newTestEngine(t, src, deadWayback(t).URL)

	title, method, err := e.Recover(context.Background(), "vid00000001", nil, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if method != core.RecoveryGoogle {
		t.Errorf("method = %q, want google", method)
	}
	if title != "Artist - Found Song" {
		t.Errorf("platform suffix should be stripped, got %q", title)
	}
}

func TestRecoverFallsThroughToDDG(t *testing.T) {
	src := &stubSource{
		engineHits: map[string]*core.MediaRef{
			"ddg:youtube vid00000001": {Title: "Artist - DDG Find"},
		},
	}
	e := newTestEngine(t, src, deadWayback(t).URL)

	_, method, err := e.Recover(context.Background(), "vid00000001", nil, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if method != core.RecoveryDDG {
		t.Errorf("method = %q, want ddg", method)
	}
}

func TestRecoverSosOnlySkipsCheapTiers(t *testing.T) {
	src := &stubSource{
		probe: map[string]*core.MediaRef{
			"vid00000001": {ID: "vid00000001", Title: "Artist - Probe Hit"},
		},
		engineHits: map[string]*core.MediaRef{
			"google:vid00000001": {Title: "Artist - Engine Hit"},
		},
	}
	e := newTestEngine(t, src, deadWayback(t).URL)

	hint := &core.MediaRef{ID: "vid00000001", Title: "Artist - Meta Hit"}
	title, method, err := e.Recover(context.Background(), "vid00000001", hint, true)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if method != core.RecoveryGoogle || title != "Artist - Engine Hit" {
		t.Errorf("sos-only should land on the engine tier, got %q via %q", title, method)
	}
	if src.probeCalls != 0 {
		t.Error("sos-only must not probe")
	}
}

func TestRecoverAllTiersFail(t *testing.T) {
	src := &stubSource{}
	e := newTestEngine(t, src, deadWayback(t).URL)

	_, method, err := e.Recover(context.Background(), "vid00000001", nil, false)
	if err == nil {
		t.Fatal("expected an error when nothing recovers")
	}
	if method != core.RecoveryNone {
		t.Errorf("method = %q, want none", method)
	}
}

func TestRecoverWaybackSnapshot(t *testing.T) {
	var snapURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wayback/available":
			fmt.Fprintf(w, `{"archived_snapshots": {"closest": {"available": true, "url": %q}}}`, snapURL)
		case r.URL.Path == "/snapshot":
			fmt.Fprint(w, `<html><head><title>Artist &amp; Band - Lost Song - YouTube</title></head></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	snapURL = srv.URL + "/snapshot"

	e := newTestEngine(t, &stubSource{}, srv.URL)

	title, method, err := e.Recover(context.Background(), "vid00000001", nil, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if method != core.RecoveryWayback {
		t.Errorf("method = %q, want wayback", method)
	}
	if title != "Artist & Band - Lost Song" {
		t.Errorf("title = %q, want cleaned and unescaped", title)
	}
}

func TestRecoverRejectsShortTitles(t *testing.T) {
	src := &stubSource{
		engineHits: map[string]*core.MediaRef{
			"google:vid00000001": {Title: "abc"},
			"ddg:vid00000001":    {Title: "Artist - Long Enough"},
		},
	}
	e := newTestEngine(t, src, deadWayback(t).URL)

	title, method, err := e.Recover(context.Background(), "vid00000001", nil, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if method != core.RecoveryDDG || title != "Artist - Long Enough" {
		t.Errorf("short junk title should be skipped, got %q via %q", title, method)
	}
}
