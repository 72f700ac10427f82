package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"tunepilot/internal/core"
	"tunepilot/internal/i18n"
	"tunepilot/internal/recovery"
	"tunepilot/internal/store"
)

type stubPlayer struct {
	mu     sync.Mutex
	paused bool
	done   chan struct{}
}

func (p *stubPlayer) Pause()  { p.mu.Lock(); p.paused = true; p.mu.Unlock() }
func (p *stubPlayer) Resume() { p.mu.Lock(); p.paused = false; p.mu.Unlock() }
func (p *stubPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.paused
}
func (p *stubPlayer) Position() time.Duration { return 0 }
func (p *stubPlayer) Duration() time.Duration { return 3 * time.Minute }
func (p *stubPlayer) SetGain(float64)         {}
func (p *stubPlayer) Done() <-chan struct{}   { return p.done }
func (p *stubPlayer) Close() error            { return nil }

type stubSource struct {
	search    map[string][]*core.MediaRef
	probe     map[string]*core.MediaRef
	importID  string
	importTit string
	importRes []core.MediaRef
}

func (s *stubSource) Search(ctx context.Context, query string, index int) (*core.MediaRef, error) {
	results := s.search[query]
	if index >= len(results) {
		return nil, core.ErrNoResults
	}
	r := *results[index]
	return &r, nil
}

func (s *stubSource) QuickSearch(ctx context.Context, query string) ([]core.MediaRef, error) {
	return nil, core.ErrNoResults
}

func (s *stubSource) Download(ctx context.Context, ref core.MediaRef) (string, error) {
	return "/nonexistent/app-test-" + ref.ID + ".mp3", nil
}

func (s *stubSource) Recommendations(ctx context.Context, id string) ([]core.MediaRef, error) {
	return nil, core.ErrNoResults
}

func (s *stubSource) PlaylistEntries(ctx context.Context, id string) ([]core.MediaRef, error) {
	return nil, core.ErrNoResults
}

func (s *stubSource) Probe(ctx context.Context, id string) (*core.MediaRef, error) {
	if r, ok := s.probe[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, core.ErrNoResults
}

func (s *stubSource) Import(ctx context.Context, url string) (string, string, []core.MediaRef, error) {
	if s.importID == "" {
		return "", "", nil, core.ErrNoResults
	}
	return s.importID, s.importTit, s.importRes, nil
}

func (s *stubSource) EngineSearch(ctx context.Context, engine, query string) (*core.MediaRef, error) {
	return nil, core.ErrNoResults
}

type stubRecoverer struct {
	title  string
	method core.RecoveryMethod
}

func (r *stubRecoverer) Recover(ctx context.Context, id string, hint *core.MediaRef, sosOnly bool) (string, core.RecoveryMethod, error) {
	if r.title == "" {
		return "", core.RecoveryNone, core.ErrNoResults
	}
	return r.title, r.method, nil
}

func newTestExecutor(t *testing.T, src *stubSource, rec core.Recoverer) (*Executor, *store.Documents) {
	t.Helper()
	cfg := core.DefaultConfig()
	cfgStore := core.NewConfigStore(t.TempDir())
	docs := store.NewDocuments(t.TempDir())
	history := store.NewHistory(cfg.HistorySize)
	logger := zap.NewNop()

	factory := func(path string, paused bool) (core.Player, error) {
		return &stubPlayer{paused: paused, done: make(chan struct{})}, nil
	}
	ctrl := core.NewController(cfg, cfgStore, docs, history, src, factory, nil, logger, true)
	if rec == nil {
		rec = &stubRecoverer{}
	}
	verifier := recovery.NewVerifier(docs, src, rec, logger, 2)
	loc := i18n.NewLocalizer(i18n.DefaultLanguage)

	return NewExecutor(ctrl, verifier, docs, history, src, loc, logger), docs
}

func TestExecuteVolume(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	ctx := context.Background()

	msg, quit := e.ExecuteText(ctx, "vol 70")
	if quit || !strings.Contains(msg, "70%") {
		t.Errorf("vol 70 -> %q", msg)
	}

	msg, _ = e.ExecuteText(ctx, "mute")
	if !strings.Contains(msg, "Muted") {
		t.Errorf("mute -> %q", msg)
	}
	msg, _ = e.ExecuteText(ctx, "unmute")
	if !strings.Contains(msg, "Sound back on") {
		t.Errorf("unmute -> %q", msg)
	}
}

func TestExecuteModeToggles(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	ctx := context.Background()

	if msg, _ := e.ExecuteText(ctx, "radio off"); !strings.Contains(msg, "off") {
		t.Errorf("radio off -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "radio on"); !strings.Contains(msg, "on") {
		t.Errorf("radio on -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "filters off"); !strings.Contains(msg, "disabled") {
		t.Errorf("filters off -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "filters"); !strings.Contains(msg, "enabled") {
		t.Errorf("filters toggle -> %q", msg)
	}
}

func TestExecuteEmptyListings(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	ctx := context.Background()

	if msg, _ := e.ExecuteText(ctx, "favlist"); !strings.Contains(msg, "empty") {
		t.Errorf("favlist -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "playlists"); !strings.Contains(msg, "No playlists") {
		t.Errorf("playlists -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "history"); !strings.Contains(msg, "No playback history") {
		t.Errorf("history -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "info"); !strings.Contains(msg, "Idle") {
		t.Errorf("info -> %q", msg)
	}
}

func TestExecutePlayAndFavorite(t *testing.T) {
	src := &stubSource{search: map[string][]*core.MediaRef{
		"salsa brava": {{ID: "vid00000001", Title: "Orquesta - Salsa Brava", Duration: 3 * time.Minute}},
	}}
	e, docs := newTestExecutor(t, src, nil)
	ctx := context.Background()

	msg, quit := e.ExecuteText(ctx, "play salsa brava")
	if quit || !strings.Contains(msg, "Orquesta - Salsa Brava") {
		t.Fatalf("play -> %q", msg)
	}

	if msg, _ = e.ExecuteText(ctx, "fav"); !strings.Contains(msg, "Added to favorites") {
		t.Errorf("fav -> %q", msg)
	}
	if msg, _ = e.ExecuteText(ctx, "fav"); !strings.Contains(msg, "already in favorites") {
		t.Errorf("second fav -> %q", msg)
	}
	if favs := docs.Favorites(); len(favs) != 1 || favs[0].ID != "vid00000001" {
		t.Errorf("favorites = %+v", favs)
	}
}

func TestExecuteFavWithoutTrack(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	if msg, _ := e.ExecuteText(context.Background(), "fav"); !strings.Contains(msg, "No track") {
		t.Errorf("fav -> %q", msg)
	}
}

func TestExecutePlayNoResults(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	msg, _ := e.ExecuteText(context.Background(), "play unknown tune")
	if !strings.Contains(msg, "No results") {
		t.Errorf("play -> %q", msg)
	}
}

func TestExecuteImportAndMerge(t *testing.T) {
	src := &stubSource{
		importID:  "PLimported01",
		importTit: "Fiesta",
		importRes: []core.MediaRef{
			{ID: "a0000000001", Title: "Uno"},
			{ID: "b0000000001", Title: "Dos"},
		},
	}
	e, docs := newTestExecutor(t, src, nil)
	ctx := context.Background()

	msg, _ := e.ExecuteText(ctx, "import https://example.com/playlist?list=PLimported01")
	if !strings.Contains(msg, "Fiesta") || !strings.Contains(msg, "2") {
		t.Errorf("import -> %q", msg)
	}
	if got := docs.Playlists()["PLimported01"]; len(got.Songs) != 2 {
		t.Errorf("stored = %+v", got)
	}

	// Re-import with a recovered title on disk keeps the stored title.
	all := docs.Playlists()
	p := all["PLimported01"]
	p.Songs[0].Title = "Uno (Recuperado)"
	p.Songs[0].Recovery = "sos(wayback)"
	all["PLimported01"] = p
	if err := docs.SavePlaylists(all); err != nil {
		t.Fatal(err)
	}

	msg, _ = e.ExecuteText(ctx, "import https://example.com/playlist?list=PLimported01")
	if !strings.Contains(msg, "Preserved") {
		t.Errorf("merged import -> %q", msg)
	}
	if got := docs.Playlists()["PLimported01"].Songs[0].Title; got != "Uno (Recuperado)" {
		t.Errorf("recovered title lost: %q", got)
	}
}

func TestExecuteCheckSummary(t *testing.T) {
	src := &stubSource{probe: map[string]*core.MediaRef{
		"alive000001": {ID: "alive000001", Title: "Living Song"},
	}}
	e, docs := newTestExecutor(t, src, nil)
	if err := docs.SavePlaylists(map[string]store.Playlist{
		"short": {Title: "Mine", Songs: []store.Song{{ID: "alive000001", Title: "Living Song"}}},
	}); err != nil {
		t.Fatal(err)
	}

	msg, _ := e.ExecuteText(context.Background(), "pc")
	if !strings.Contains(msg, "1 ok") {
		t.Errorf("pc -> %q", msg)
	}
}

func TestExecuteEnsure(t *testing.T) {
	rec := &stubRecoverer{title: "Artist - Rescued", method: core.RecoveryGoogle}
	e, docs := newTestExecutor(t, &stubSource{}, rec)
	if err := docs.SavePlaylists(map[string]store.Playlist{
		"short": {Title: "Mine", Songs: []store.Song{{ID: "lost0000001", Title: "Deleted video"}}},
	}); err != nil {
		t.Fatal(err)
	}

	msg, _ := e.ExecuteText(context.Background(), "ensure lost0000001")
	if !strings.Contains(msg, "Artist - Rescued") || !strings.Contains(msg, "sos(google)") {
		t.Errorf("ensure -> %q", msg)
	}
}

func TestExecutePlaylistRemove(t *testing.T) {
	e, docs := newTestExecutor(t, &stubSource{}, nil)
	if err := docs.SavePlaylists(map[string]store.Playlist{
		"PLgone000001": {Title: "Borrable", Songs: []store.Song{{ID: "a0000000001", Title: "Uno"}}},
	}); err != nil {
		t.Fatal(err)
	}

	msg, _ := e.ExecuteText(context.Background(), "pr borrable")
	if !strings.Contains(msg, "Borrable") {
		t.Errorf("remove -> %q", msg)
	}
	if len(docs.Playlists()) != 0 {
		t.Error("playlist should be gone")
	}

	msg, _ = e.ExecuteText(context.Background(), "pr borrable")
	if !strings.Contains(msg, "No playlist matches") {
		t.Errorf("second remove -> %q", msg)
	}
}

func TestExecuteListenAndMic(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	ctx := context.Background()

	if msg, _ := e.ExecuteText(ctx, "mic 3"); !strings.Contains(msg, "Microphone set to 3") {
		t.Errorf("mic 3 -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "listen on"); !strings.Contains(msg, "microphone 3") {
		t.Errorf("listen on -> %q", msg)
	}
	if msg, _ := e.ExecuteText(ctx, "listen off"); !strings.Contains(msg, "Microphone off") {
		t.Errorf("listen off -> %q", msg)
	}
}

func TestExecuteExit(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	msg, quit := e.ExecuteText(context.Background(), "exit")
	if !quit {
		t.Error("exit must signal quit")
	}
	if msg == "" {
		t.Error("exit should say goodbye")
	}
}

func TestExecuteHelp(t *testing.T) {
	e, _ := newTestExecutor(t, &stubSource{}, nil)
	msg, _ := e.ExecuteText(context.Background(), "help")
	if !strings.Contains(msg, "play") || !strings.Contains(msg, "radio") {
		t.Errorf("help -> %q", msg)
	}
}
