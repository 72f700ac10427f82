package core

import (
	"context"
	"errors"
	"time"
)

// RecoveryMethod tags how a stored entry's title was last recovered. The tag
// is persisted verbatim in the playlist documents.
type RecoveryMethod string

const (
	RecoveryNone    RecoveryMethod = ""
	RecoveryMeta    RecoveryMethod = "meta"
	RecoveryFlat    RecoveryMethod = "flat"
	RecoveryWayback RecoveryMethod = "sos(wayback)"
	RecoveryGoogle  RecoveryMethod = "sos(google)"
	RecoveryDDG     RecoveryMethod = "sos(ddg)"
	RecoveryFailed  RecoveryMethod = "failed"
)

// MediaRef identifies a playable item on the platform.
type MediaRef struct {
	ID            string
	Title         string
	Duration      time.Duration
	Type          string // extractor result type: "", "video", "url", "url_transparent", "playlist"
	SourceURL     string
	Recovery      RecoveryMethod
	FromFavorites bool
	FromPlaylist  bool
}

// QueueEntry is a MediaRef waiting in the manual queue, optionally with an
// already-downloaded local file.
type QueueEntry struct {
	Ref  MediaRef
	Path string
}

// PreloadSlot holds a finished background download awaiting the next
// transition. For is the currently playing id when the slot was filled, so a
// skip can detect staleness.
type PreloadSlot struct {
	Ref  MediaRef
	Path string
	For  string
}

// State is the playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SelectionSource labels which tier produced the track now playing.
type SelectionSource string

const (
	SourceQueue     SelectionSource = "queue"
	SourcePlaylist  SelectionSource = "playlist"
	SourceRadio     SelectionSource = "radio"
	SourceFavorites SelectionSource = "favorites"
	SourceSearch    SelectionSource = "search"
)

var (
	// ErrRadioOff is returned by the selector when nothing is queued and
	// radio continuation is disabled.
	ErrRadioOff = errors.New("radio is off")
	// ErrExhausted is returned when every radio tier came up empty.
	ErrExhausted = errors.New("no admissible candidate")
	// ErrNoResults is returned by search when the platform yields nothing.
	ErrNoResults = errors.New("no results")
)

// Source is the extraction backend: search, download, listing and probing.
// Implementations must be safe for concurrent use; every call is bounded by
// its context.
type Source interface {
	// Search returns the index-th result for a free-text query, with full
	// metadata suitable for filtering.
	Search(ctx context.Context, query string, index int) (*MediaRef, error)
	// QuickSearch returns lightweight candidates (id and title only) from
	// the platform's native search APIs, faster than the extractor.
	QuickSearch(ctx context.Context, query string) ([]MediaRef, error)
	// Download fetches the audio for ref and returns the local file path.
	Download(ctx context.Context, ref MediaRef) (string, error)
	// Recommendations lists related tracks seeded by a video id.
	Recommendations(ctx context.Context, id string) ([]MediaRef, error)
	// PlaylistEntries flat-lists a platform playlist without resolving
	// each entry.
	PlaylistEntries(ctx context.Context, id string) ([]MediaRef, error)
	// Probe checks availability of a single id and returns its current
	// metadata when reachable.
	Probe(ctx context.Context, id string) (*MediaRef, error)
	// Import resolves a playlist URL into its id, title and entries.
	Import(ctx context.Context, url string) (string, string, []MediaRef, error)
	// EngineSearch queries an external search engine ("google", "ddg")
	// through the extractor and returns the first hit.
	EngineSearch(ctx context.Context, engine, query string) (*MediaRef, error)
}

// Player is one live audio output for one local file. Instances are
// single-use: Close and construct a new one per track.
type Player interface {
	Pause()
	Resume()
	Playing() bool
	// Position is the current playback offset.
	Position() time.Duration
	// Duration is the total track length as decoded.
	Duration() time.Duration
	// SetGain sets output gain in [0,1]; 0 silences.
	SetGain(gain float64)
	// Done is closed when the track reaches its natural end.
	Done() <-chan struct{}
	Close() error
}

// PlayerFactory constructs a Player over a local audio file, initially
// paused when paused is true.
type PlayerFactory func(path string, paused bool) (Player, error)

// Recoverer restores a usable title for an unavailable id.
type Recoverer interface {
	// Recover tries each tier in order; hint carries locally stored
	// metadata for the id, may be nil. sosOnly skips the cheap tiers.
	Recover(ctx context.Context, id string, hint *MediaRef, sosOnly bool) (string, RecoveryMethod, error)
}

// Metrics receives playback events for export. The zero implementation
// NopMetrics drops everything.
type Metrics interface {
	Selection(source SelectionSource)
	Recovery(method RecoveryMethod)
	Download(ok bool)
	Preload(hit bool)
	QueueLength(n int)
}

// NopMetrics satisfies Metrics and discards all events.
type NopMetrics struct{}

func (NopMetrics) Selection(SelectionSource) {}
func (NopMetrics) Recovery(RecoveryMethod)   {}
func (NopMetrics) Download(bool)             {}
func (NopMetrics) Preload(bool)              {}
func (NopMetrics) QueueLength(int)           {}

// Transcriber converts captured speech into command text. No implementation
// is bundled; the hook exists so a recognizer can be wired in front of the
// command loop.
type Transcriber interface {
	Listen(ctx context.Context, micIndex int) (string, error)
}
