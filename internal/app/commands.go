// Package app wires the parsed user commands to the playback core, the
// document store and the recovery verifier, and renders the replies.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tunepilot/internal/core"
	"tunepilot/internal/i18n"
	"tunepilot/internal/recovery"
	"tunepilot/internal/store"
	"tunepilot/pkg/text"
)

// Executor turns one parsed command into one user-visible reply.
type Executor struct {
	parser   *text.Parser
	ctrl     *core.Controller
	verifier *recovery.Verifier
	docs     *store.Documents
	history  *store.History
	source   core.Source
	loc      *i18n.Localizer
	logger   *zap.Logger
}

func NewExecutor(ctrl *core.Controller, verifier *recovery.Verifier, docs *store.Documents,
	history *store.History, source core.Source, loc *i18n.Localizer, logger *zap.Logger) *Executor {
	return &Executor{
		parser:   text.NewParser(),
		ctrl:     ctrl,
		verifier: verifier,
		docs:     docs,
		history:  history,
		source:   source,
		loc:      loc,
		logger:   logger.Named("commands"),
	}
}

// ExecuteText parses a raw line and executes it. The second return value is
// true when the user asked to quit.
func (e *Executor) ExecuteText(ctx context.Context, raw string) (string, bool) {
	cmd, args := e.parser.Parse(raw)
	return e.Execute(ctx, cmd, args)
}

// Execute runs one command. Long-running work (playback start, verification)
// runs synchronously; replies come back when the action is done.
func (e *Executor) Execute(ctx context.Context, cmd text.Command, args text.Args) (string, bool) {
	switch cmd {
	case text.CmdExit:
		e.ctrl.Stop()
		return e.loc.T("bye"), true

	case text.CmdHelp:
		return helpText, false

	case text.CmdInfo:
		return e.info(), false

	case text.CmdPlay:
		return e.play(ctx, args.Query), false

	case text.CmdPause:
		e.ctrl.Pause()
		return e.loc.T("play.paused"), false

	case text.CmdResume:
		e.ctrl.Resume()
		return e.loc.T("play.resumed"), false

	case text.CmdToggle:
		e.ctrl.Toggle()
		if e.ctrl.State() == core.StatePaused {
			return e.loc.T("play.paused"), false
		}
		return e.loc.T("play.resumed"), false

	case text.CmdStop:
		e.ctrl.Stop()
		return e.loc.T("play.stopped"), false

	case text.CmdNext:
		return e.next(ctx), false

	case text.CmdReplay:
		if err := e.ctrl.Replay(); err != nil {
			return e.loc.T("play.nothing"), false
		}
		return e.loc.T("play.replay"), false

	case text.CmdShuffle:
		n := e.ctrl.Shuffle()
		if n == 0 {
			return e.loc.T("queue.empty"), false
		}
		return e.loc.T("queue.shuffled", n), false

	case text.CmdAdd:
		if title, n := e.ctrl.Enqueue(ctx, args.Query); title != "" {
			return e.loc.T("queue.added", fmt.Sprintf("%s (%d)", title, n)), false
		}
		return e.loc.T("queue.adding", args.Query), false

	case text.CmdHistory:
		return e.historyList(), false

	case text.CmdVolume:
		return e.loc.T("volume.set", e.ctrl.SetVolume(args.Level)), false

	case text.CmdVolumeRel:
		return e.loc.T("volume.set", e.ctrl.AdjustVolume(args.Direction == "up")), false

	case text.CmdMute:
		e.ctrl.Mute()
		return e.loc.T("volume.muted"), false

	case text.CmdUnmute:
		e.ctrl.Unmute()
		return e.loc.T("volume.unmuted"), false

	case text.CmdFav:
		return e.addFavorite(e.ctrl.Current(), "fav.added"), false

	case text.CmdFavLast:
		return e.addFavorite(e.ctrl.Previous(), "fav.last_added"), false

	case text.CmdFavList:
		return e.favoritesList(), false

	case text.CmdPlayFav:
		n, err := e.ctrl.PlayFavorites(ctx, false)
		if err != nil {
			return e.loc.T("fav.empty"), false
		}
		return e.loc.T("fav.playing", n), false

	case text.CmdFavRandom:
		if _, err := e.ctrl.PlayFavorites(ctx, true); err != nil {
			return e.loc.T("fav.empty"), false
		}
		if cur := e.ctrl.Current(); cur != nil {
			return e.loc.T("fav.random", cur.Title), false
		}
		return e.loc.T("fav.empty"), false

	case text.CmdFavCheck:
		report, err := e.verifier.VerifyFavorites(ctx)
		if err != nil {
			return e.loc.T("error.generic"), false
		}
		return e.summarize(report), false

	case text.CmdImport:
		return e.importPlaylist(ctx, args.URL), false

	case text.CmdPlaylist:
		title, n, err := e.ctrl.PlayPlaylist(ctx, args.Query)
		if err != nil {
			if title != "" {
				return e.loc.T("playlist.empty"), false
			}
			return e.loc.T("playlist.not_found", args.Query), false
		}
		return e.loc.T("playlist.playing", title, n), false

	case text.CmdPlaylists:
		return e.playlistsList(), false

	case text.CmdPlaylistRemove:
		return e.removePlaylist(args.Query), false

	case text.CmdCheck:
		return e.check(ctx, args.Query, recovery.VerifyOptions{Apply: true}), false
	case text.CmdCheckRecovered:
		return e.check(ctx, args.Query, recovery.VerifyOptions{OnlyRecovered: true, Apply: true}), false
	case text.CmdCheckDeep:
		return e.check(ctx, args.Query, recovery.VerifyOptions{Deep: true, Apply: true}), false
	case text.CmdCheckDeepRec:
		return e.check(ctx, args.Query, recovery.VerifyOptions{Deep: true, OnlyRecovered: true, Apply: true}), false

	case text.CmdEnsure:
		return e.ensure(ctx, args.ID), false

	case text.CmdRadio:
		enabled := args.Switch == text.SwitchOn
		if args.Switch == text.SwitchToggle {
			enabled = !e.ctrl.Radio()
		}
		e.ctrl.SetRadio(enabled)
		if enabled {
			return e.loc.T("radio.on"), false
		}
		return e.loc.T("radio.off"), false

	case text.CmdFilters:
		enabled := e.ctrl.SetFilters(args.Switch == text.SwitchOn, args.Switch == text.SwitchToggle)
		if enabled {
			return e.loc.T("filters.on"), false
		}
		return e.loc.T("filters.off"), false

	case text.CmdForce:
		return e.force(ctx, args.Query), false

	case text.CmdListen:
		return e.listen(args.Switch), false

	case text.CmdSetMic:
		e.ctrl.SetMicrophone(args.Level)
		return e.loc.T("mic.set", args.Level), false

	case text.CmdMics:
		return e.loc.T("mic.none"), false
	}

	return e.loc.T("error.generic"), false
}

func (e *Executor) play(ctx context.Context, query string) string {
	ref, err := e.ctrl.Play(ctx, query)
	if err != nil {
		if errors.Is(err, core.ErrNoResults) {
			return e.loc.T("play.no_results", query)
		}
		e.logger.Warn("play failed", zap.String("query", query), zap.Error(err))
		return e.loc.T("error.generic")
	}
	return e.loc.T("play.now_playing", ref.Title)
}

func (e *Executor) next(ctx context.Context) string {
	if err := e.ctrl.Skip(ctx); err != nil {
		switch {
		case errors.Is(err, core.ErrRadioOff):
			return e.loc.T("radio.off")
		case errors.Is(err, core.ErrExhausted):
			return e.loc.T("radio.empty")
		}
		return e.loc.T("error.generic")
	}
	if cur := e.ctrl.Current(); cur != nil {
		return e.loc.T("play.now_playing", cur.Title)
	}
	return e.loc.T("play.skipping")
}

func (e *Executor) info() string {
	cur := e.ctrl.Current()
	if cur == nil {
		return e.loc.T("info.idle")
	}
	pos, dur := e.ctrl.Position()
	return e.loc.T("info.status",
		e.ctrl.State().String(), cur.Title, fmtClock(pos), fmtClock(dur), e.ctrl.Volume())
}

func (e *Executor) addFavorite(ref *core.MediaRef, addedKey string) string {
	if ref == nil {
		return e.loc.T("fav.none")
	}
	added, err := e.docs.AddFavorite(store.Song{ID: ref.ID, Title: ref.Title, Recovery: string(ref.Recovery)})
	if err != nil {
		e.logger.Warn("could not save favorite", zap.Error(err))
		return e.loc.T("error.generic")
	}
	if !added {
		return e.loc.T("fav.duplicate", ref.Title)
	}
	return e.loc.T(addedKey, ref.Title)
}

func (e *Executor) favoritesList() string {
	favs := e.docs.Favorites()
	if len(favs) == 0 {
		return e.loc.T("fav.empty")
	}
	var b strings.Builder
	b.WriteString(e.loc.T("fav.header"))
	for i, s := range favs {
		fmt.Fprintf(&b, "\n %2d. %s", i+1, s.Title)
	}
	return b.String()
}

func (e *Executor) historyList() string {
	items := e.history.Items()
	if len(items) == 0 {
		return e.loc.T("history.empty")
	}
	var b strings.Builder
	b.WriteString(e.loc.T("history.header"))
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\n %2d. %s", len(items)-i, items[i].Title)
	}
	return b.String()
}

func (e *Executor) playlistsList() string {
	all := e.docs.Playlists()
	if len(all) == 0 {
		return e.loc.T("playlist.none")
	}
	titles := make([]string, 0, len(all))
	for _, p := range all {
		titles = append(titles, fmt.Sprintf("%s (%d)", p.Title, len(p.Songs)))
	}
	sort.Strings(titles)
	var b strings.Builder
	b.WriteString(e.loc.T("playlist.header"))
	for _, t := range titles {
		b.WriteString("\n - " + t)
	}
	return b.String()
}

func (e *Executor) removePlaylist(query string) string {
	id, p, ok := e.docs.FindPlaylist(query)
	if !ok {
		return e.loc.T("playlist.not_found", query)
	}
	err := e.docs.UpdatePlaylists(func(all map[string]store.Playlist) {
		delete(all, id)
	})
	if err != nil {
		e.logger.Warn("could not remove playlist", zap.Error(err))
		return e.loc.T("error.generic")
	}
	return e.loc.T("playlist.removed", p.Title)
}

// importPlaylist fetches a remote playlist and merges it into the stored one
// with the same id, keeping previously recovered titles.
func (e *Executor) importPlaylist(ctx context.Context, url string) string {
	id, title, entries, err := e.source.Import(ctx, url)
	if err != nil {
		return e.loc.T("playlist.import_fail", err)
	}
	if len(entries) == 0 {
		return e.loc.T("playlist.empty")
	}

	imported := make([]store.Song, len(entries))
	for i, r := range entries {
		imported[i] = store.Song{ID: r.ID, Title: r.Title}
	}

	var merged store.Playlist
	var added, preserved int
	err = e.docs.UpdatePlaylists(func(all map[string]store.Playlist) {
		merged, added, preserved, _ = store.MergePlaylist(all[id], title, imported, false)
		all[id] = merged
	})
	if err != nil {
		e.logger.Warn("could not save imported playlist", zap.Error(err))
		return e.loc.T("error.generic")
	}

	if preserved > 0 {
		return e.loc.T("playlist.merged", merged.Title, added, preserved, len(merged.Songs))
	}
	return e.loc.T("playlist.imported", merged.Title, added)
}

func (e *Executor) check(ctx context.Context, query string, opts recovery.VerifyOptions) string {
	report, err := e.verifier.Verify(ctx, query, opts)
	if err != nil {
		if errors.Is(err, core.ErrNoResults) {
			if query != "" {
				return e.loc.T("playlist.not_found", query)
			}
			return e.loc.T("verify.nothing")
		}
		return e.loc.T("error.generic")
	}
	return e.summarize(report)
}

func (e *Executor) summarize(report *recovery.Report) string {
	failed := len(report.Unavailable) - report.Recovered
	msg := e.loc.T("verify.summary", report.Available, report.Recovered, failed)
	if report.Saved {
		msg += "\n" + e.loc.T("verify.saved")
	}
	return msg
}

func (e *Executor) ensure(ctx context.Context, id string) string {
	title, method, err := e.verifier.Ensure(ctx, id)
	if err != nil {
		return e.loc.T("verify.failed", id)
	}
	return e.loc.T("verify.recovered", title, string(method))
}

// force sets the forced keyword and immediately plays it, so the mode change
// is audible.
func (e *Executor) force(ctx context.Context, keyword string) string {
	kw := e.ctrl.SetForcedKeyword(keyword)
	if kw == "" {
		return e.loc.T("force.clear")
	}
	msg := e.loc.T("force.set", kw)
	if ref, err := e.ctrl.Play(ctx, kw); err == nil {
		msg += "\n" + e.loc.T("play.now_playing", ref.Title)
	}
	return msg
}

func (e *Executor) listen(sw text.Switch) string {
	enabled, mic := e.ctrl.SetListening(sw == text.SwitchOn, sw == text.SwitchToggle)
	if enabled {
		return e.loc.T("listen.on", mic)
	}
	return e.loc.T("listen.off")
}

func fmtClock(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

const helpText = `Commands:
  play <query> | p <query>     search and play
  pause / resume / p           pause, resume, toggle
  next | n                     skip to the next track
  replay                       restart the current track
  stop | exit                  stop playback / quit
  add <query or playlist>      queue a track or a stored playlist
  shuffle                      shuffle the queue
  vol <0-200> | + | -          volume, mute, unmute
  fav / favlast / favlist      favorites
  playfav | fr                 play favorites (in order | shuffled)
  import <url>                 import a remote playlist
  playlist <name>              play a stored playlist
  playlists                    list stored playlists
  pc / pcr / pcd / pcdr [name] verify playlists (deep, only-recovered)
  ensure <video id>            run the title recovery cascade for one id
  radio on|off                 radio continuation
  filters on|off               candidate filters
  force <keyword>              force a keyword on every search
  listen on|off / mic <n>      voice input
  info                         playback status`
