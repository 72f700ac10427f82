// Package text parses free-form command text into the closed command
// vocabulary understood by the playback controller.
package text

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Command identifies one entry of the closed command vocabulary.
type Command string

const (
	CmdNone    Command = ""
	CmdHelp    Command = "help"
	CmdInfo    Command = "info"
	CmdPlay    Command = "play"
	CmdPause   Command = "pause"
	CmdResume  Command = "resume"
	CmdToggle  Command = "toggle"
	CmdStop    Command = "stop"
	CmdNext    Command = "next"
	CmdReplay  Command = "replay"
	CmdShuffle Command = "shuffle"
	CmdAdd     Command = "add"
	CmdHistory Command = "history"
	CmdExit    Command = "exit"

	CmdVolume    Command = "volume"
	CmdVolumeRel Command = "volume_rel"
	CmdMute      Command = "mute"
	CmdUnmute    Command = "unmute"

	CmdFav       Command = "fav"
	CmdFavLast   Command = "favlast"
	CmdFavList   Command = "favlist"
	CmdFavCheck  Command = "favcheck"
	CmdPlayFav   Command = "playfav"
	CmdFavRandom Command = "favrandom"

	CmdImport         Command = "import"
	CmdPlaylist       Command = "playlist"
	CmdPlaylists      Command = "playlists"
	CmdPlaylistRemove Command = "playlist_remove"
	CmdCheck          Command = "check"
	CmdCheckRecovered Command = "check_recovered"
	CmdCheckDeep      Command = "check_deep"
	CmdCheckDeepRec   Command = "check_deep_recovered"
	CmdEnsure         Command = "ensure"

	CmdRadio   Command = "radio"
	CmdFilters Command = "filters"
	CmdForce   Command = "force"
	CmdListen  Command = "listen"
	CmdSetMic  Command = "set_mic"
	CmdMics    Command = "list_mics"
)

// Switch is a three-valued on/off/toggle argument.
type Switch int

const (
	SwitchToggle Switch = iota
	SwitchOn
	SwitchOff
)

// Args carries the parsed arguments of a command. Fields are populated only
// when the command uses them.
type Args struct {
	Query     string
	URL       string
	ID        string
	Level     int    // absolute volume percent
	Direction string // "up" or "down" for relative volume
	Switch    Switch
}

var (
	rePlay = regexp.MustCompile(`(?i)^(play|p|pon|reproduce|reproducir)\s+(?P<q>.+)$`)

	reFav       = regexp.MustCompile(`(?i)^(fav|favorite|me gusta)$`)
	reFavLast   = regexp.MustCompile(`(?i)^(favlast|prefav|fav anterior)$`)
	reFavList   = regexp.MustCompile(`(?i)^(favlist|favorites|mis favoritos)$`)
	rePlayFav   = regexp.MustCompile(`(?i)^(playfav|favplay|fp|pf|favoritos)$`)
	reFavCheck  = regexp.MustCompile(`(?i)^(favcheck|checkfavs|verificar favoritos)$`)
	reFavRandom = regexp.MustCompile(`(?i)^(fr|favrandom)$`)

	reImport     = regexp.MustCompile(`(?i)^(import|importar)\s+(?P<url>https?://\S+)$`)
	rePlaylist   = regexp.MustCompile(`(?i)^(pp|playlist|lista)(\s+(?P<q>.+))?$`)
	rePlaylistRm = regexp.MustCompile(`(?i)^(pr|ppremove|playlistremove)(\s+(?P<q>.+))?$`)
	rePlaylists  = regexp.MustCompile(`(?i)^(ps|playlists)$`)
	reCheck      = regexp.MustCompile(`(?i)^(pc|playlistcheck|checkplaylist)(\s+(?P<q>.+))?$`)
	reCheckRec   = regexp.MustCompile(`(?i)^(pcr)(\s+(?P<q>.+))?$`)
	reCheckDeep  = regexp.MustCompile(`(?i)^(pcd|deepcheck)(\s+(?P<q>.+))?$`)
	reCheckDeepR = regexp.MustCompile(`(?i)^(pcdr)(\s+(?P<q>.+))?$`)
	reEnsure     = regexp.MustCompile(`(?i)^ensure\s+(?P<id>[a-zA-Z0-9_-]{11})$`)

	reHistory = regexp.MustCompile(`(?i)^(ap|history|historial)$`)
	reShuffle = regexp.MustCompile(`(?i)^(r|shuffle|random|mezclar?|aleatorio)$`)
	reAdd     = regexp.MustCompile(`(?i)^(add|a|queue|cola|añadir)\s+(?P<q>.+)$`)
	rePause   = regexp.MustCompile(`(?i)^(pause|pausa|pausar)$`)
	reResume  = regexp.MustCompile(`(?i)^(resume|continue|continuar|reanudar)$`)
	reToggleP = regexp.MustCompile(`(?i)^p$`)
	reStop    = regexp.MustCompile(`(?i)^(stop|detener|parar)$`)
	reExit    = regexp.MustCompile(`(?i)^(exit|quit|salir|terminar)$`)
	reNext    = regexp.MustCompile(`(?i)^(next|skip|s|n|siguiente|pasa)$`)
	reReplay  = regexp.MustCompile(`(?i)^(replay|repeat|otra vez|repetir|reiniciar?)$`)
	reInfo    = regexp.MustCompile(`(?i)^(info|status|estado|que suena)$`)
	reHelp    = regexp.MustCompile(`(?i)^(h|help|ayuda|comandos)$`)

	reVolume   = regexp.MustCompile(`(?i)^(set\s+)?vol(ume)?n?\s*(at\s+|to\s+|al?\s+|en\s+)?(?P<n>\d{1,3})\s*%?$`)
	reVolShort = regexp.MustCompile(`(?i)^v\s+(?P<n>\d{1,3})$`)
	reVolUp    = regexp.MustCompile(`(?i)^(\+|up|sube|subir|más|mas)$`)
	reVolDown  = regexp.MustCompile(`(?i)^(-|down|baja|bajar|menos)$`)
	reMute     = regexp.MustCompile(`(?i)^(m|mute|silencio|sh+)$`)
	reUnmute   = regexp.MustCompile(`(?i)^(unmute|sound on|habla|sonido)$`)

	reRadio   = regexp.MustCompile(`(?i)^(radio|autodj|auto-dj)(\s+(?P<op>on|off))?$`)
	reFilters = regexp.MustCompile(`(?i)^(con|sin|enable|disable|activar|desactivar|quitar)?\s*(filters?|filtros?)(\s+(on|off))?$`)
	reForce   = regexp.MustCompile(`(?i)^(force|forzar)\s+(?P<f>.+)$`)
	reListen  = regexp.MustCompile(`(?i)^(listen|micro|mic)(\s+(?P<op>on|off))?$`)
	reSetMic  = regexp.MustCompile(`(?i)^(micro|mic)(fono)?\s+(?P<n>\d+)$`)
	reMics    = regexp.MustCompile(`(?i)^(mics|miclist|micros|devices)$`)
)

// Parser converts free text into (Command, Args) pairs. It is stateless and
// safe for concurrent use.
type Parser struct{}

// NewParser returns a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse matches text against the command vocabulary. Unrecognized input
// returns CmdNone; callers treat that as a no-op.
func (p *Parser) Parse(input string) (Command, Args) {
	raw := normalizeText(input)
	if raw == "" {
		return CmdNone, Args{}
	}

	if reHelp.MatchString(raw) {
		return CmdHelp, Args{}
	}
	if rePlayFav.MatchString(raw) {
		// Checked before play so "favoritos" is not read as a query.
		return CmdPlayFav, Args{}
	}
	if reFavRandom.MatchString(raw) {
		return CmdFavRandom, Args{}
	}
	if reMics.MatchString(raw) {
		return CmdMics, Args{}
	}
	if m := match(reSetMic, raw, "n"); m != "" {
		n, _ := strconv.Atoi(m)
		return CmdSetMic, Args{Level: n}
	}
	if m := match(reCheckDeepR, raw, "q"); reCheckDeepR.MatchString(raw) {
		return CmdCheckDeepRec, Args{Query: m}
	}
	if m := match(reCheckDeep, raw, "q"); reCheckDeep.MatchString(raw) {
		return CmdCheckDeep, Args{Query: m}
	}
	if m := match(reCheckRec, raw, "q"); reCheckRec.MatchString(raw) {
		return CmdCheckRecovered, Args{Query: m}
	}
	if m := match(reCheck, raw, "q"); reCheck.MatchString(raw) {
		return CmdCheck, Args{Query: m}
	}
	if m := match(reImport, raw, "url"); m != "" {
		return CmdImport, Args{URL: m}
	}
	if rePlaylists.MatchString(raw) {
		return CmdPlaylists, Args{}
	}
	if m := match(rePlaylistRm, raw, "q"); rePlaylistRm.MatchString(raw) {
		return CmdPlaylistRemove, Args{Query: m}
	}
	if m := match(rePlaylist, raw, "q"); rePlaylist.MatchString(raw) {
		return CmdPlaylist, Args{Query: m}
	}
	if m := match(reEnsure, raw, "id"); m != "" {
		return CmdEnsure, Args{ID: m}
	}

	if reHistory.MatchString(raw) {
		return CmdHistory, Args{}
	}
	if reShuffle.MatchString(raw) {
		return CmdShuffle, Args{}
	}
	if m := match(reAdd, raw, "q"); m != "" {
		return CmdAdd, Args{Query: m}
	}
	if rePause.MatchString(raw) {
		return CmdPause, Args{}
	}
	if reResume.MatchString(raw) {
		return CmdResume, Args{}
	}
	if reToggleP.MatchString(raw) {
		return CmdToggle, Args{}
	}
	if reStop.MatchString(raw) {
		return CmdStop, Args{}
	}
	if reExit.MatchString(raw) {
		return CmdExit, Args{}
	}
	if reNext.MatchString(raw) {
		return CmdNext, Args{}
	}
	if reReplay.MatchString(raw) {
		return CmdReplay, Args{}
	}
	if reInfo.MatchString(raw) {
		return CmdInfo, Args{}
	}
	if reMute.MatchString(raw) {
		return CmdMute, Args{}
	}
	if reUnmute.MatchString(raw) {
		return CmdUnmute, Args{}
	}

	if reFav.MatchString(raw) {
		return CmdFav, Args{}
	}
	if reFavLast.MatchString(raw) {
		return CmdFavLast, Args{}
	}
	if reFavList.MatchString(raw) {
		return CmdFavList, Args{}
	}
	if reFavCheck.MatchString(raw) {
		return CmdFavCheck, Args{}
	}

	if m := match(reVolume, raw, "n"); m != "" {
		n, _ := strconv.Atoi(m)
		return CmdVolume, Args{Level: n}
	}
	if m := match(reVolShort, raw, "n"); m != "" {
		n, _ := strconv.Atoi(m)
		return CmdVolume, Args{Level: n}
	}
	if reVolUp.MatchString(raw) {
		return CmdVolumeRel, Args{Direction: "up"}
	}
	if reVolDown.MatchString(raw) {
		return CmdVolumeRel, Args{Direction: "down"}
	}

	if reRadio.MatchString(raw) {
		return CmdRadio, Args{Switch: parseSwitch(match(reRadio, raw, "op"), raw)}
	}
	if reFilters.MatchString(raw) {
		return CmdFilters, Args{Switch: filterSwitch(raw)}
	}
	if m := match(reForce, raw, "f"); m != "" {
		return CmdForce, Args{Query: strings.TrimSpace(m)}
	}
	if m := match(reListen, raw, "op"); reListen.MatchString(raw) {
		return CmdListen, Args{Switch: parseSwitch(m, raw)}
	}

	if m := match(rePlay, raw, "q"); m != "" {
		return CmdPlay, Args{Query: m}
	}

	return CmdNone, Args{}
}

func normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = norm.NFKC.String(text)
	return whitespace.ReplaceAllString(text, " ")
}

var whitespace = regexp.MustCompile(`\s+`)

func match(re *regexp.Regexp, text, group string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for i, name := range re.SubexpNames() {
		if name == group && i < len(m) {
			return m[i]
		}
	}
	return ""
}

func parseSwitch(op, raw string) Switch {
	switch strings.ToLower(op) {
	case "on":
		return SwitchOn
	case "off":
		return SwitchOff
	}
	low := strings.ToLower(raw)
	for _, w := range []string{"off", "apagar", "desactivar", "quitar", "sin"} {
		if strings.Contains(low, w) {
			return SwitchOff
		}
	}
	return SwitchOn
}

func filterSwitch(raw string) Switch {
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, " on") || strings.HasPrefix(low, "con ") ||
		strings.Contains(low, "enable") || strings.Contains(low, "activar"):
		return SwitchOn
	case strings.Contains(low, " off") || strings.HasPrefix(low, "sin ") ||
		strings.Contains(low, "disable") || strings.Contains(low, "desactivar") ||
		strings.Contains(low, "quitar"):
		return SwitchOff
	}
	return SwitchToggle
}
