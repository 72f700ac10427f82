package text

import "testing"

func TestParseCommands(t *testing.T) {
	p := NewParser()

	tests := []struct {
		input string
		cmd   Command
	}{
		{"play daft punk", CmdPlay},
		{"pon daft punk", CmdPlay},
		{"pause", CmdPause},
		{"pausa", CmdPause},
		{"resume", CmdResume},
		{"p", CmdToggle},
		{"stop", CmdStop},
		{"next", CmdNext},
		{"siguiente", CmdNext},
		{"s", CmdNext},
		{"replay", CmdReplay},
		{"shuffle", CmdShuffle},
		{"mezclar", CmdShuffle},
		{"add daft punk", CmdAdd},
		{"history", CmdHistory},
		{"historial", CmdHistory},
		{"exit", CmdExit},
		{"salir", CmdExit},
		{"info", CmdInfo},
		{"help", CmdHelp},
		{"mute", CmdMute},
		{"unmute", CmdUnmute},
		{"fav", CmdFav},
		{"favlast", CmdFavLast},
		{"favlist", CmdFavList},
		{"favcheck", CmdFavCheck},
		{"playfav", CmdPlayFav},
		{"favoritos", CmdPlayFav},
		{"fr", CmdFavRandom},
		{"playlists", CmdPlaylists},
		{"playlist chill", CmdPlaylist},
		{"pp chill", CmdPlaylist},
		{"pr chill", CmdPlaylistRemove},
		{"pc chill", CmdCheck},
		{"pcr chill", CmdCheckRecovered},
		{"pcd chill", CmdCheckDeep},
		{"pcdr chill", CmdCheckDeepRec},
		{"radio", CmdRadio},
		{"radio off", CmdRadio},
		{"filters", CmdFilters},
		{"sin filtros", CmdFilters},
		{"force metrika", CmdForce},
		{"listen", CmdListen},
		{"mic 3", CmdSetMic},
		{"mics", CmdMics},
		{"", CmdNone},
		{"what a lovely day", CmdNone},
	}

	for _, tt := range tests {
		if cmd, _ := p.Parse(tt.input); cmd != tt.cmd {
			t.Errorf("Parse(%q) = %q, want %q", tt.input, cmd, tt.cmd)
		}
	}
}

func TestParseQueries(t *testing.T) {
	p := NewParser()

	cmd, args := p.Parse("play daft punk around the world")
	if cmd != CmdPlay || args.Query != "daft punk around the world" {
		t.Errorf("got %q %q", cmd, args.Query)
	}

	cmd, args = p.Parse("add  some   song")
	if cmd != CmdAdd || args.Query != "some song" {
		t.Errorf("whitespace should collapse inside the query, got %q", args.Query)
	}

	cmd, args = p.Parse("force metrika")
	if cmd != CmdForce || args.Query != "metrika" {
		t.Errorf("got %q %q", cmd, args.Query)
	}

	cmd, args = p.Parse("playlist")
	if cmd != CmdPlaylist || args.Query != "" {
		t.Errorf("playlist with no argument must yield an empty query, got %q", args.Query)
	}
}

func TestParseVolume(t *testing.T) {
	p := NewParser()

	tests := []struct {
		input string
		cmd   Command
		level int
	}{
		{"volume 50", CmdVolume, 50},
		{"vol 120", CmdVolume, 120},
		{"set volume to 80", CmdVolume, 80},
		{"volumen al 30", CmdVolume, 30},
		{"v 15", CmdVolume, 15},
	}
	for _, tt := range tests {
		cmd, args := p.Parse(tt.input)
		if cmd != tt.cmd || args.Level != tt.level {
			t.Errorf("Parse(%q) = %q level=%d, want %q level=%d",
				tt.input, cmd, args.Level, tt.cmd, tt.level)
		}
	}

	if cmd, args := p.Parse("sube"); cmd != CmdVolumeRel || args.Direction != "up" {
		t.Errorf("got %q %q", cmd, args.Direction)
	}
	if cmd, args := p.Parse("-"); cmd != CmdVolumeRel || args.Direction != "down" {
		t.Errorf("got %q %q", cmd, args.Direction)
	}
}

func TestParseSwitches(t *testing.T) {
	p := NewParser()

	tests := []struct {
		input string
		cmd   Command
		sw    Switch
	}{
		{"radio on", CmdRadio, SwitchOn},
		{"radio off", CmdRadio, SwitchOff},
		{"radio", CmdRadio, SwitchOn},
		{"filters on", CmdFilters, SwitchOn},
		{"sin filtros", CmdFilters, SwitchOff},
		{"filters", CmdFilters, SwitchToggle},
		{"listen on", CmdListen, SwitchOn},
		{"listen off", CmdListen, SwitchOff},
	}
	for _, tt := range tests {
		cmd, args := p.Parse(tt.input)
		if cmd != tt.cmd || args.Switch != tt.sw {
			t.Errorf("Parse(%q) = %q switch=%d, want %q switch=%d",
				tt.input, cmd, args.Switch, tt.cmd, tt.sw)
		}
	}
}

func TestParseImportAndEnsure(t *testing.T) {
	p := NewParser()

	cmd, args := p.Parse("import https://example.com/playlist?list=PL123")
	if cmd != CmdImport || args.URL != "https://example.com/playlist?list=PL123" {
		t.Errorf("got %q %q", cmd, args.URL)
	}

	if cmd, _ := p.Parse("import not-a-url"); cmd != CmdNone {
		t.Errorf("import without a URL must not parse, got %q", cmd)
	}

	cmd, args = p.Parse("ensure dQw4w9WgXcQ")
	if cmd != CmdEnsure || args.ID != "dQw4w9WgXcQ" {
		t.Errorf("got %q %q", cmd, args.ID)
	}

	if cmd, _ := p.Parse("ensure short"); cmd != CmdNone {
		t.Errorf("ensure requires an 11-char id, got %q", cmd)
	}
}

func TestParseSetMic(t *testing.T) {
	p := NewParser()
	cmd, args := p.Parse("micro 2")
	if cmd != CmdSetMic || args.Level != 2 {
		t.Errorf("got %q %d", cmd, args.Level)
	}
}
