package i18n

import "testing"

func TestLocalizerEnglish(t *testing.T) {
	l := NewLocalizer("en")

	if got := l.T("play.paused"); got != "⏸️ Paused" {
		t.Errorf("T(play.paused) = %q", got)
	}
	if got := l.T("play.now_playing", "Artist - Song"); got != "🎵 Now playing: Artist - Song" {
		t.Errorf("T with args = %q", got)
	}
}

func TestLocalizerSpanish(t *testing.T) {
	l := NewLocalizer("es")

	if got := l.T("play.paused"); got != "⏸️ Pausado" {
		t.Errorf("T(play.paused) = %q", got)
	}
}

func TestLocalizerFallbackToEnglish(t *testing.T) {
	l := NewLocalizer("fr")
	if got := l.T("play.paused"); got != "⏸️ Paused" {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
}

func TestLocalizerUnknownKeyReturnsKey(t *testing.T) {
	l := NewLocalizer("en")
	if got := l.T("does.not.exist"); got != "does.not.exist" {
		t.Errorf("unknown key should echo, got %q", got)
	}
}

func TestLanguagesHaveSameKeys(t *testing.T) {
	for key := range englishMessages {
		if _, ok := spanishMessages[key]; !ok {
			t.Errorf("key %q missing from Spanish messages", key)
		}
	}
	for key := range spanishMessages {
		if _, ok := englishMessages[key]; !ok {
			t.Errorf("key %q missing from English messages", key)
		}
	}
}
