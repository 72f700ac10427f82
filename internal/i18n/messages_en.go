package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Playback status
	"play.searching":   "🔎 Searching: %s",
	"play.now_playing": "🎵 Now playing: %s",
	"play.paused":      "⏸️ Paused",
	"play.resumed":     "▶️ Resumed",
	"play.stopped":     "⏹️ Stopped",
	"play.skipping":    "⏭️ Skipping...",
	"play.replay":      "🔁 Replaying from the start",
	"play.nothing":     "Nothing is playing",
	"play.no_results":  "No results for: %s",
	"play.failed":      "Couldn't play that one. Trying the next candidate...",

	// Queue
	"queue.added":    "➕ Queued: %s",
	"queue.shuffled": "🔀 Queue shuffled (%d tracks)",
	"queue.empty":    "The queue is empty",
	"queue.adding":   "Looking for \"%s\" to add...",

	// Volume
	"volume.set":     "🔊 Volume: %d%%",
	"volume.muted":   "🔇 Muted",
	"volume.unmuted": "🔊 Sound back on",

	// History
	"history.header": "Recently played:",
	"history.empty":  "No playback history yet",

	// Favorites
	"fav.added":      "⭐ Added to favorites: %s",
	"fav.duplicate":  "'%s' is already in favorites",
	"fav.none":       "No track to add",
	"fav.empty":      "Favorites list is empty",
	"fav.playing":    "⭐ Playing your favorites (%d tracks)",
	"fav.random":     "🎲 Random favorite: %s",
	"fav.header":     "Your favorites:",
	"fav.last_added": "⭐ Previous track saved: %s",

	// Playlists
	"playlist.imported":    "Import finished: '%s'. Added %d songs.",
	"playlist.merged":      "Merged import: '%s'. New: %d, Preserved: %d, Total: %d.",
	"playlist.empty":       "The playlist looks empty or invalid",
	"playlist.not_found":   "No playlist matches '%s'",
	"playlist.playing":     "📻 Playing playlist: %s (%d tracks)",
	"playlist.removed":     "🗑️ Removed playlist: %s",
	"playlist.none":        "No playlists imported yet",
	"playlist.header":      "Your playlists:",
	"playlist.import_fail": "Import failed: %v",

	// Verification
	"verify.start":      "🔍 Checking %d playlist(s), %d songs...",
	"verify.deep_start": "🚀 Starting deep check for %d playlist(s)...",
	"verify.recovered":  "✅ Recovered '%s' via %s",
	"verify.failed":     "❌ Could not recover %s",
	"verify.summary":    "Check done: %d ok, %d recovered, %d failed",
	"verify.saved":      "✅ Recovered names saved to the playlist file",
	"verify.nothing":    "No playlists to verify",

	// Modes
	"radio.on":     "📡 Radio mode on",
	"radio.off":    "📡 Radio mode off",
	"radio.empty":  "📡 Radio found nothing playable, retrying shortly",
	"filters.on":   "🛡️ Filters enabled",
	"filters.off":  "🛡️ Filters disabled",
	"force.set":    "🎯 Forced keyword: %s",
	"force.clear":  "🎯 Forced keyword cleared",
	"listen.on":    "🎙️ Listening on microphone %d",
	"listen.off":   "🎙️ Microphone off",
	"mic.set":      "🎙️ Microphone set to %d",
	"mic.none":     "No speech recognizer is configured; text commands only",
	"info.status":  "State: %s | %s | %s / %s | vol %d%%",
	"info.idle":    "Idle — nothing playing",
	"ensure.start": "Running recovery diagnostic for %s...",

	// Generic
	"error.generic": "Something went wrong. Please try again.",
	"bye":           "👋 Bye!",
}
