package i18n

// spanishMessages contains all Spanish translations.
var spanishMessages = map[string]string{
	// Playback status
	"play.searching":   "🔎 Buscando: %s",
	"play.now_playing": "🎵 Reproduciendo: %s",
	"play.paused":      "⏸️ Pausado",
	"play.resumed":     "▶️ Reanudado",
	"play.stopped":     "⏹️ Detenido",
	"play.skipping":    "⏭️ Saltando...",
	"play.replay":      "🔁 Repitiendo desde el principio",
	"play.nothing":     "No está sonando nada",
	"play.no_results":  "Sin resultados para: %s",
	"play.failed":      "No se pudo reproducir. Probando el siguiente candidato...",

	// Queue
	"queue.added":    "➕ En cola: %s",
	"queue.shuffled": "🔀 Cola mezclada (%d canciones)",
	"queue.empty":    "La cola está vacía",
	"queue.adding":   "Buscando \"%s\" para añadir...",

	// Volume
	"volume.set":     "🔊 Volumen: %d%%",
	"volume.muted":   "🔇 Silenciado",
	"volume.unmuted": "🔊 Sonido activado",

	// History
	"history.header": "Reproducido recientemente:",
	"history.empty":  "Aún no hay historial",

	// Favorites
	"fav.added":      "⭐ Añadido a favoritos: %s",
	"fav.duplicate":  "'%s' ya está en favoritos",
	"fav.none":       "No hay canción para añadir",
	"fav.empty":      "La lista de favoritos está vacía",
	"fav.playing":    "⭐ Reproduciendo tus favoritos (%d canciones)",
	"fav.random":     "🎲 Favorito al azar: %s",
	"fav.header":     "Tus favoritos:",
	"fav.last_added": "⭐ Canción anterior guardada: %s",

	// Playlists
	"playlist.imported":    "Importación finalizada: '%s'. Añadidas %d canciones.",
	"playlist.merged":      "Importación fusionada: '%s'. Nuevas: %d, Preservadas: %d, Total: %d.",
	"playlist.empty":       "La playlist parece estar vacía o no es válida",
	"playlist.not_found":   "Ninguna playlist coincide con '%s'",
	"playlist.playing":     "📻 Reproduciendo playlist: %s (%d canciones)",
	"playlist.removed":     "🗑️ Playlist eliminada: %s",
	"playlist.none":        "Aún no hay playlists importadas",
	"playlist.header":      "Tus playlists:",
	"playlist.import_fail": "Error en la importación: %v",

	// Verification
	"verify.start":      "🔍 Verificando %d playlist(s), %d canciones...",
	"verify.deep_start": "🚀 Iniciando comprobación profunda para %d playlist(s)...",
	"verify.recovered":  "✅ Recuperado '%s' vía %s",
	"verify.failed":     "❌ No se pudo recuperar %s",
	"verify.summary":    "Comprobación terminada: %d ok, %d recuperadas, %d fallidas",
	"verify.saved":      "✅ Nombres recuperados guardados en el archivo de playlists",
	"verify.nothing":    "No hay playlists para verificar",

	// Modes
	"radio.on":     "📡 Modo radio activado",
	"radio.off":    "📡 Modo radio desactivado",
	"radio.empty":  "📡 La radio no encontró nada reproducible, reintentando en breve",
	"filters.on":   "🛡️ Filtros activados",
	"filters.off":  "🛡️ Filtros desactivados",
	"force.set":    "🎯 Palabra forzada: %s",
	"force.clear":  "🎯 Palabra forzada eliminada",
	"listen.on":    "🎙️ Escuchando por el micrófono %d",
	"listen.off":   "🎙️ Micrófono apagado",
	"mic.set":      "🎙️ Micrófono cambiado a %d",
	"mic.none":     "No hay reconocedor de voz configurado; solo comandos de texto",
	"info.status":  "Estado: %s | %s | %s / %s | vol %d%%",
	"info.idle":    "Inactivo — no suena nada",
	"ensure.start": "Ejecutando diagnóstico de recuperación para %s...",

	// Generic
	"error.generic": "Algo salió mal. Inténtalo de nuevo.",
	"bye":           "👋 ¡Hasta luego!",
}
