package core

import "strings"

var playableTypes = map[string]bool{
	"video":           true,
	"url":             true,
	"url_transparent": true,
}

// IsAllowed decides whether a candidate may be played under the current
// filter rules. With filters disabled everything passes, including entries
// that would otherwise miss the forced keyword.
func IsAllowed(ref MediaRef, cfg *Config) bool {
	if !cfg.FiltersEnabled {
		return true
	}

	title := strings.ToLower(ref.Title)

	if fk := strings.ToLower(cfg.ForcedKeyword); fk != "" && !strings.Contains(title, fk) {
		return false
	}
	for _, w := range cfg.BlacklistedKeywords {
		if strings.Contains(title, strings.ToLower(w)) {
			return false
		}
	}
	if ref.Duration > cfg.MaxDuration() {
		return false
	}

	// Short-form markers reject only genuinely short entries; a full-length
	// video with "shorts" in its title is fine.
	for _, k := range cfg.ShortsKeywords {
		if strings.Contains(title, strings.ToLower(k)) &&
			ref.Duration.Seconds() <= float64(cfg.MaxShortsDuration) {
			return false
		}
	}

	typ := ref.Type
	if typ == "" {
		typ = "video"
	}
	return playableTypes[typ]
}
