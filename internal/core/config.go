package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config is the persisted user configuration. JSON field names match the
// on-disk document; new fields back-fill from defaults when absent.
type Config struct {
	BlacklistedKeywords []string `json:"blacklisted_keywords"`
	MaxDurationSeconds  int      `json:"max_duration_seconds"`
	ShortsKeywords      []string `json:"shorts_keywords"`
	MaxShortsDuration   int      `json:"max_shorts_duration"`
	Hotwords            []string `json:"hotwords"`
	FiltersEnabled      bool     `json:"filters_enabled"`
	Volume              float64  `json:"volume"` // gain, not percent
	MicrophoneIndex     int      `json:"microphone_index"`
	ListenEnabled       bool     `json:"listen_enabled"`
	ForcedKeyword       string   `json:"forced_keyword"` // session-only, cleared on load
	HistorySize         int      `json:"history_size"`
	VerifyWorkers       int      `json:"verify_workers"`
	SimilarityStrict    float64  `json:"similarity_strict"`
	SimilarityRadio     float64  `json:"similarity_radio"`
	MaxGain             float64  `json:"max_gain"`
	RadioCooldownSecs   int      `json:"radio_cooldown_seconds"`
	SearchDepth         int      `json:"search_depth"`
}

func DefaultConfig() *Config {
	return &Config{
		BlacklistedKeywords: []string{
			"live", "concierto", "vivo", "remix", "bazar",
			"album", "playlist", "mix", "tutorial", "compilation",
		},
		MaxDurationSeconds: 600,
		ShortsKeywords:     []string{"#shorts", "shorts", "reels"},
		MaxShortsDuration:  65,
		Hotwords:           []string{"rafa"},
		FiltersEnabled:     true,
		Volume:             0.02,
		MicrophoneIndex:    -1,
		ListenEnabled:      false,
		HistorySize:        15,
		VerifyWorkers:      4,
		SimilarityStrict:   0.85,
		SimilarityRadio:    0.60,
		MaxGain:            0.2,
		RadioCooldownSecs:  30,
		SearchDepth:        10,
	}
}

// MaxDuration returns the filter duration cap.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSeconds) * time.Second
}

// RadioCooldown returns the radio-exhaustion retry interval.
func (c *Config) RadioCooldown() time.Duration {
	return time.Duration(c.RadioCooldownSecs) * time.Second
}

// ConfigStore loads and saves the config document at a fixed path. Writes
// rewrite the whole file; last writer wins.
type ConfigStore struct {
	path string
	mu   sync.Mutex
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{path: filepath.Join(dir, "config.json")}
}

// Load reads the document over a defaults-initialized config, so missing
// fields keep their default value. A missing or corrupt file yields the
// defaults. The forced keyword never survives a restart.
func (s *ConfigStore) Load() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultConfig()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig()
	}
	cfg.ForcedKeyword = ""
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	if cfg.VerifyWorkers <= 0 {
		cfg.VerifyWorkers = DefaultConfig().VerifyWorkers
	}
	return cfg
}

func (s *ConfigStore) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
