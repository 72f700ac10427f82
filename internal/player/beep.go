// Package player implements audio output over the beep speaker. One Player
// instance plays one local file; the controller constructs a fresh one per
// track.
package player

import (
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"tunepilot/internal/core"
)

const outputSampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputSampleRate, outputSampleRate.N(time.Second/10))
	})
	return speakerErr
}

// Player streams one mp3 file through the shared speaker.
type Player struct {
	mu sync.Mutex

	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	done     chan struct{}
	closed   bool
	torn     atomic.Bool
}

// New opens path, decodes it as mp3 and starts it on the speaker, paused
// when paused is set. It satisfies core.PlayerFactory.
func New(path string, paused bool) (core.Player, error) {
	if err := initSpeaker(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	p := &Player{
		file:     f,
		streamer: streamer,
		format:   format,
		done:     make(chan struct{}),
	}

	resampled := beep.Resample(4, format.SampleRate, outputSampleRate, streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled, Paused: paused}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Silent:   true, // gain is applied after construction
	}

	// Closing the player nils the ctrl streamer, which drains the sequence
	// and fires this callback too; only a natural end counts.
	done := p.done
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		if !p.torn.Load() {
			close(done)
		}
	})))

	return p, nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	speaker.Lock()
	paused := p.ctrl.Paused
	speaker.Unlock()

	select {
	case <-p.done:
		return false
	default:
	}
	return !paused
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// SetGain sets the linear output gain. Zero silences; the volume effect
// works in log2 space, so gain g maps to log2(g).
func (p *Player) SetGain(gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	speaker.Lock()
	if gain <= 0 {
		p.volume.Silent = true
	} else {
		p.volume.Silent = false
		p.volume.Volume = math.Log2(gain)
	}
	speaker.Unlock()
}

// Done is closed when the track reaches its natural end. Closing the player
// does not fire it.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.torn.Store(true)

	speaker.Lock()
	p.ctrl.Paused = true
	p.ctrl.Streamer = nil
	speaker.Unlock()

	err := p.streamer.Close()
	if cerr := p.file.Close(); err == nil {
		err = cerr
	}
	return err
}
