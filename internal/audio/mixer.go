// Package audio contains the real-time core: the pre-loaded mixer, the
// streaming disk recorder, and the duplex engine that drives both from the
// audio device callback.
package audio

import (
	"fmt"
	"log/slog"
	"sync"
)

// DecodeFunc turns an audio file into interleaved stereo float32 samples at
// the given sample rate. The concrete implementation lives in the codec
// package; the mixer only needs this narrow view of it.
type DecodeFunc func(path string, sampleRate int) ([]float32, error)

// mixSource is one pre-loaded audio source. raw holds the untrimmed samples
// so the trim can be adjusted later without reloading the file.
type mixSource struct {
	name   string
	raw    []float32
	data   []float32 // raw with trimFrames leading frames dropped
	volume float32
	active bool
}

// Mixer sums a set of fully pre-loaded sources into a rolling stereo
// playback position. Sources are mutated from the control goroutine while
// Read runs on the real-time callback; every mutation builds its state
// before taking the lock, so the lock is only held for the swap and for the
// summation itself.
type Mixer struct {
	sampleRate int
	decode     DecodeFunc

	mu       sync.Mutex
	sources  []*mixSource
	position int
	playing  bool
}

// NewMixer creates an empty mixer. decode is used by AddSource to load
// files; it may be nil if sources are never loaded from disk.
func NewMixer(sampleRate int, decode DecodeFunc) *Mixer {
	return &Mixer{sampleRate: sampleRate, decode: decode}
}

// AddSource decodes a file fully into memory and adds it to the mix.
// trimFrames leading frames are dropped for latency compensation. A decode
// failure leaves the already-loaded sources untouched.
func (m *Mixer) AddSource(name, path string, volume float64, trimFrames int) error {
	samples, err := m.decode(path, m.sampleRate)
	if err != nil {
		return fmt.Errorf("load source %q: %w", name, err)
	}

	src := &mixSource{
		name:   name,
		raw:    samples,
		volume: float32(volume),
		active: true,
	}
	src.applyTrim(trimFrames)

	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()

	slog.Debug("Mixer source loaded", "name", name, "path", path,
		"frames", len(src.data)/2, "volume", volume, "trim_frames", trimFrames)
	return nil
}

func (s *mixSource) applyTrim(trimFrames int) {
	if trimFrames < 0 {
		trimFrames = 0
	}
	offset := trimFrames * 2
	if offset > len(s.raw) {
		offset = len(s.raw)
	}
	s.data = s.raw[offset:]
}

// Clear removes all sources and rewinds to the beginning.
func (m *Mixer) Clear() {
	m.mu.Lock()
	m.sources = nil
	m.position = 0
	m.mu.Unlock()
}

// Reset rewinds playback to the beginning without touching the sources.
func (m *Mixer) Reset() {
	m.mu.Lock()
	m.position = 0
	m.mu.Unlock()
}

// SetPlaying gates whether Read produces audio or silence. Sources can be
// loaded paused and then started in lockstep with the recorder.
func (m *Mixer) SetPlaying(playing bool) {
	m.mu.Lock()
	m.playing = playing
	m.mu.Unlock()
}

// IsPlaying reports whether Read is currently producing audio.
func (m *Mixer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// SetVolume updates the volume of the named source.
func (m *Mixer) SetVolume(name string, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.name == name {
			s.volume = float32(volume)
			return
		}
	}
}

// SetTrim re-trims the named source from its retained untrimmed samples.
func (m *Mixer) SetTrim(name string, trimFrames int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.name == name {
			s.applyTrim(trimFrames)
			return
		}
	}
}

// Position returns the current playback cursor in frames.
func (m *Mixer) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// DurationFrames returns the length of the longest active source.
func (m *Mixer) DurationFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durationFramesLocked()
}

func (m *Mixer) durationFramesLocked() int {
	max := 0
	for _, s := range m.sources {
		if !s.active {
			continue
		}
		if frames := len(s.data) / 2; frames > max {
			max = frames
		}
	}
	return max
}

// DurationSeconds returns the mix length in seconds.
func (m *Mixer) DurationSeconds() float64 {
	if m.sampleRate == 0 {
		return 0
	}
	return float64(m.DurationFrames()) / float64(m.sampleRate)
}

// IsFinished reports whether the cursor is at or past the end of every
// active source. An empty mixer is never finished.
func (m *Mixer) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.durationFramesLocked()
	return d > 0 && m.position >= d
}

// Read fills dst with the next len(dst)/2 frames of the mix, clipped to
// [-1, 1]. While paused it writes silence and does not advance. Called from
// the real-time callback; performs no allocation.
func (m *Mixer) Read(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.playing {
		return
	}

	frames := len(dst) / 2
	start := m.position * 2
	for _, s := range m.sources {
		if !s.active || start >= len(s.data) {
			continue
		}
		window := s.data[start:]
		if len(window) > len(dst) {
			window = window[:len(dst)]
		}
		for i, v := range window {
			dst[i] += v * s.volume
		}
	}
	m.position += frames

	for i, v := range dst {
		dst[i] = clip(v)
	}
}

// clip bounds a sample to [-1, 1].
func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
