package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
)

// Config holds the stream parameters the engine runs with.
type Config struct {
	SampleRate     int
	BufferSize     int
	InputDevice    string
	OutputDevice   string
	InputChannels  int
	OutputChannels int
	MonitorChannel int // input channel fed to the recorder and the monitor mix
}

// Engine owns the duplex audio stream. Every device callback captures input
// into the active recorder, pulls the next mix block, folds the live input
// back into the output so the performer hears themselves, and watches for
// the backing track reaching its end.
type Engine struct {
	cfg   Config
	mixer *Mixer

	recorder atomic.Pointer[StreamingRecorder]
	peakBits atomic.Uint32

	mu        sync.Mutex
	device    *device
	running   bool
	onSongEnd func()

	songEnd    chan struct{}
	notifyDone chan struct{}

	// Scratch buffers for the callback; sized in Start, never allocated on
	// the hot path.
	monitor []float32
	mix     []float32
}

// NewEngine creates an engine around the given mixer.
func NewEngine(cfg Config, mixer *Mixer) *Engine {
	if cfg.InputChannels < 1 {
		cfg.InputChannels = 1
	}
	if cfg.OutputChannels < 1 {
		cfg.OutputChannels = 2
	}
	if cfg.MonitorChannel < 0 || cfg.MonitorChannel >= cfg.InputChannels {
		cfg.MonitorChannel = 0
	}
	return &Engine{cfg: cfg, mixer: mixer}
}

// Mixer returns the mixer the engine drives.
func (e *Engine) Mixer() *Mixer { return e.mixer }

// SetOnSongEnd registers the callback fired when the mixer finishes the
// backing track. It runs on a dedicated goroutine, never on the audio
// thread.
func (e *Engine) SetOnSongEnd(cb func()) {
	e.mu.Lock()
	e.onSongEnd = cb
	e.mu.Unlock()
}

// Start opens the duplex stream. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	e.prepare()
	go e.notifyLoop()

	dev, err := openDevice(e.cfg, e.process)
	if err != nil {
		close(e.songEnd)
		<-e.notifyDone
		return fmt.Errorf("open duplex stream: %w", err)
	}
	if err := dev.start(); err != nil {
		dev.close()
		close(e.songEnd)
		<-e.notifyDone
		return fmt.Errorf("start duplex stream: %w", err)
	}

	e.device = dev
	e.running = true
	slog.Info("Audio engine started",
		"sample_rate", e.cfg.SampleRate, "buffer_size", e.cfg.BufferSize,
		"input_channels", e.cfg.InputChannels, "output_channels", e.cfg.OutputChannels)
	return nil
}

// Stop closes the stream and stops any active recorder. Idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return e.StopRecording()
	}
	dev := e.device
	e.device = nil
	e.running = false
	e.mu.Unlock()

	dev.close()
	close(e.songEnd)
	<-e.notifyDone

	err := e.StopRecording()
	slog.Info("Audio engine stopped")
	return err
}

// IsRunning reports whether the stream is open.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// StartRecording creates and starts a recorder writing to path, replacing
// any previous one.
func (e *Engine) StartRecording(path string) error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	rec := NewStreamingRecorder(path, e.cfg.SampleRate, 1)
	if err := rec.Start(); err != nil {
		return err
	}
	e.recorder.Store(rec)
	return nil
}

// StopRecording stops and detaches the active recorder, if any.
func (e *Engine) StopRecording() error {
	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	return rec.Stop()
}

// RecordingFrames returns the active recorder's current write position, the
// frame offset session events are stamped with. Zero when not recording.
func (e *Engine) RecordingFrames() int64 {
	if rec := e.recorder.Load(); rec != nil {
		return rec.FramesQueued()
	}
	return 0
}

// RecordingElapsed returns seconds recorded so far, zero when idle.
func (e *Engine) RecordingElapsed() float64 {
	if rec := e.recorder.Load(); rec != nil {
		return rec.ElapsedSeconds()
	}
	return 0
}

// PeakLevel returns the most recent input block's peak absolute level.
// Updated every callback; last write wins, which is fine for a meter.
func (e *Engine) PeakLevel() float64 {
	return float64(math.Float32frombits(e.peakBits.Load()))
}

// prepare sizes the callback scratch buffers and notification plumbing.
func (e *Engine) prepare() {
	e.monitor = make([]float32, e.cfg.BufferSize)
	e.mix = make([]float32, e.cfg.BufferSize*2)
	e.songEnd = make(chan struct{}, 1)
	e.notifyDone = make(chan struct{})
}

// process is the duplex callback body. input holds frames*InputChannels
// interleaved samples, output frames*OutputChannels. It must not block and
// must not allocate.
func (e *Engine) process(input, output []float32, frames int) {
	if frames > len(e.monitor) {
		// Device handed us more than the configured period; clamp rather
		// than allocate on the audio thread.
		frames = len(e.monitor)
	}
	monitor := e.monitor[:frames]

	inCh := e.cfg.InputChannels
	monCh := e.cfg.MonitorChannel
	for i := 0; i < frames; i++ {
		monitor[i] = input[i*inCh+monCh]
	}

	if rec := e.recorder.Load(); rec != nil {
		rec.Write(monitor)
	}

	var peak float32
	for _, v := range monitor {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	e.peakBits.Store(math.Float32bits(peak))

	mix := e.mix[:frames*2]
	e.mixer.Read(mix)

	outCh := e.cfg.OutputChannels
	for i := 0; i < frames; i++ {
		for c := 0; c < outCh; c++ {
			var v float32
			if c < 2 {
				v = mix[i*2+c]
			}
			output[i*outCh+c] = clip(v + monitor[i])
		}
	}

	if e.mixer.IsPlaying() && e.mixer.IsFinished() {
		e.mixer.SetPlaying(false)
		// Hand the notification off the audio thread.
		select {
		case e.songEnd <- struct{}{}:
		default:
		}
	}
}

// notifyLoop delivers song-end notifications on a non-real-time goroutine.
func (e *Engine) notifyLoop() {
	defer close(e.notifyDone)
	for range e.songEnd {
		e.mu.Lock()
		cb := e.onSongEnd
		e.mu.Unlock()
		if cb != nil {
			cb()
		}
	}
}
