package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	drainIdleSleep   = 10 * time.Millisecond
	drainJoinTimeout = 5 * time.Second
)

// StreamingRecorder streams audio blocks pushed from the real-time callback
// to a 16-bit PCM WAV file. Write queues a copy of the block and returns
// immediately; a drain goroutine performs the actual disk writes so file
// latency never stalls the audio thread.
type StreamingRecorder struct {
	path       string
	sampleRate int
	channels   int

	mu       sync.Mutex
	queue    [][]float32
	running  bool
	writeErr error

	file *os.File
	enc  *wav.Encoder
	done chan struct{}

	framesQueued  atomic.Int64
	framesWritten atomic.Int64
}

// NewStreamingRecorder prepares a recorder for the given output file. Call
// Start before pushing blocks.
func NewStreamingRecorder(path string, sampleRate, channels int) *StreamingRecorder {
	return &StreamingRecorder{
		path:       path,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Start opens the output file and spawns the drain goroutine.
func (r *StreamingRecorder) Start() error {
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}

	r.file = f
	r.enc = wav.NewEncoder(f, r.sampleRate, 16, r.channels, 1)
	r.done = make(chan struct{})

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	go r.drainLoop()

	slog.Debug("Recorder started", "path", r.path, "sample_rate", r.sampleRate, "channels", r.channels)
	return nil
}

// Write queues a block for the drain goroutine. Called from the real-time
// callback; it copies the block and never performs file I/O.
func (r *StreamingRecorder) Write(block []float32) {
	buf := make([]float32, len(block))
	copy(buf, block)

	r.mu.Lock()
	r.queue = append(r.queue, buf)
	r.mu.Unlock()

	r.framesQueued.Add(int64(len(block) / r.channels))
}

// drainLoop pops one block at a time and writes it outside the lock. When
// the queue is empty it sleeps briefly instead of spinning.
func (r *StreamingRecorder) drainLoop() {
	defer close(r.done)
	for {
		chunk, running := r.pop()
		if chunk == nil {
			if !running {
				return
			}
			time.Sleep(drainIdleSleep)
			continue
		}
		r.writeChunk(chunk)
	}
}

func (r *StreamingRecorder) pop() (chunk []float32, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) > 0 {
		chunk = r.queue[0]
		r.queue = r.queue[1:]
	}
	return chunk, r.running
}

func (r *StreamingRecorder) writeChunk(chunk []float32) {
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		Data:           make([]int, len(chunk)),
		SourceBitDepth: 16,
	}
	for i, s := range chunk {
		buf.Data[i] = sampleToInt16(s)
	}
	if err := r.enc.Write(buf); err != nil {
		r.mu.Lock()
		if r.writeErr == nil {
			r.writeErr = err
			slog.Error("Recorder disk write failed", "path", r.path, "error", err)
		}
		r.mu.Unlock()
		return
	}
	r.framesWritten.Add(int64(len(chunk) / r.channels))
}

// Stop signals the drain goroutine, joins it with a bounded timeout, then
// flushes anything still queued synchronously before closing the file. No
// queued audio is dropped. Safe to call when not started.
func (r *StreamingRecorder) Stop() error {
	r.mu.Lock()
	if r.enc == nil {
		r.mu.Unlock()
		return nil
	}
	wasRunning := r.running
	r.running = false
	r.mu.Unlock()

	if wasRunning {
		select {
		case <-r.done:
		case <-time.After(drainJoinTimeout):
			slog.Warn("Recorder drain goroutine did not finish in time", "path", r.path)
		}
	}

	// Drain whatever the goroutine left behind.
	for {
		chunk, _ := r.pop()
		if chunk == nil {
			break
		}
		r.writeChunk(chunk)
	}

	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("finalize recording: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close recording: %w", err)
	}
	r.enc = nil
	r.file = nil

	r.mu.Lock()
	err := r.writeErr
	r.mu.Unlock()

	slog.Info("Recorder stopped", "path", r.path, "frames", r.framesWritten.Load())
	if err != nil {
		return fmt.Errorf("recording had write errors: %w", err)
	}
	return nil
}

// FramesQueued returns the total frames accepted by Write so far. This is
// the write position the next pushed block will land at, which is what the
// session log records.
func (r *StreamingRecorder) FramesQueued() int64 {
	return r.framesQueued.Load()
}

// FramesWritten returns the frames flushed to disk so far.
func (r *StreamingRecorder) FramesWritten() int64 {
	return r.framesWritten.Load()
}

// ElapsedSeconds returns the recording length so far. Approximate and
// eventually consistent; safe to poll from any goroutine.
func (r *StreamingRecorder) ElapsedSeconds() float64 {
	if r.sampleRate == 0 {
		return 0
	}
	return float64(r.framesWritten.Load()) / float64(r.sampleRate)
}

// Path returns the output file path.
func (r *StreamingRecorder) Path() string { return r.path }

// sampleToInt16 converts a float sample to a clamped 16-bit value.
func sampleToInt16(s float32) int {
	return int(clip(s) * 32767)
}
