package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

// wavFrameCount reads back a finished recording and counts its frames.
func wavFrameCount(t *testing.T, path string, channels int) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatalf("invalid WAV file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return len(buf.Data) / channels
}

func TestRecorderNoFrameLoss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	r := NewStreamingRecorder(path, 48000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	blockSizes := []int{512, 64, 1, 1024, 333, 512, 7}
	want := 0
	for _, n := range blockSizes {
		block := make([]float32, n)
		for i := range block {
			block[i] = 0.25
		}
		r.Write(block)
		want += n
	}

	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	if got := int(r.FramesWritten()); got != want {
		t.Errorf("FramesWritten = %d, want %d", got, want)
	}
	if got := wavFrameCount(t, path, 1); got != want {
		t.Errorf("file frames = %d, want %d", got, want)
	}
}

func TestRecorderStopFlushesQueuedBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	r := NewStreamingRecorder(path, 48000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	// Push a burst and stop immediately; the drain goroutine may not have
	// touched any of it yet.
	const blocks, size = 50, 256
	for i := 0; i < blocks; i++ {
		r.Write(make([]float32, size))
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	if got := wavFrameCount(t, path, 1); got != blocks*size {
		t.Errorf("file frames = %d, want %d", got, blocks*size)
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := NewStreamingRecorder(filepath.Join(t.TempDir(), "rec.wav"), 48000, 1)
	if err := r.Stop(); err != nil {
		t.Errorf("Stop before Start returned error: %v", err)
	}
}

func TestRecorderStopTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	r := NewStreamingRecorder(path, 48000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	r.Write(make([]float32, 128))
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := r.Stop(); err != nil {
		t.Errorf("second Stop returned error: %v", err)
	}
}

func TestRecorderElapsedSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	r := NewStreamingRecorder(path, 48000, 1)
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	r.Write(make([]float32, 48000))
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if got := r.ElapsedSeconds(); got != 1.0 {
		t.Errorf("ElapsedSeconds = %v, want 1.0", got)
	}
	if got := r.FramesQueued(); got != 48000 {
		t.Errorf("FramesQueued = %d, want 48000", got)
	}
}
