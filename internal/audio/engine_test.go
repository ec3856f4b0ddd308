package audio

import (
	"math"
	"path/filepath"
	"testing"
	"time"
)

// newTestEngine builds an engine with callback plumbing but no device; the
// tests drive process directly.
func newTestEngine(t *testing.T, cfg Config, files map[string][]float32) *Engine {
	t.Helper()
	mixer := NewMixer(cfg.SampleRate, stubDecode(files))
	e := NewEngine(cfg, mixer)
	e.prepare()
	go e.notifyLoop()
	t.Cleanup(func() {
		close(e.songEnd)
		<-e.notifyDone
	})
	return e
}

func testConfig() Config {
	return Config{
		SampleRate:     48000,
		BufferSize:     64,
		InputChannels:  1,
		OutputChannels: 2,
	}
}

func TestEngineMonitorThrough(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)

	const frames = 64
	input := make([]float32, frames)
	for i := range input {
		input[i] = 0.3
	}
	output := make([]float32, frames*2)

	e.process(input, output, frames)

	for i := 0; i < frames; i++ {
		if output[2*i] != 0.3 || output[2*i+1] != 0.3 {
			t.Fatalf("frame %d: monitor not in both channels: %v %v", i, output[2*i], output[2*i+1])
		}
	}
}

func TestEngineOutputClipped(t *testing.T) {
	e := newTestEngine(t, testConfig(), map[string][]float32{
		"hot.wav": constFrames(1000, 0.9),
	})
	if err := e.Mixer().AddSource("hot", "hot.wav", 1.0, 0); err != nil {
		t.Fatal(err)
	}
	e.Mixer().SetPlaying(true)

	const frames = 64
	input := make([]float32, frames)
	for i := range input {
		input[i] = 0.8 // 0.9 + 0.8 must clip
	}
	output := make([]float32, frames*2)
	e.process(input, output, frames)

	for i, v := range output {
		if v != 1.0 {
			t.Fatalf("sample %d not clipped: %v", i, v)
		}
	}
}

func TestEngineMixPlusMonitor(t *testing.T) {
	e := newTestEngine(t, testConfig(), map[string][]float32{
		"bed.wav": constFrames(1000, 0.2),
	})
	if err := e.Mixer().AddSource("bed", "bed.wav", 1.0, 0); err != nil {
		t.Fatal(err)
	}
	e.Mixer().SetPlaying(true)

	const frames = 64
	input := make([]float32, frames)
	for i := range input {
		input[i] = 0.1
	}
	output := make([]float32, frames*2)
	e.process(input, output, frames)

	for i, v := range output {
		if math.Abs(float64(v)-0.3) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.3", i, v)
		}
	}
}

func TestEnginePeakLevel(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)

	const frames = 64
	input := make([]float32, frames)
	input[10] = -0.75
	input[20] = 0.5
	output := make([]float32, frames*2)
	e.process(input, output, frames)

	if got := e.PeakLevel(); math.Abs(got-0.75) > 1e-6 {
		t.Errorf("PeakLevel = %v, want 0.75", got)
	}
}

func TestEngineMonitorChannelSelection(t *testing.T) {
	cfg := testConfig()
	cfg.InputChannels = 2
	cfg.MonitorChannel = 1
	e := newTestEngine(t, cfg, nil)

	const frames = 8
	input := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		input[2*i] = 0.9   // channel 0, ignored
		input[2*i+1] = 0.4 // channel 1, monitored
	}
	output := make([]float32, frames*2)
	e.process(input, output, frames)

	for i := 0; i < frames; i++ {
		if output[2*i] != 0.4 {
			t.Fatalf("frame %d monitored wrong channel: %v", i, output[2*i])
		}
	}
}

func TestEngineRecorderReceivesMonitor(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)
	path := filepath.Join(t.TempDir(), "raw.wav")
	if err := e.StartRecording(path); err != nil {
		t.Fatal(err)
	}

	const frames = 64
	input := make([]float32, frames)
	output := make([]float32, frames*2)
	for i := 0; i < 10; i++ {
		e.process(input, output, frames)
	}

	if got := e.RecordingFrames(); got != 10*frames {
		t.Errorf("RecordingFrames = %d, want %d", got, 10*frames)
	}
	if err := e.StopRecording(); err != nil {
		t.Fatal(err)
	}
	if got := wavFrameCount(t, path, 1); got != 10*frames {
		t.Errorf("recorded frames = %d, want %d", got, 10*frames)
	}
}

func TestEngineSongEndNotification(t *testing.T) {
	e := newTestEngine(t, testConfig(), map[string][]float32{
		"short.wav": constFrames(100, 0.1),
	})
	if err := e.Mixer().AddSource("short", "short.wav", 1.0, 0); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 4)
	e.SetOnSongEnd(func() { fired <- struct{}{} })
	e.Mixer().SetPlaying(true)

	const frames = 64
	input := make([]float32, frames)
	output := make([]float32, frames*2)
	e.process(input, output, frames) // 64 of 100
	select {
	case <-fired:
		t.Fatal("song end fired before the track finished")
	case <-time.After(20 * time.Millisecond):
	}

	e.process(input, output, frames) // past the end
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("song end never fired")
	}

	if e.Mixer().IsPlaying() {
		t.Error("mixer still playing after song end")
	}

	// Further callbacks with a stopped mixer must not re-fire.
	e.process(input, output, frames)
	select {
	case <-fired:
		t.Fatal("song end fired again after mixer stopped")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEngineStopRecordingWithoutRecorder(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)
	if err := e.StopRecording(); err != nil {
		t.Errorf("StopRecording with no recorder returned error: %v", err)
	}
	if got := e.RecordingFrames(); got != 0 {
		t.Errorf("RecordingFrames with no recorder = %d", got)
	}
}
