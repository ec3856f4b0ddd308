package codec

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// readWAV decodes a WAV file to interleaved stereo float32 samples at the
// file's own sample rate.
func readWAV(path string) (samples []float32, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("no channels in WAV file: %s", path)
	}
	frames := len(buf.Data) / channels

	samples = make([]float32, frames*2)
	switch channels {
	case 1:
		for i := 0; i < frames; i++ {
			v := float32(buf.Data[i]) / scale
			samples[2*i] = v
			samples[2*i+1] = v
		}
	default:
		// Keep the first two channels, discard the rest.
		for i := 0; i < frames; i++ {
			samples[2*i] = float32(buf.Data[i*channels]) / scale
			samples[2*i+1] = float32(buf.Data[i*channels+1]) / scale
		}
	}

	return samples, int(dec.SampleRate), nil
}

// writeWAV writes interleaved float32 samples as 16-bit PCM.
func writeWAV(path string, samples []float32, channels, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = sampleToInt16(s)
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

// wavDuration reads just the header to compute the duration in seconds.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("read duration of %s: %w", path, err)
	}
	return d.Seconds(), nil
}

// sampleToInt16 converts a float sample to a clamped 16-bit value.
func sampleToInt16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
