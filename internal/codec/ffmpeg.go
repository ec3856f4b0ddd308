package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// decodeFFmpeg decodes any audio file to interleaved stereo float32 at the
// target sample rate by piping raw PCM out of an ffmpeg subprocess.
func decodeFFmpeg(path string, sampleRate int) ([]float32, error) {
	if sampleRate == 0 {
		sampleRate = 48000
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "2",
		"-v", "quiet",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Decoding via ffmpeg", "path", path, "sample_rate", sampleRate)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed to decode %s: %w: %s", path, err, stderr.String())
	}

	raw := stdout.Bytes()
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}

// encodeFFmpeg writes interleaved float32 samples through ffmpeg using the
// given output codec.
func encodeFFmpeg(path string, samples []float32, channels, sampleRate int, acodec string) error {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}

	cmd := exec.Command("ffmpeg",
		"-f", "f32le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "-",
		"-c:a", acodec,
		"-v", "quiet",
		"-y",
		path,
	)
	cmd.Stdin = bytes.NewReader(raw)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("Encoding via ffmpeg", "path", path, "codec", acodec, "frames", len(samples)/channels)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed to encode %s: %w: %s", path, err, stderr.String())
	}
	return nil
}

// probeDuration asks ffprobe for the duration of a compressed file.
func probeDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-i", path,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0",
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned no duration for %s: %w", path, err)
	}
	return d, nil
}
