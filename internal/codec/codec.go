// Package codec decodes and encodes the audio files the rest of the system
// works on. WAV is handled natively; compressed formats (MP3, M4A, FLAC,
// OGG) are delegated to an ffmpeg subprocess.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ffmpegExtensions lists suffixes that always go through ffmpeg.
var ffmpegExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".flac": true,
}

// Decode reads an audio file and returns interleaved stereo float32 samples
// at the requested sample rate. Mono input is duplicated to both channels.
func Decode(path string, sampleRate int) ([]float32, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ffmpegExtensions[ext] {
		return decodeFFmpeg(path, sampleRate)
	}

	samples, rate, err := readWAV(path)
	if err != nil {
		return nil, err
	}
	if sampleRate != 0 && rate != sampleRate {
		// Let ffmpeg resample rather than doing it badly here.
		return decodeFFmpeg(path, sampleRate)
	}
	return samples, nil
}

// Duration returns the length of an audio file in seconds.
func Duration(path string) (float64, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ffmpegExtensions[ext] {
		return probeDuration(path)
	}
	return wavDuration(path)
}

// Encoder writes a block of samples as a standalone audio file.
type Encoder interface {
	Encode(path string, samples []float32, channels, sampleRate int) error
	Ext() string
}

// WAVEncoder writes 16-bit PCM WAV files.
type WAVEncoder struct{}

func (WAVEncoder) Encode(path string, samples []float32, channels, sampleRate int) error {
	return writeWAV(path, samples, channels, sampleRate)
}

func (WAVEncoder) Ext() string { return "wav" }

// FLACEncoder writes FLAC files through ffmpeg.
type FLACEncoder struct{}

func (FLACEncoder) Encode(path string, samples []float32, channels, sampleRate int) error {
	return encodeFFmpeg(path, samples, channels, sampleRate, "flac")
}

func (FLACEncoder) Ext() string { return "flac" }

// ForFormat returns the encoder for a configured take format.
func ForFormat(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "flac":
		return FLACEncoder{}, nil
	case "wav":
		return WAVEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported take format: %s", format)
	}
}
