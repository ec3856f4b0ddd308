// Package splice reconstructs discrete take files from one continuous raw
// session recording by replaying the session's event log.
package splice

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/audiolibrelab/takedeck/internal/project"
	"github.com/audiolibrelab/takedeck/internal/session"
)

// Decoder reads an audio file into interleaved stereo float32 samples.
type Decoder interface {
	Decode(path string, sampleRate int) ([]float32, error)
}

// Encoder writes a slice of samples as a standalone take file.
type Encoder interface {
	Encode(path string, samples []float32, channels, sampleRate int) error
	Ext() string
}

// CompletedTake is a contiguous half-open frame range in the raw recording,
// recovered by replaying the event log in order.
type CompletedTake struct {
	TrackIndex int
	TrackName  string
	StartFrame int64
	EndFrame   int64
}

// CompletedTakes scans the event trail and returns the takes worth keeping.
// A take survives only if no back_to_start happened between its
// record_start and its song_end; any restart discards the whole take up to
// that song_end. Later restarts overwrite earlier ones, so only the most
// recent attempt's start frame is ever considered.
func CompletedTakes(events []session.Event) []CompletedTake {
	var takes []CompletedTake

	var (
		startFrame int64
		haveStart  bool
		hadRestart bool
		trackIndex int
		trackName  string
	)

	for _, ev := range events {
		switch ev.Kind {
		case session.EventRecordStart:
			startFrame = parseFrame(ev.Details)
			haveStart = true
			hadRestart = false
			trackIndex = ev.TrackIndex
			trackName = ev.TrackName

		case session.EventBackToStart:
			hadRestart = true
			startFrame = parseFrame(ev.Details)

		case session.EventSongEnd:
			end := parseFrame(ev.Details)
			if haveStart && !hadRestart {
				takes = append(takes, CompletedTake{
					TrackIndex: trackIndex,
					TrackName:  trackName,
					StartFrame: startFrame,
					EndFrame:   end,
				})
			}
			haveStart = false
			hadRestart = false
		}
	}
	return takes
}

// parseFrame extracts the frame= key from an event details string. A
// missing or malformed key yields 0; unknown keys are ignored.
func parseFrame(details string) int64 {
	for _, part := range strings.Split(details, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "frame="); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}

// Splice cuts the completed takes out of the raw recording, writes each as
// a standalone file under the project's completed takes directory, and
// records them as the setlist's preferred takes. It returns the saved take
// paths. Running it twice over the same log and recording produces
// byte-identical files.
func Splice(proj *project.Project, sessionDir, rawRecordingPath string, dec Decoder, enc Encoder, sampleRate int) ([]string, error) {
	logPath := filepath.Join(sessionDir, session.LogFilename)
	if _, err := os.Stat(logPath); err != nil {
		slog.Warn("No session log found, nothing to splice", "session_dir", sessionDir)
		return nil, nil
	}

	log, err := session.LoadLog(logPath)
	if err != nil {
		return nil, err
	}

	takes := CompletedTakes(log.Events)
	if len(takes) == 0 {
		slog.Info("Session log contains no completed takes", "session_dir", sessionDir)
		return nil, nil
	}

	raw, err := dec.Decode(rawRecordingPath, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("read raw recording: %w", err)
	}
	totalFrames := int64(len(raw) / 2)

	takesDir := proj.CompletedTakesDir()
	if err := os.MkdirAll(takesDir, 0755); err != nil {
		return nil, fmt.Errorf("create takes directory: %w", err)
	}

	var saved []string
	for _, take := range takes {
		start := take.StartFrame
		if start < 0 {
			start = 0
		}
		end := take.EndFrame
		if end > totalFrames {
			end = totalFrames
		}
		if end <= start {
			slog.Debug("Skipping empty take range",
				"track", take.TrackName, "start_frame", start, "end_frame", end)
			continue
		}

		segment := raw[start*2 : end*2]
		takeNum := NextTakeNumber(takesDir, take.TrackName, log.Instrument)
		filename := TakeFilename(take.TrackName, log.Instrument, takeNum, enc.Ext())
		outPath := filepath.Join(takesDir, filename)

		if err := enc.Encode(outPath, segment, 2, sampleRate); err != nil {
			return saved, fmt.Errorf("write take %s: %w", filename, err)
		}
		saved = append(saved, outPath)
		slog.Info("Spliced take", "track", take.TrackName, "take", takeNum,
			"frames", end-start, "file", filename)

		if take.TrackIndex >= 0 && take.TrackIndex < len(proj.Setlist.Tracks) {
			proj.Setlist.Tracks[take.TrackIndex].SetPreferredTake(log.Instrument, project.TakeInfo{
				Instrument: log.Instrument,
				TakeNumber: takeNum,
				Filename:   filename,
				Volume:     1.0,
			})
		}
	}

	if err := proj.SaveSetlist(); err != nil {
		return saved, err
	}
	return saved, nil
}
