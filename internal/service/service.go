// Package service wires the audio engine, the session state machine, and
// the splicer into one recording workflow.
package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/audiolibrelab/takedeck/internal/audio"
	"github.com/audiolibrelab/takedeck/internal/codec"
	"github.com/audiolibrelab/takedeck/internal/config"
	"github.com/audiolibrelab/takedeck/internal/project"
	"github.com/audiolibrelab/takedeck/internal/session"
	"github.com/audiolibrelab/takedeck/internal/splice"
)

// RawRecordingFilename is the continuous whole-session capture the splicer
// cuts takes from.
const RawRecordingFilename = "raw_recording.wav"

// Service runs one recording session for one instrument over a project's
// setlist.
type Service struct {
	cfg        *config.Config
	proj       *project.Project
	instrument string

	engine     *audio.Engine
	sess       *session.Session
	sessionDir string
}

// New creates a session service. The engine and session are built on Start.
func New(cfg *config.Config, proj *project.Project, instrument string) *Service {
	return &Service{cfg: cfg, proj: proj, instrument: instrument}
}

// Start opens the audio stream, begins continuous raw recording, starts the
// session, and loads the first track's sources paused.
func (s *Service) Start() error {
	if len(s.proj.Setlist.Tracks) == 0 {
		return fmt.Errorf("project %s has no tracks in its setlist", s.proj.Name)
	}

	dirName := time.Now().Format("2006-01-02_15-04-05") + "_" + s.instrument
	s.sessionDir = filepath.Join(s.proj.SessionsDir(), dirName)
	if err := os.MkdirAll(s.sessionDir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	meta := session.Metadata{
		Instrument:     s.instrument,
		Musician:       s.cfg.Studio.Musician,
		Project:        s.proj.Name,
		StudioName:     s.cfg.Studio.Name,
		StudioLocation: s.cfg.Studio.Location,
	}
	if inst, ok := s.cfg.GetInstrument(s.instrument); ok && inst.Musician != "" {
		meta.Musician = inst.Musician
	}
	s.sess = session.New(meta, s.proj.Setlist.TrackNames())

	mixer := audio.NewMixer(s.cfg.Audio.SampleRate, codec.Decode)
	s.engine = audio.NewEngine(audio.Config{
		SampleRate:     s.cfg.Audio.SampleRate,
		BufferSize:     s.cfg.Audio.BufferSize,
		InputDevice:    s.cfg.Audio.InputDevice,
		OutputDevice:   s.cfg.Audio.OutputDevice,
		InputChannels:  s.cfg.Audio.InputChannels,
		OutputChannels: s.cfg.Audio.OutputChannels,
		MonitorChannel: s.cfg.Audio.MonitorChannel,
	}, mixer)
	s.engine.SetOnSongEnd(s.onSongFinished)

	if err := s.engine.Start(); err != nil {
		return err
	}
	if err := s.engine.StartRecording(filepath.Join(s.sessionDir, RawRecordingFilename)); err != nil {
		s.engine.Stop()
		return err
	}

	s.sess.Start()
	if err := s.loadCurrentTrack(); err != nil {
		slog.Warn("Failed to load first track", "error", err)
	}

	slog.Info("Session started", "project", s.proj.Name, "instrument", s.instrument,
		"session_dir", s.sessionDir)
	return nil
}

// loadCurrentTrack replaces the mixer's sources with the current track's
// backing track and the other instruments' preferred takes, paused.
func (s *Service) loadCurrentTrack() error {
	idx := s.sess.TrackIndex()
	if idx < 0 || idx >= len(s.proj.Setlist.Tracks) {
		return nil
	}
	track := s.proj.Setlist.Tracks[idx]

	mixer := s.engine.Mixer()
	mixer.SetPlaying(false)
	mixer.Clear()

	backingPath := s.proj.BackingTrackPath(track)
	if _, err := os.Stat(backingPath); err != nil {
		return fmt.Errorf("backing track missing for %q: %w", track.Name, err)
	}
	if err := mixer.AddSource("backing", backingPath, float64(track.Volume)/100.0, 0); err != nil {
		return err
	}

	trim := s.cfg.LatencyFrames()
	for inst, take := range track.PreferredTakes {
		if inst == s.instrument {
			continue // never monitor the instrument being re-recorded
		}
		takePath := s.proj.TakePath(take.Filename)
		if _, err := os.Stat(takePath); err != nil {
			slog.Warn("Preferred take missing, skipping", "instrument", inst, "file", take.Filename)
			continue
		}
		volume := take.Volume * float64(track.TakesVolume) / 100.0
		if err := mixer.AddSource("take-"+inst, takePath, volume, trim); err != nil {
			slog.Warn("Failed to load take", "instrument", inst, "error", err)
		}
	}

	slog.Info("Track loaded", "track", track.Name,
		"duration_seconds", mixer.DurationSeconds())
	return nil
}

// onSongFinished runs on the engine's notification goroutine when the
// backing track reaches its end.
func (s *Service) onSongFinished() {
	if s.sess.State() != session.StatePlaying {
		return
	}
	s.sess.SongEnd(s.engine.RecordingFrames())
	slog.Info("Song finished")
}

// Record starts the take for the current track: rewind, play, and mark the
// session live at the recorder's current write position.
func (s *Service) Record() {
	if s.sess.State() != session.StateWaiting {
		return
	}
	s.sess.StartRecording(s.engine.RecordingFrames())
	mixer := s.engine.Mixer()
	mixer.Reset()
	mixer.SetPlaying(true)
	slog.Info("Take started", "track", s.sess.CurrentTrack())
}

// BackToStart restarts the current take from the top of the song.
func (s *Service) BackToStart() {
	if s.sess.State() != session.StatePlaying {
		return
	}
	s.sess.BackToStart(s.engine.RecordingFrames())
	mixer := s.engine.Mixer()
	mixer.Reset()
	mixer.SetPlaying(true)
	slog.Info("Take restarted", "track", s.sess.CurrentTrack())
}

// SongEnd finishes the current take early.
func (s *Service) SongEnd() {
	if s.sess.State() != session.StatePlaying {
		return
	}
	s.sess.SongEnd(s.engine.RecordingFrames())
	s.engine.Mixer().SetPlaying(false)
	slog.Info("Take completed", "track", s.sess.CurrentTrack())
}

// NextTrack moves on to the next song and loads its sources.
func (s *Service) NextTrack() {
	if s.sess.State() != session.StateBetweenTracks {
		return
	}
	s.sess.NextTrack()
	if s.sess.State() == session.StateWaiting {
		if err := s.loadCurrentTrack(); err != nil {
			slog.Warn("Failed to load track", "error", err)
		}
	}
}

// End closes the session from any state.
func (s *Service) End() {
	s.sess.End()
}

// Finish tears the audio stack down, saves the session log, and splices
// completed takes out of the raw recording. Returns the saved take paths.
func (s *Service) Finish() ([]string, error) {
	s.engine.Mixer().SetPlaying(false)
	if err := s.engine.Stop(); err != nil {
		slog.Warn("Engine stop reported an error", "error", err)
	}
	s.sess.End()

	if err := s.sess.SaveLog(filepath.Join(s.sessionDir, session.LogFilename)); err != nil {
		return nil, err
	}

	enc, err := codec.ForFormat(s.cfg.Output.TakeFormat)
	if err != nil {
		return nil, err
	}
	rawPath := filepath.Join(s.sessionDir, RawRecordingFilename)
	saved, err := splice.Splice(s.proj, s.sessionDir, rawPath, decoderFunc(codec.Decode), enc, s.cfg.Audio.SampleRate)
	if err != nil {
		return saved, fmt.Errorf("splice takes: %w", err)
	}

	slog.Info("Session finished", "takes_saved", len(saved), "session_dir", s.sessionDir)
	return saved, nil
}

// State exposes the session state for the command loop.
func (s *Service) State() session.State { return s.sess.State() }

// CurrentTrack exposes the current track name for the command loop.
func (s *Service) CurrentTrack() string { return s.sess.CurrentTrack() }

// HasMoreTracks reports whether another track follows the current one.
func (s *Service) HasMoreTracks() bool { return s.sess.HasMoreTracks() }

// PeakLevel exposes the input meter level.
func (s *Service) PeakLevel() float64 { return s.engine.PeakLevel() }

// Elapsed exposes the session duration so far.
func (s *Service) Elapsed() time.Duration { return s.sess.Elapsed() }

// SessionDir returns the directory this session's artifacts live in.
func (s *Service) SessionDir() string { return s.sessionDir }

// decoderFunc adapts a decode function to the splicer's Decoder interface.
type decoderFunc func(path string, sampleRate int) ([]float32, error)

func (f decoderFunc) Decode(path string, sampleRate int) ([]float32, error) {
	return f(path, sampleRate)
}
