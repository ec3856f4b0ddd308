// Package session tracks one recording attempt: a guarded state machine and
// the timestamped event trail the splicer replays afterwards.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the session's position in its lifecycle.
type State string

const (
	StateIdle          State = "IDLE"
	StateWaiting       State = "WAITING"        // waiting for the performer to start a take
	StatePlaying       State = "PLAYING"        // backing track rolling, take in progress
	StateBetweenTracks State = "BETWEEN_TRACKS" // song ended, waiting for next/end
	StateEnded         State = "ENDED"
)

// EventKind identifies a session log entry.
type EventKind string

const (
	EventSessionStart EventKind = "session_start"
	EventRecordStart  EventKind = "record_start"
	EventBackToStart  EventKind = "back_to_start"
	EventSongEnd      EventKind = "song_end"
	EventNextTrack    EventKind = "next_track"
	EventSessionEnd   EventKind = "session_end"
)

// Event is one append-only entry in the session log. Details is a small
// "key=value, key=value" string; frame= is the only key consumers parse.
type Event struct {
	Timestamp  float64   `yaml:"timestamp"` // seconds since session start, monotonic
	WallTime   string    `yaml:"wall_time"`
	Kind       EventKind `yaml:"event"`
	TrackIndex int       `yaml:"track_index"`
	TrackName  string    `yaml:"track_name"`
	Details    string    `yaml:"details,omitempty"`
}

// Metadata describes the studio context a session was recorded in.
type Metadata struct {
	Instrument     string
	Musician       string
	Project        string
	StudioName     string
	StudioLocation string
}

// Session is the finite state machine governing which take is live. It never
// touches audio buffers, only the recording-frame offsets the engine hands
// it. Transitions whose guard state does not match are silent no-ops, so
// racing triggers (key repeat, the engine's song-end timer) are harmless.
type Session struct {
	meta   Metadata
	tracks []string

	mu         sync.Mutex
	state      State
	trackIndex int
	events     []Event
	startedAt  time.Time
	startFrame int64
	hadRestart bool

	// OnStateChange, when set, is invoked after every transition with the
	// new state. Set it before Start; it runs with the session lock held.
	OnStateChange func(State)
}

// New creates an idle session over the given ordered track names.
func New(meta Metadata, tracks []string) *Session {
	return &Session{
		meta:   meta,
		tracks: tracks,
		state:  StateIdle,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TrackIndex returns the index of the track currently in progress.
func (s *Session) TrackIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackIndex
}

// CurrentTrack returns the name of the current track, or "" past the end.
func (s *Session) CurrentTrack() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackNameLocked()
}

func (s *Session) trackNameLocked() string {
	if s.trackIndex >= 0 && s.trackIndex < len(s.tracks) {
		return s.tracks[s.trackIndex]
	}
	return ""
}

// HasMoreTracks reports whether another track follows the current one.
func (s *Session) HasMoreTracks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackIndex < len(s.tracks)-1
}

// Elapsed returns time since Start, zero before it.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Events returns a copy of the event trail so far.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Session) logLocked(kind EventKind, details string) {
	ev := Event{
		WallTime:   time.Now().Format("2006-01-02 15:04:05"),
		Kind:       kind,
		TrackIndex: s.trackIndex,
		TrackName:  s.trackNameLocked(),
		Details:    details,
	}
	if !s.startedAt.IsZero() {
		ev.Timestamp = time.Since(s.startedAt).Seconds()
	}
	s.events = append(s.events, ev)
	slog.Debug("Session event", "event", kind, "track", ev.TrackName, "details", details)
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	if s.OnStateChange != nil {
		s.OnStateChange(state)
	}
}

// Start begins the session. IDLE → WAITING.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return
	}
	s.startedAt = time.Now()
	s.trackIndex = 0
	s.logLocked(EventSessionStart, "instrument="+s.meta.Instrument)
	s.setStateLocked(StateWaiting)
}

// StartRecording marks the take as live at the given recording-frame
// offset. WAITING → PLAYING.
func (s *Session) StartRecording(frame int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateWaiting {
		return
	}
	s.startFrame = frame
	s.hadRestart = false
	s.logLocked(EventRecordStart, fmt.Sprintf("frame=%d", frame))
	s.setStateLocked(StatePlaying)
}

// BackToStart restarts the take from the beginning. Stays in PLAYING; the
// restart flag makes the splicer discard the pre-restart segment.
func (s *Session) BackToStart(frame int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	s.hadRestart = true
	s.startFrame = frame
	s.logLocked(EventBackToStart, fmt.Sprintf("frame=%d", frame))
	s.setStateLocked(StatePlaying)
}

// SongEnd closes the current take, whether the performer ended it or the
// backing track ran out. PLAYING → BETWEEN_TRACKS.
func (s *Session) SongEnd(frame int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	s.logLocked(EventSongEnd, fmt.Sprintf("frame=%d, had_restart=%t", frame, s.hadRestart))
	s.setStateLocked(StateBetweenTracks)
}

// NextTrack advances to the next track, or ends the session when the
// setlist is exhausted. BETWEEN_TRACKS → WAITING | ENDED.
func (s *Session) NextTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBetweenTracks {
		return
	}
	s.trackIndex++
	if s.trackIndex >= len(s.tracks) {
		s.endLocked()
		return
	}
	s.logLocked(EventNextTrack, "")
	s.setStateLocked(StateWaiting)
}

// End closes the session from any state. Terminal.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

func (s *Session) endLocked() {
	s.logLocked(EventSessionEnd, "")
	s.setStateLocked(StateEnded)
}
