// Package project manages a recording project's directory layout and its
// setlist document.
package project

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetlistFilename is the per-project setlist document.
const SetlistFilename = "setlist.yaml"

// TakeInfo is a reference to a completed take file for one instrument.
type TakeInfo struct {
	Instrument string  `yaml:"instrument"`
	TakeNumber int     `yaml:"take_number"`
	Filename   string  `yaml:"filename"`
	Volume     float64 `yaml:"volume"`
}

// TrackEntry is a single song in the setlist.
type TrackEntry struct {
	Name            string              `yaml:"name"`
	BackingTrack    string              `yaml:"backing_track"` // filename under backing_tracks/
	DurationSeconds float64             `yaml:"duration_seconds,omitempty"`
	Volume          int                 `yaml:"volume"`       // backing track playback volume, percent
	TakesVolume     int                 `yaml:"takes_volume"` // other instruments' takes volume, percent
	PreferredTakes  map[string]TakeInfo `yaml:"preferred_takes,omitempty"`
}

// SetPreferredTake records the canonical take for an instrument.
func (t *TrackEntry) SetPreferredTake(instrument string, take TakeInfo) {
	if t.PreferredTakes == nil {
		t.PreferredTakes = make(map[string]TakeInfo)
	}
	t.PreferredTakes[instrument] = take
}

// TakeForInstrument returns the preferred take for an instrument, if any.
func (t *TrackEntry) TakeForInstrument(instrument string) (TakeInfo, bool) {
	take, ok := t.PreferredTakes[instrument]
	return take, ok
}

// Setlist is the ordered list of tracks for a project.
type Setlist struct {
	Tracks       []*TrackEntry `yaml:"tracks"`
	BackupServer string        `yaml:"backup_server,omitempty"`
}

// TrackNames returns the track names in setlist order.
func (s *Setlist) TrackNames() []string {
	names := make([]string, len(s.Tracks))
	for i, t := range s.Tracks {
		names[i] = t.Name
	}
	return names
}

// AddTrack appends a track to the setlist.
func (s *Setlist) AddTrack(t *TrackEntry) {
	s.Tracks = append(s.Tracks, t)
}

// RemoveTrack deletes the track at index; out-of-range is a no-op.
func (s *Setlist) RemoveTrack(index int) {
	if index < 0 || index >= len(s.Tracks) {
		return
	}
	s.Tracks = append(s.Tracks[:index], s.Tracks[index+1:]...)
}

// MoveTrack reorders a track; out-of-range indices are a no-op.
func (s *Setlist) MoveTrack(from, to int) {
	if from < 0 || from >= len(s.Tracks) || to < 0 || to >= len(s.Tracks) {
		return
	}
	t := s.Tracks[from]
	s.Tracks = append(s.Tracks[:from], s.Tracks[from+1:]...)
	rest := append([]*TrackEntry{t}, s.Tracks[to:]...)
	s.Tracks = append(s.Tracks[:to], rest...)
}

// Project is a recording project: a setlist plus the directory structure
// holding backing tracks, completed takes, and session artifacts.
type Project struct {
	Path    string
	Name    string
	Setlist Setlist
}

// New wraps a project path without touching disk.
func New(path string) *Project {
	return &Project{Path: path, Name: filepath.Base(path)}
}

// BackingTracksDir returns the directory holding backing track files.
func (p *Project) BackingTracksDir() string { return filepath.Join(p.Path, "backing_tracks") }

// CompletedTakesDir returns the directory spliced takes are written to.
func (p *Project) CompletedTakesDir() string { return filepath.Join(p.Path, "completed_takes") }

// SessionsDir returns the directory session artifacts live under.
func (p *Project) SessionsDir() string { return filepath.Join(p.Path, "sessions") }

func (p *Project) setlistPath() string { return filepath.Join(p.Path, SetlistFilename) }

// Create builds the project directory structure and writes an empty
// setlist.
func (p *Project) Create() error {
	for _, dir := range []string{p.Path, p.BackingTracksDir(), p.CompletedTakesDir(), p.SessionsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create project directory: %w", err)
		}
	}
	return p.SaveSetlist()
}

// Open loads an existing project's setlist. A missing setlist file yields
// an empty setlist rather than an error.
func Open(path string) (*Project, error) {
	p := New(path)
	data, err := os.ReadFile(p.setlistPath())
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read setlist: %w", err)
	}
	if err := yaml.Unmarshal(data, &p.Setlist); err != nil {
		return nil, fmt.Errorf("parse setlist %s: %w", p.setlistPath(), err)
	}
	return p, nil
}

// SaveSetlist writes the setlist document.
func (p *Project) SaveSetlist() error {
	data, err := yaml.Marshal(&p.Setlist)
	if err != nil {
		return fmt.Errorf("marshal setlist: %w", err)
	}
	if err := os.WriteFile(p.setlistPath(), data, 0644); err != nil {
		return fmt.Errorf("write setlist: %w", err)
	}
	return nil
}

// AddBackingTrack copies an audio file into backing_tracks/ and appends a
// track entry for it.
func (p *Project) AddBackingTrack(sourcePath, trackName string) (*TrackEntry, error) {
	dest := filepath.Join(p.BackingTracksDir(), filepath.Base(sourcePath))
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := copyFile(sourcePath, dest); err != nil {
			return nil, fmt.Errorf("copy backing track: %w", err)
		}
	}

	name := trackName
	if name == "" {
		base := filepath.Base(sourcePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	entry := &TrackEntry{
		Name:         name,
		BackingTrack: filepath.Base(sourcePath),
		Volume:       100,
		TakesVolume:  100,
	}
	p.Setlist.AddTrack(entry)
	if err := p.SaveSetlist(); err != nil {
		return nil, err
	}
	return entry, nil
}

// BackingTrackPath resolves a track's backing file to an absolute path.
func (p *Project) BackingTrackPath(t *TrackEntry) string {
	return filepath.Join(p.BackingTracksDir(), t.BackingTrack)
}

// TakePath resolves a take filename to an absolute path.
func (p *Project) TakePath(filename string) string {
	return filepath.Join(p.CompletedTakesDir(), filename)
}

// List returns project directories under parentDir, identified by the
// presence of a setlist file.
func List(parentDir string) ([]string, error) {
	entries, err := os.ReadDir(parentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects directory: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(parentDir, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, SetlistFilename)); err == nil {
			projects = append(projects, candidate)
		}
	}
	sort.Strings(projects)
	return projects, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
