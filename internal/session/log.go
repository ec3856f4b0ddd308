package session

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LogFilename is the session log artifact written into the session
// directory at session end.
const LogFilename = "session_log.yaml"

// Log is the serialized session record: studio metadata plus the ordered
// event trail. Written once when a session ends, read once by the splicer,
// never mutated afterwards.
type Log struct {
	Instrument     string  `yaml:"instrument"`
	Musician       string  `yaml:"musician,omitempty"`
	Project        string  `yaml:"project,omitempty"`
	StudioName     string  `yaml:"studio_name,omitempty"`
	StudioLocation string  `yaml:"studio_location,omitempty"`
	Events         []Event `yaml:"events"`
}

// Log builds the serializable record for the session.
func (s *Session) Log() *Log {
	return &Log{
		Instrument:     s.meta.Instrument,
		Musician:       s.meta.Musician,
		Project:        s.meta.Project,
		StudioName:     s.meta.StudioName,
		StudioLocation: s.meta.StudioLocation,
		Events:         s.Events(),
	}
}

// SaveLog writes the session log to path.
func (s *Session) SaveLog(path string) error {
	data, err := yaml.Marshal(s.Log())
	if err != nil {
		return fmt.Errorf("marshal session log: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	return nil
}

// LoadLog reads a session log back from path.
func LoadLog(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session log: %w", err)
	}
	var log Log
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parse session log %s: %w", path, err)
	}
	return &log, nil
}
