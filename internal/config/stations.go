package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ovdeclare/internal/core"
)

// Stations is the YAML form of the station lists used to flag journeys.
//
//	checkpoints:
//	  - Schiphol Airport
//	trip_end_boundaries:
//	  - Amsterdam Centraal
//	trip_start_boundaries:
//	  - Utrecht Centraal
type Stations struct {
	Checkpoints         []string `yaml:"checkpoints"`
	TripEndBoundaries   []string `yaml:"trip_end_boundaries"`
	TripStartBoundaries []string `yaml:"trip_start_boundaries"`
}

// LoadStations reads station lists from a YAML file.
// Names are trimmed and blank entries dropped; names are otherwise matched exactly.
func LoadStations(path string) (core.Stations, error) {
	if path == "" {
		return core.Stations{}, errors.New("stations path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Stations{}, fmt.Errorf("read stations file: %w", err)
	}
	return ParseStations(data)
}

// ParseStations decodes station lists from YAML.
func ParseStations(data []byte) (core.Stations, error) {
	var s Stations
	if err := yaml.Unmarshal(data, &s); err != nil {
		return core.Stations{}, fmt.Errorf("decode stations: %w", err)
	}
	st := core.Stations{
		Checkpoints:         clean(s.Checkpoints),
		TripEndBoundaries:   clean(s.TripEndBoundaries),
		TripStartBoundaries: clean(s.TripStartBoundaries),
	}
	if len(st.Checkpoints) == 0 {
		return core.Stations{}, errors.New("stations: at least one checkpoint is required")
	}
	return st, nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
