package usecase

import (
	"fmt"
	"path/filepath"
	"regexp"

	"ScoutSync/internal/domain/models"
)

// ModeRule selects the reconciliation mode of files whose name matches Pattern.
type ModeRule struct {
	Pattern *regexp.Regexp
	Mode    models.Mode
}

// StreamRule maps a daily file name to the code of its metric stream.
type StreamRule struct {
	Pattern *regexp.Regexp
	Stream  string
}

// Dispatcher routes file names through ordered rule tables. First match wins.
type Dispatcher struct {
	modes   []ModeRule
	streams []StreamRule
}

func NewDispatcher(modes []ModeRule, streams []StreamRule) *Dispatcher {
	return &Dispatcher{modes: modes, streams: streams}
}

// CompileDispatcher builds a dispatcher from (pattern, value) pairs.
func CompileDispatcher(modes, streams [][2]string) (*Dispatcher, error) {
	d := &Dispatcher{}
	for _, m := range modes {
		re, err := regexp.Compile(m[0])
		if err != nil {
			return nil, fmt.Errorf("mode pattern %q: %w", m[0], err)
		}
		mode := models.Mode(m[1])
		if mode != models.ModeDaily && mode != models.ModeYearly {
			return nil, fmt.Errorf("mode pattern %q: unknown mode %q", m[0], m[1])
		}
		d.modes = append(d.modes, ModeRule{Pattern: re, Mode: mode})
	}
	for _, s := range streams {
		re, err := regexp.Compile(s[0])
		if err != nil {
			return nil, fmt.Errorf("stream pattern %q: %w", s[0], err)
		}
		d.streams = append(d.streams, StreamRule{Pattern: re, Stream: s[1]})
	}
	return d, nil
}

// DefaultDispatcher returns the built-in tables: MC/Vol/PX files are daily,
// MENA_Fundamentals files are yearly.
func DefaultDispatcher() *Dispatcher {
	return NewDispatcher(
		[]ModeRule{
			{Pattern: regexp.MustCompile(`(?i)(MC|Vol|PX)`), Mode: models.ModeDaily},
			{Pattern: regexp.MustCompile(`MENA_Fundamentals`), Mode: models.ModeYearly},
		},
		[]StreamRule{
			{Pattern: regexp.MustCompile(`MC_USD`), Stream: "MC"},
			{Pattern: regexp.MustCompile(`PX_USD`), Stream: "PX"},
			{Pattern: regexp.MustCompile(`Vol_USD`), Stream: "Volume"},
		},
	)
}

// Mode returns the mode of the file at path, matched on its base name.
func (d *Dispatcher) Mode(path string) (models.Mode, bool) {
	name := filepath.Base(path)
	for _, r := range d.modes {
		if r.Pattern.MatchString(name) {
			return r.Mode, true
		}
	}
	return "", false
}

// Stream returns the stream code of a daily file.
func (d *Dispatcher) Stream(path string) (string, bool) {
	name := filepath.Base(path)
	for _, r := range d.streams {
		if r.Pattern.MatchString(name) {
			return r.Stream, true
		}
	}
	return "", false
}
