// Package presets maps vacation preset names to durations, so a vacation
// window can be set by name ("vacation <device> weekend") instead of spelling
// out both dates.
package presets

import (
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"slices"
	"strings"
	"time"
)

// DefaultPreset is the preset used when none is named.
const DefaultPreset = "week"

// Presets maps preset names to vacation durations. Names are lower-cased.
type Presets map[string]time.Duration

// Default returns the built-in presets.
func Default() Presets {
	return Presets{DefaultPreset: 7 * 24 * time.Hour}
}

// Load reads presets from r, on top of the built-in ones. A preset with a
// zero or negative duration is an error.
func Load(r io.Reader) (Presets, error) {
	var loaded map[string]time.Duration
	if err := yaml.NewDecoder(r).Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	p := Default()
	for name, duration := range loaded {
		if duration <= 0 {
			return nil, fmt.Errorf("preset %q: duration must be positive", name)
		}
		p[strings.ToLower(name)] = duration
	}
	return p, nil
}

// MaybeLoad loads presets from path. A missing file is not an error: the
// built-in presets are returned.
func MaybeLoad(path string) (Presets, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Get returns the duration of the named preset. Names are matched
// case-insensitively.
func (p Presets) Get(name string) (time.Duration, bool) {
	duration, ok := p[strings.ToLower(name)]
	return duration, ok
}

// Names returns all preset names, sorted.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
