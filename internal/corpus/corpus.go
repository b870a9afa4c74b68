// Package corpus matches recordings across the clean, noisy and enhanced
// directories of an evaluation set.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoRecordings is returned when no recording can be evaluated.
var ErrNoRecordings = errors.New("no recordings to evaluate")

// Mode selects how file names are matched across directories.
type Mode string

const (
	// ModeIntersect keeps names present in clean, noisy and every enhanced dir.
	ModeIntersect Mode = "intersect"
	// ModeReference walks the clean dir, skips names without a noisy file
	// and leaves missing enhanced variants empty.
	ModeReference Mode = "reference"
)

// ParseMode validates a mode name.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeIntersect, ModeReference:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (use %q or %q)", raw, ModeIntersect, ModeReference)
	}
}

// Layout names the directories of an evaluation set.
type Layout struct {
	CleanDir     string
	NoisyDir     string
	EnhancedDirs []string
	// Extensions lists accepted suffixes with a leading dot, any case.
	Extensions []string
}

// Recording is one clean file with its degraded and enhanced counterparts.
// Enhanced has one entry per enhanced dir; missing variants are "".
type Recording struct {
	Name     string
	Clean    string
	Noisy    string
	Enhanced []string
}

// Variants returns the number of enhanced files actually present.
func (r Recording) Variants() int {
	n := 0
	for _, p := range r.Enhanced {
		if p != "" {
			n++
		}
	}
	return n
}

// ListNames returns the sorted base names of regular files in dir whose
// extension is in exts.
func ListNames(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		accept[strings.ToLower(e)] = true
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if accept[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Plan lists the recordings to evaluate. The returned warnings describe
// skipped names and missing directories.
func Plan(layout Layout, mode Mode) ([]Recording, []string, error) {
	if err := requireDir(layout.CleanDir, "clean"); err != nil {
		return nil, nil, err
	}
	if err := requireDir(layout.NoisyDir, "noisy"); err != nil {
		return nil, nil, err
	}

	switch mode {
	case ModeIntersect:
		return planIntersect(layout)
	case ModeReference:
		return planReference(layout)
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func planIntersect(layout Layout) ([]Recording, []string, error) {
	if len(layout.EnhancedDirs) == 0 {
		return nil, nil, fmt.Errorf("intersect mode needs at least one enhanced dir")
	}
	dirs := append([]string{layout.CleanDir, layout.NoisyDir}, layout.EnhancedDirs...)
	counts := make(map[string]int)
	for i, dir := range dirs {
		if i >= 2 {
			if err := requireDir(dir, "enhanced"); err != nil {
				return nil, nil, err
			}
		}
		names, err := ListNames(dir, layout.Extensions)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range names {
			counts[n]++
		}
	}

	var common []string
	for name, c := range counts {
		if c == len(dirs) {
			common = append(common, name)
		}
	}
	if len(common) == 0 {
		return nil, nil, fmt.Errorf("%w: no file common to clean, noisy and enhanced dirs", ErrNoRecordings)
	}
	sort.Strings(common)

	recs := make([]Recording, 0, len(common))
	for _, name := range common {
		rec := Recording{
			Name:     name,
			Clean:    filepath.Join(layout.CleanDir, name),
			Noisy:    filepath.Join(layout.NoisyDir, name),
			Enhanced: make([]string, len(layout.EnhancedDirs)),
		}
		for i, dir := range layout.EnhancedDirs {
			rec.Enhanced[i] = filepath.Join(dir, name)
		}
		recs = append(recs, rec)
	}
	return recs, nil, nil
}

func planReference(layout Layout) ([]Recording, []string, error) {
	var warnings []string
	present := make([]bool, len(layout.EnhancedDirs))
	for i, dir := range layout.EnhancedDirs {
		if isDir(dir) {
			present[i] = true
		} else {
			warnings = append(warnings, fmt.Sprintf("enhanced dir not found: %s", dir))
		}
	}

	names, err := ListNames(layout.CleanDir, layout.Extensions)
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		return nil, warnings, fmt.Errorf("%w: no audio file in %s", ErrNoRecordings, layout.CleanDir)
	}

	recs := make([]Recording, 0, len(names))
	for _, name := range names {
		noisy := filepath.Join(layout.NoisyDir, name)
		if !isFile(noisy) {
			warnings = append(warnings, fmt.Sprintf("missing noisy file for %s, skipped", name))
			continue
		}
		rec := Recording{
			Name:     name,
			Clean:    filepath.Join(layout.CleanDir, name),
			Noisy:    noisy,
			Enhanced: make([]string, len(layout.EnhancedDirs)),
		}
		for i, dir := range layout.EnhancedDirs {
			if !present[i] {
				continue
			}
			if p := filepath.Join(dir, name); isFile(p) {
				rec.Enhanced[i] = p
			}
		}
		if len(layout.EnhancedDirs) > 0 && rec.Variants() == 0 {
			warnings = append(warnings, fmt.Sprintf("no enhanced file for %s", name))
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, warnings, fmt.Errorf("%w: every clean file lacks a noisy counterpart", ErrNoRecordings)
	}
	return recs, warnings, nil
}

func requireDir(dir string, role string) error {
	if !isDir(dir) {
		return fmt.Errorf("%s dir not found: %s", role, dir)
	}
	return nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
