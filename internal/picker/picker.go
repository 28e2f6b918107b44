// Package picker chooses a random payload candidate from a directory.
package picker

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MaxNameLen is the longest base name considered a candidate.
const MaxNameLen = 255

type Picker struct {
	dir string
	rng *rand.Rand
}

// New returns a picker over dir. The random source is seeded once here
// and reused by every Pick.
func New(dir string) *Picker {
	seed := uint64(time.Now().UnixNano())
	return NewWithSource(dir, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func NewWithSource(dir string, src rand.Source) *Picker {
	if dir == "" {
		dir = "."
	}
	return &Picker{dir: dir, rng: rand.New(src)}
}

func (p *Picker) Dir() string { return p.dir }

// Candidates lists regular files in the directory whose base names are not
// in exclude, sorted by name.
func (p *Picker) Candidates(exclude map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p.dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if len(name) > MaxNameLen {
			continue
		}
		if _, skip := exclude[name]; skip {
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Pick returns the path of a uniformly chosen candidate, or false when
// there is none.
func (p *Picker) Pick(exclude map[string]struct{}) (string, bool, error) {
	names, err := p.Candidates(exclude)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return filepath.Join(p.dir, names[p.rng.IntN(len(names))]), true, nil
}
