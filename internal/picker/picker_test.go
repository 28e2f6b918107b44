package picker

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestCandidates_SkipsExcludedAndNonRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "b.txt", "a.txt", "fusionator.exe", "self")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "a.txt"), filepath.Join(dir, "link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	p := New(dir)
	got, err := p.Candidates(map[string]struct{}{"self": {}, "fusionator.exe": {}})
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	want := []string{"a.txt", "b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %#v, want %#v", got, want)
	}
}

func TestPick_Empty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "self")

	path, ok, err := New(dir).Pick(map[string]struct{}{"self": {}})
	if err != nil || ok || path != "" {
		t.Fatalf("Pick() = %q, %v, %v, want none", path, ok, err)
	}
}

func TestPick_MissingDir(t *testing.T) {
	t.Parallel()

	if _, _, err := New(filepath.Join(t.TempDir(), "missing")).Pick(nil); err == nil {
		t.Fatalf("Pick() error = nil, want non-nil")
	}
}

func TestPick_CoversAllCandidatesWithOneSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "a", "b", "c")
	p := NewWithSource(dir, rand.NewPCG(1, 2))

	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		path, ok, err := p.Pick(nil)
		if err != nil || !ok {
			t.Fatalf("Pick() = %q, %v, %v", path, ok, err)
		}
		if filepath.Dir(path) != dir {
			t.Fatalf("Pick() = %q, want a path in %s", path, dir)
		}
		seen[filepath.Base(path)]++
	}
	for _, name := range []string{"a", "b", "c"} {
		if seen[name] == 0 {
			t.Fatalf("candidate %q never picked: %v", name, seen)
		}
	}
}
