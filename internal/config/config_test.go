package config

import (
	"io/fs"
	"reflect"
	"testing"
	"time"
)

func TestParseList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "multi delimiters and dedupe",
			raw:  " a.txt ; B.txt,\na.txt ,b.txt",
			want: []string{"a.txt", "B.txt", "b.txt"},
		},
		{
			name: "empty",
			raw:  " , ; \n ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseList(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseList() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FUSIONATOR_DIR", "")
	t.Setenv("FUSIONATOR_ARCHIVE", "")
	t.Setenv("FUSIONATOR_PAYLOAD_MODE", "")
	t.Setenv("FUSIONATOR_DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkDir != "." {
		t.Fatalf("WorkDir = %q, want %q", cfg.WorkDir, ".")
	}
	if cfg.ArchiveBackend != "none" {
		t.Fatalf("ArchiveBackend = %q, want none", cfg.ArchiveBackend)
	}
	if cfg.PayloadMode != 0o600 {
		t.Fatalf("PayloadMode = %#o, want 0600", cfg.PayloadMode)
	}
	if cfg.DatabaseTimeout != 5*time.Second {
		t.Fatalf("DatabaseTimeout = %s, want 5s", cfg.DatabaseTimeout)
	}
	if cfg.Init || cfg.DryRun {
		t.Fatalf("Init/DryRun = %v/%v, want false/false", cfg.Init, cfg.DryRun)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FUSIONATOR_DIR", "/srv/drop")
	t.Setenv("FUSIONATOR_INIT", "yes")
	t.Setenv("FUSIONATOR_DRY_RUN", "1")
	t.Setenv("FUSIONATOR_EXCLUDE", ".env;README.md")
	t.Setenv("FUSIONATOR_PAYLOAD_MODE", "0640")
	t.Setenv("FUSIONATOR_ARCHIVE", "S3")
	t.Setenv("FUSIONATOR_S3_BUCKET", "artifacts")
	t.Setenv("FUSIONATOR_DATABASE_TIMEOUT", "bogus")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkDir != "/srv/drop" || !cfg.Init || !cfg.DryRun {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.PayloadMode != fs.FileMode(0o640) {
		t.Fatalf("PayloadMode = %#o, want 0640", cfg.PayloadMode)
	}
	if cfg.ArchiveBackend != "s3" || cfg.S3Bucket != "artifacts" {
		t.Fatalf("archive = %q/%q, want s3/artifacts", cfg.ArchiveBackend, cfg.S3Bucket)
	}
	if cfg.DatabaseTimeout != 5*time.Second {
		t.Fatalf("DatabaseTimeout = %s, want fallback 5s", cfg.DatabaseTimeout)
	}
	want := map[string]struct{}{".env": {}, "README.md": {}}
	if got := cfg.ExcludeSet(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ExcludeSet() = %#v, want %#v", got, want)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown archive", env: map[string]string{"FUSIONATOR_ARCHIVE": "ftp"}},
		{name: "s3 without bucket", env: map[string]string{"FUSIONATOR_ARCHIVE": "s3", "FUSIONATOR_S3_BUCKET": ""}},
		{name: "payload mode without owner rw", env: map[string]string{"FUSIONATOR_ARCHIVE": "none", "FUSIONATOR_PAYLOAD_MODE": "0400"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want non-nil")
			}
		})
	}
}

func TestGetenvMode(t *testing.T) {
	tests := []struct {
		raw  string
		want fs.FileMode
	}{
		{raw: "", want: 0o600},
		{raw: "0644", want: 0o644},
		{raw: "0o700", want: 0o700},
		{raw: "600", want: 0o600},
		{raw: "999", want: 0o600},
		{raw: "7777", want: 0o600},
	}
	for _, tt := range tests {
		t.Setenv("FUSIONATOR_TEST_MODE", tt.raw)
		if got := getenvMode("FUSIONATOR_TEST_MODE", 0o600); got != tt.want {
			t.Fatalf("getenvMode(%q) = %#o, want %#o", tt.raw, got, tt.want)
		}
	}
}
