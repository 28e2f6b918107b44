package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for one lifecycle run.
type Config struct {
	WorkDir     string
	Init        bool
	DryRun      bool
	Exclude     []string
	PayloadMode fs.FileMode

	// Archive of artifacts removed by a transition.
	ArchiveBackend    string
	ArchiveRoot       string
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Ledger
	DatabaseURL      string
	DatabaseTimeout  time.Duration
	OperationTimeout time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		WorkDir:           getenv("FUSIONATOR_DIR", "."),
		Init:              getenvBool("FUSIONATOR_INIT", false),
		DryRun:            getenvBool("FUSIONATOR_DRY_RUN", false),
		Exclude:           parseList(getenv("FUSIONATOR_EXCLUDE", ".env")),
		PayloadMode:       getenvMode("FUSIONATOR_PAYLOAD_MODE", 0o600),
		ArchiveBackend:    strings.ToLower(getenv("FUSIONATOR_ARCHIVE", "none")),
		ArchiveRoot:       getenv("FUSIONATOR_ARCHIVE_ROOT", "./.fusionator/archive"),
		S3Bucket:          getenv("FUSIONATOR_S3_BUCKET", ""),
		S3Prefix:          getenv("FUSIONATOR_S3_PREFIX", ""),
		S3Region:          getenv("FUSIONATOR_S3_REGION", ""),
		S3Endpoint:        getenv("FUSIONATOR_S3_ENDPOINT", ""),
		S3AccessKeyID:     getenv("FUSIONATOR_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getenv("FUSIONATOR_S3_SECRET_ACCESS_KEY", ""),
		DatabaseURL:       getenv("FUSIONATOR_DATABASE_URL", ""),
		DatabaseTimeout:   getenvDuration("FUSIONATOR_DATABASE_TIMEOUT", 5*time.Second),
		OperationTimeout:  getenvDuration("FUSIONATOR_OPERATION_TIMEOUT", 2*time.Minute),
	}

	switch cfg.ArchiveBackend {
	case "none", "local", "s3":
	default:
		return Config{}, fmt.Errorf("FUSIONATOR_ARCHIVE must be none, local or s3, got %q", cfg.ArchiveBackend)
	}
	if cfg.ArchiveBackend == "local" && strings.TrimSpace(cfg.ArchiveRoot) == "" {
		return Config{}, fmt.Errorf("FUSIONATOR_ARCHIVE_ROOT cannot be empty")
	}
	if cfg.ArchiveBackend == "s3" && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("FUSIONATOR_S3_BUCKET cannot be empty when FUSIONATOR_ARCHIVE=s3")
	}
	if cfg.PayloadMode&0o600 != 0o600 {
		return Config{}, fmt.Errorf("FUSIONATOR_PAYLOAD_MODE %#o must keep owner read and write", cfg.PayloadMode)
	}
	if cfg.DatabaseTimeout < 0 {
		cfg.DatabaseTimeout = 0
	}
	if cfg.OperationTimeout < 0 {
		cfg.OperationTimeout = 0
	}

	return cfg, nil
}

// ExcludeSet returns Exclude as a set of base names.
func (c Config) ExcludeSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.Exclude))
	for _, name := range c.Exclude {
		out[name] = struct{}{}
	}
	return out
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvMode parses an octal permission such as "0600" or "640".
func getenvMode(key string, fallback fs.FileMode) fs.FileMode {
	v := strings.TrimPrefix(strings.TrimSpace(os.Getenv(key)), "0o")
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(v, 8, 32)
	if err != nil || parsed > 0o777 {
		return fallback
	}
	return fs.FileMode(parsed)
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseList(raw string) []string {
	replacer := strings.NewReplacer("\n", ",", ";", ",")
	normalized := replacer.Replace(raw)
	parts := strings.Split(normalized, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return dedupe(out)
}

// dedupe keeps the first occurrence of each name. File names are case
// sensitive and compared verbatim.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
