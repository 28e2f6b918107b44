// fusionator carries one file inside its own binary.
//
// A bare fusionator absorbs a payload (given with --payload or picked at
// random from the working directory) and becomes <payload>.exe. Running
// <payload>.exe splits it back into fusionator.exe and the payload.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"fusionator/internal/config"
	"fusionator/internal/db"
	"fusionator/internal/lifecycle"
	"fusionator/internal/picker"
	"fusionator/internal/storage"
	"fusionator/internal/store"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := log.New(os.Stdout, "fusionator: ", log.LstdFlags)
	if err := run(os.Args[1:], logger); err != nil {
		logger.Printf("error: %v", err)
	}
	// Every path exits 0; failures are reported on stdout only.
	os.Exit(0)
}

type flags struct {
	payload   string
	dir       string
	restore   string
	restoreTo string
	init      bool
	dryRun    bool
	version   bool
	help      bool
}

func parseFlags(args []string, cfg config.Config, out io.Writer) (flags, *pflag.FlagSet, error) {
	f := flags{dir: cfg.WorkDir, init: cfg.Init, dryRun: cfg.DryRun}
	fs := pflag.NewFlagSet("fusionator", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&f.payload, "payload", "p", "", "file to absorb instead of a random pick")
	fs.BoolVarP(&f.init, "init", "i", f.init, "write a bare fusionator.exe when this binary is not a container yet")
	fs.StringVar(&f.dir, "dir", f.dir, "directory to pick a payload from")
	fs.BoolVar(&f.dryRun, "dry-run", f.dryRun, "report the transition without touching any file")
	fs.StringVar(&f.restore, "restore", "", "archive key to restore instead of running a transition")
	fs.StringVar(&f.restoreTo, "restore-to", "", "path to write the restored artifact to")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.BoolVarP(&f.help, "help", "h", false, "show help")
	if err := fs.Parse(args); err != nil {
		return f, fs, err
	}
	if fs.NArg() > 0 {
		return f, fs, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if (f.restore == "") != (f.restoreTo == "") {
		return f, fs, errors.New("--restore and --restore-to must be given together")
	}
	return f, fs, nil
}

func run(args []string, logger *log.Logger) error {
	exe, err := selfPath()
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(".env", filepath.Join(filepath.Dir(exe), ".env")); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	f, fs, err := parseFlags(args, cfg, os.Stdout)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		fs.Usage()
		return err
	}
	if f.help {
		fs.Usage()
		return nil
	}
	if f.version {
		fmt.Fprintf(os.Stdout, "fusionator %s\n", version)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()
	}

	archive, err := storage.New(ctx, storage.Options{
		Backend:   cfg.ArchiveBackend,
		LocalRoot: cfg.ArchiveRoot,
		S3Bucket:  cfg.S3Bucket,
		S3Prefix:  cfg.S3Prefix,
		S3Client: storage.S3ClientOptions{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		},
	})
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	if f.restore != "" {
		return restore(ctx, archive, f, cfg, logger)
	}

	deps := lifecycle.Deps{
		Picker:  picker.New(f.dir),
		Archive: archive,
		Logger:  logger,
	}
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseTimeout)
		if err != nil {
			logger.Printf("warning: ledger disabled: %v", err)
		} else {
			defer pool.Close()
			st := store.New(pool)
			if err := st.EnsureSchema(ctx); err != nil {
				logger.Printf("warning: ledger disabled: %v", err)
			} else {
				deps.Recorder = st
			}
		}
	}

	res, err := lifecycle.New(deps).Run(ctx, exe, lifecycle.Options{
		Payload:     f.payload,
		Init:        f.init,
		DryRun:      f.dryRun,
		Exclude:     cfg.ExcludeSet(),
		PayloadMode: cfg.PayloadMode,
	})
	if err != nil {
		return err
	}
	logger.Printf("run=%s outcome=%s", res.RunID, res.Outcome)
	return nil
}

func restore(ctx context.Context, archive storage.Archive, f flags, cfg config.Config, logger *log.Logger) error {
	if archive == nil {
		return fmt.Errorf("restore %s: %w", f.restore, storage.ErrNoArchive)
	}
	n, err := storage.RestoreFile(ctx, archive, f.restore, f.restoreTo, cfg.PayloadMode)
	if err != nil {
		return err
	}
	logger.Printf("restored %s to %s (%d bytes)", f.restore, f.restoreTo, n)
	return nil
}

// selfPath is the file this process was started from.
func selfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return exe, nil
}
