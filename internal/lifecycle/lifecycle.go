// Package lifecycle drives one run of the tool: it inspects the running
// artifact and splits it, fuses a payload into it, or initializes it, then
// archives, records and removes whatever the transition made redundant.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"fusionator/internal/container"
	"fusionator/internal/storage"
	"fusionator/internal/store"

	"github.com/google/uuid"
)

var (
	ErrPayloadIsSelf     = errors.New("payload is the running artifact")
	ErrPayloadIsToolName = errors.New("payload would split back onto the restored host")
)

type Outcome string

const (
	OutcomeIdle         Outcome = "idle"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeInitialized  Outcome = "initialized"
	OutcomeFused        Outcome = "fused"
	OutcomeSplit        Outcome = "split"
)

// PayloadPicker returns a candidate payload path from Dir, or false when
// there is none.
type PayloadPicker interface {
	Dir() string
	Pick(exclude map[string]struct{}) (string, bool, error)
}

// Recorder persists transitions. *store.Store implements it.
type Recorder interface {
	RecordEvent(ctx context.Context, ev store.Event) (store.Event, error)
}

type Deps struct {
	Picker   PayloadPicker
	Archive  storage.Archive // nil disables archiving
	Recorder Recorder        // nil disables the ledger
	Logger   *log.Logger
}

type Options struct {
	// Payload is an explicit payload path; empty means ask the picker.
	Payload     string
	Init        bool
	DryRun      bool
	Exclude     map[string]struct{}
	PayloadMode fs.FileMode
}

type Result struct {
	RunID    uuid.UUID
	Outcome  Outcome
	Status   container.Status
	Meta     container.Meta
	Artifact string
	Host     string
	Payload  string
	Archived []storage.Object
	DryRun   bool
}

type Orchestrator struct {
	picker   PayloadPicker
	archive  storage.Archive
	recorder Recorder
	logger   *log.Logger
}

func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Orchestrator{
		picker:   deps.Picker,
		archive:  deps.Archive,
		recorder: deps.Recorder,
		logger:   logger,
	}
}

// Run performs at most one transition for the artifact at selfPath.
func (o *Orchestrator) Run(ctx context.Context, selfPath string, opts Options) (Result, error) {
	res := Result{RunID: uuid.New(), DryRun: opts.DryRun}

	meta, err := container.Inspect(selfPath)
	if err != nil && !errors.Is(err, container.ErrTooShort) {
		return res, err
	}
	res.Meta = meta
	res.Status = meta.Status()
	o.logger.Printf("run=%s artifact=%s status=%s size=%d start=%d end=%d",
		res.RunID, selfPath, res.Status, meta.Size, meta.Start, meta.End)

	switch res.Status {
	case container.Fused:
		return o.split(ctx, selfPath, opts, res)
	case container.Bare:
		return o.fuse(ctx, selfPath, opts, res)
	default:
		if opts.Init {
			return o.initialize(ctx, selfPath, opts, res)
		}
		res.Outcome = OutcomeUnrecognized
		o.logger.Printf("run=%s %s is not a fusionator container; run with --init to create %s",
			res.RunID, selfPath, container.HostName(selfPath))
		return res, nil
	}
}

func (o *Orchestrator) split(ctx context.Context, selfPath string, opts Options, res Result) (Result, error) {
	payloadPath, err := container.PayloadName(selfPath)
	if err != nil {
		return res, err
	}
	res.Artifact = selfPath
	res.Host = container.HostName(selfPath)
	res.Payload = payloadPath
	if opts.DryRun {
		res.Outcome = OutcomeSplit
		o.logger.Printf("run=%s dry-run: would split %s into %s (%d bytes) and %s (%d bytes)",
			res.RunID, selfPath, res.Host, res.Meta.HostLen(), res.Payload, res.Meta.PayloadLen())
		return res, nil
	}

	targets, meta, err := container.SplitFile(selfPath, opts.PayloadMode)
	if err != nil {
		return res, err
	}
	if meta != res.Meta {
		return res, fmt.Errorf("%w: footer changed during run: %+v then %+v", container.ErrSizeMismatch, res.Meta, meta)
	}
	if err := container.VerifySize(targets.Host, meta.HostLen()); err != nil {
		return res, err
	}
	if err := container.VerifySize(targets.Payload, meta.PayloadLen()); err != nil {
		return res, err
	}
	res.Outcome = OutcomeSplit
	o.logger.Printf("run=%s split %s into %s and %s", res.RunID, selfPath, targets.Host, targets.Payload)

	if err := o.retire(ctx, &res, selfPath); err != nil {
		return res, err
	}
	o.record(ctx, res, store.KindSplit)
	return res, nil
}

func (o *Orchestrator) fuse(ctx context.Context, selfPath string, opts Options, res Result) (Result, error) {
	payloadPath := opts.Payload
	if payloadPath == "" {
		if o.picker == nil {
			res.Outcome = OutcomeIdle
			o.logger.Printf("run=%s no payload given and no picker configured", res.RunID)
			return res, nil
		}
		exclude := make(map[string]struct{}, len(opts.Exclude)+2)
		for name := range opts.Exclude {
			exclude[name] = struct{}{}
		}
		exclude[container.ToolName] = struct{}{}
		if same, err := samePath(filepath.Dir(selfPath), o.picker.Dir()); err != nil {
			return res, err
		} else if same {
			exclude[filepath.Base(selfPath)] = struct{}{}
		}

		picked, ok, err := o.picker.Pick(exclude)
		if err != nil {
			return res, fmt.Errorf("pick payload: %w", err)
		}
		if !ok {
			res.Outcome = OutcomeIdle
			o.logger.Printf("run=%s no payload candidate found", res.RunID)
			return res, nil
		}
		payloadPath = picked
	}
	if same, err := samePath(selfPath, payloadPath); err != nil {
		return res, err
	} else if same {
		return res, fmt.Errorf("%w: %s", ErrPayloadIsSelf, payloadPath)
	}
	if err := checkSplittable(payloadPath); err != nil {
		return res, err
	}

	res.Host = selfPath
	res.Payload = payloadPath
	res.Artifact = container.ContainerName(payloadPath)
	if opts.DryRun {
		res.Outcome = OutcomeFused
		o.logger.Printf("run=%s dry-run: would fuse %s and %s into %s", res.RunID, selfPath, payloadPath, res.Artifact)
		return res, nil
	}

	hostSize, payloadSize, meta, err := fuseFiles(selfPath, payloadPath, res.Artifact)
	if err != nil {
		return res, err
	}
	want := container.Meta{Size: hostSize + payloadSize + container.FooterSize, Start: hostSize, End: hostSize + payloadSize}
	if err := container.VerifyContainer(res.Artifact, want, container.Fused); err != nil {
		_ = os.Remove(res.Artifact)
		return res, err
	}
	res.Meta = meta
	res.Outcome = OutcomeFused
	o.logger.Printf("run=%s fused %s and %s into %s (start=%d end=%d)",
		res.RunID, selfPath, payloadPath, res.Artifact, meta.Start, meta.End)

	if err := o.retire(ctx, &res, selfPath, payloadPath); err != nil {
		return res, err
	}
	o.record(ctx, res, store.KindFuse)
	return res, nil
}

func (o *Orchestrator) initialize(ctx context.Context, selfPath string, opts Options, res Result) (Result, error) {
	res.Host = selfPath
	res.Artifact = container.HostName(selfPath)
	if same, err := samePath(selfPath, res.Artifact); err != nil {
		return res, err
	} else if same {
		return res, fmt.Errorf("initialize: %w: %s is the running artifact", container.ErrOutputExists, res.Artifact)
	}
	if opts.DryRun {
		res.Outcome = OutcomeInitialized
		o.logger.Printf("run=%s dry-run: would initialize %s from %s", res.RunID, res.Artifact, selfPath)
		return res, nil
	}

	f, err := os.Open(selfPath)
	if err != nil {
		return res, &container.IOError{Op: "open", Path: selfPath, Err: err}
	}
	meta, err := container.Initialize(f, res.Artifact)
	_ = f.Close()
	if err != nil {
		return res, err
	}
	if err := container.VerifyContainer(res.Artifact, meta, container.Bare); err != nil {
		_ = os.Remove(res.Artifact)
		return res, err
	}
	res.Meta = meta
	res.Outcome = OutcomeInitialized
	o.logger.Printf("run=%s initialized %s (%d bytes)", res.RunID, res.Artifact, meta.End)

	if err := o.retire(ctx, &res, selfPath); err != nil {
		return res, err
	}
	o.record(ctx, res, store.KindInitialize)
	return res, nil
}

// checkSplittable rejects payloads whose container would split both
// segments onto the same path.
func checkSplittable(payloadPath string) error {
	artifact := container.ContainerName(payloadPath)
	restored, err := container.PayloadName(artifact)
	if err != nil {
		return err
	}
	if filepath.Clean(restored) == container.HostName(artifact) {
		return fmt.Errorf("%w: %s", ErrPayloadIsToolName, payloadPath)
	}
	return nil
}

// fuseFiles fuses hostPath and payloadPath into outputPath and returns the
// input sizes observed before copying. Both inputs are closed on return.
func fuseFiles(hostPath, payloadPath, outputPath string) (hostSize, payloadSize uint64, meta container.Meta, err error) {
	host, hostSize, err := openSized(hostPath)
	if err != nil {
		return 0, 0, container.Meta{}, err
	}
	defer host.Close()

	payload, payloadSize, err := openSized(payloadPath)
	if err != nil {
		return 0, 0, container.Meta{}, err
	}
	defer payload.Close()

	meta, err = container.Fuse(host, payload, outputPath)
	if err != nil {
		return 0, 0, container.Meta{}, err
	}
	return hostSize, payloadSize, meta, nil
}

func openSized(path string) (*os.File, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &container.IOError{Op: "open", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, &container.IOError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, &container.IOError{Op: "open", Path: path, Err: fmt.Errorf("not a regular file")}
	}
	return f, uint64(info.Size()), nil
}

// retire archives then removes each path. Nothing is removed unless every
// path was archived.
func (o *Orchestrator) retire(ctx context.Context, res *Result, paths ...string) error {
	if o.archive != nil {
		for _, p := range paths {
			obj, err := storage.ArchiveFile(ctx, o.archive, p)
			if err != nil {
				return fmt.Errorf("archive before removal, keeping %v: %w", paths, err)
			}
			res.Archived = append(res.Archived, obj)
			o.logger.Printf("run=%s archived %s digest=%s key=%s", res.RunID, p, obj.Digest, obj.Key)
		}
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return &container.IOError{Op: "remove", Path: p, Err: err}
		}
		o.logger.Printf("run=%s removed %s", res.RunID, p)
	}
	return nil
}

func (o *Orchestrator) record(ctx context.Context, res Result, kind string) {
	if o.recorder == nil {
		return
	}
	keys := make([]string, 0, len(res.Archived))
	for _, obj := range res.Archived {
		keys = append(keys, obj.Key)
	}
	ev, err := o.recorder.RecordEvent(ctx, store.Event{
		RunID:       res.RunID,
		Kind:        kind,
		Artifact:    res.Artifact,
		Host:        res.Host,
		Payload:     res.Payload,
		Start:       res.Meta.Start,
		End:         res.Meta.End,
		ArchiveKeys: keys,
	})
	if err != nil {
		o.logger.Printf("run=%s warning: record %s event: %v", res.RunID, kind, err)
		return
	}
	o.logger.Printf("run=%s recorded %s event %s", res.RunID, kind, ev.ID)
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	return absA == absB, nil
}
