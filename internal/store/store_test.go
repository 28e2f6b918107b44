package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExec struct {
	sql  []string
	args [][]any
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return f.tag, f.err
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	fake := &fakeExec{}
	if err := New(fake).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(fake.sql) != 1 || !strings.Contains(fake.sql[0], "CREATE TABLE IF NOT EXISTS fusion_events") {
		t.Fatalf("EnsureSchema() sql = %v", fake.sql)
	}
}

func TestRecordEvent(t *testing.T) {
	t.Parallel()

	fake := &fakeExec{tag: pgconn.NewCommandTag("INSERT 0 1")}
	run := uuid.New()
	ev, err := New(fake).RecordEvent(context.Background(), Event{
		RunID:    run,
		Kind:     KindFuse,
		Artifact: "notes.txt.exe",
		Host:     "fusionator.exe",
		Payload:  "notes.txt",
		Start:    3,
		End:      8,
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}
	if ev.ID == uuid.Nil || ev.CreatedAt.IsZero() {
		t.Fatalf("RecordEvent() did not fill ID/CreatedAt: %+v", ev)
	}
	args := fake.args[0]
	if len(args) != 10 {
		t.Fatalf("RecordEvent() args = %d, want 10", len(args))
	}
	if args[1] != run || args[2] != KindFuse || args[6] != "3" || args[7] != "8" {
		t.Fatalf("RecordEvent() args = %#v", args)
	}
	if keys, ok := args[8].([]string); !ok || keys == nil {
		t.Fatalf("archive_keys arg = %#v, want empty slice", args[8])
	}
}

func TestRecordEvent_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   Event
	}{
		{name: "unknown kind", ev: Event{Kind: "merge", Artifact: "a"}},
		{name: "missing artifact", ev: Event{Kind: KindSplit}},
	}
	for _, tt := range tests {
		fake := &fakeExec{}
		_, err := New(fake).RecordEvent(context.Background(), tt.ev)
		if !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("%s: RecordEvent() error = %v, want ErrInvalidEvent", tt.name, err)
		}
		if len(fake.sql) != 0 {
			t.Fatalf("%s: RecordEvent() executed sql for invalid event", tt.name)
		}
	}
}

func TestRecordEvent_ExecError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := New(&fakeExec{err: boom}).RecordEvent(context.Background(), Event{Kind: KindSplit, Artifact: "a.exe"})
	if !errors.Is(err, boom) {
		t.Fatalf("RecordEvent() error = %v, want boom", err)
	}

	_, err = New(&fakeExec{tag: pgconn.NewCommandTag("INSERT 0 0")}).RecordEvent(context.Background(), Event{Kind: KindSplit, Artifact: "a.exe"})
	if err == nil {
		t.Fatalf("RecordEvent() error = nil with 0 rows affected")
	}
}
