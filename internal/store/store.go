// Package store persists the lifecycle ledger: one row per transition
// (initialize, fuse, split) with the offsets and archive keys involved.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	KindInitialize = "initialize"
	KindFuse       = "fuse"
	KindSplit      = "split"
)

var ErrInvalidEvent = errors.New("invalid event")

// Event is one recorded transition.
type Event struct {
	ID          uuid.UUID
	RunID       uuid.UUID
	Kind        string
	Artifact    string
	Host        string
	Payload     string
	Start       uint64
	End         uint64
	ArchiveKeys []string
	CreatedAt   time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	db execer
}

// New wraps a *pgxpool.Pool (or any Exec-capable handle).
func New(db execer) *Store {
	return &Store{db: db}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS fusion_events (
		id           uuid PRIMARY KEY,
		run_id       uuid NOT NULL,
		kind         text NOT NULL,
		artifact     text NOT NULL,
		host         text NOT NULL DEFAULT '',
		payload      text NOT NULL DEFAULT '',
		start_offset numeric(20, 0) NOT NULL,
		end_offset   numeric(20, 0) NOT NULL,
		archive_keys text[] NOT NULL DEFAULT '{}',
		created_at   timestamptz NOT NULL
	)
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create fusion_events: %w", err)
	}
	return nil
}

// RecordEvent inserts ev, filling ID and CreatedAt when unset.
func (s *Store) RecordEvent(ctx context.Context, ev Event) (Event, error) {
	switch ev.Kind {
	case KindInitialize, KindFuse, KindSplit:
	default:
		return Event{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	}
	if ev.Artifact == "" {
		return Event{}, fmt.Errorf("%w: artifact is required", ErrInvalidEvent)
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.ArchiveKeys == nil {
		ev.ArchiveKeys = []string{}
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO fusion_events (id, run_id, kind, artifact, host, payload, start_offset, end_offset, archive_keys, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ev.ID, ev.RunID, ev.Kind, ev.Artifact, ev.Host, ev.Payload,
		fmt.Sprint(ev.Start), fmt.Sprint(ev.End), ev.ArchiveKeys, ev.CreatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("insert fusion event: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return Event{}, fmt.Errorf("insert fusion event: %d rows affected", tag.RowsAffected())
	}
	return ev, nil
}
