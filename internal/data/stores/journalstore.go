package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/core/logging"
	"github.com/colonyops/relabel/internal/data/db"
	"github.com/colonyops/relabel/internal/fileops"
	"github.com/colonyops/relabel/internal/session"
)

// Append retries this many times while another process holds the database.
const (
	busyRetries = 3
	busyBackoff = 50 * time.Millisecond
)

// JournalStore implements session.Journal using SQLite.
type JournalStore struct {
	db *db.DB
}

var _ session.Journal = (*JournalStore)(nil)

// NewJournalStore creates a new SQLite-backed journal.
func NewJournalStore(db *db.DB) *JournalStore {
	return &JournalStore{db: db}
}

// OpenDB opens the journal database at path. A corrupted file is moved
// aside and replaced by an empty database.
func OpenDB(path string) (*db.DB, error) {
	database, err := db.Open(path)
	if err == nil || !IsCorruptionError(err) {
		return database, err
	}

	backup, rerr := RecoverFromCorruption(path)
	if rerr != nil {
		return nil, fmt.Errorf("%w (recovery failed: %w)", err, rerr)
	}
	logging.Component("journal").Warn().
		Err(err).
		Str("backup", backup).
		Msg("journal database was corrupted and has been recreated")

	return db.Open(path)
}

// BeginSession records a session start. Reopening a known session only
// refreshes its resume time and item count.
func (s *JournalStore) BeginSession(ctx context.Context, info session.Info) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO journal_sessions (id, input_root, output_dir, items, started_at, resumed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			items = excluded.items,
			resumed_at = excluded.resumed_at`,
		info.ID, info.InputRoot, info.OutputDir, info.Items,
		info.StartedAt.UnixNano(), info.ResumedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to begin journal session: %w", err)
	}
	return nil
}

// Append stores an entry, assigning the next sequence number within its
// session.
func (s *JournalStore) Append(ctx context.Context, entry session.JournalEntry) error {
	region, err := json.Marshal(entry.Region)
	if err != nil {
		return fmt.Errorf("failed to marshal region: %w", err)
	}
	effects, err := json.Marshal(entry.Effects)
	if err != nil {
		return fmt.Errorf("failed to marshal effects: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	for attempt := range busyRetries {
		err = s.append(ctx, entry, string(region), string(effects))
		if !IsBusyError(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * busyBackoff)
	}
	return err
}

func (s *JournalStore) append(ctx context.Context, entry session.JournalEntry, region, effects string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var seq int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM journal_entries WHERE session_id = ?`,
			entry.SessionID,
		).Scan(&seq)
		if err != nil {
			return fmt.Errorf("failed to read journal sequence: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO journal_entries
				(id, session_id, seq, kind, undo, item_id, item_index, code, region, effects, cursor, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.SessionID, seq, string(entry.Kind), entry.Undo, entry.ItemID, entry.Index,
			entry.Code, string(region), string(effects), entry.Cursor, entry.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to append journal entry: %w", err)
		}
		return nil
	})
}

// Session returns one session by ID. An unknown ID returns an error matched
// by IsNotFoundError.
func (s *JournalStore) Session(ctx context.Context, id string) (session.Info, error) {
	var (
		info             session.Info
		started, resumed int64
	)
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, input_root, output_dir, items, started_at, resumed_at
		FROM journal_sessions
		WHERE id = ?`, id,
	).Scan(&info.ID, &info.InputRoot, &info.OutputDir, &info.Items, &started, &resumed)
	if err != nil {
		return session.Info{}, fmt.Errorf("failed to get journal session %s: %w", id, err)
	}
	info.StartedAt = time.Unix(0, started)
	info.ResumedAt = time.Unix(0, resumed)
	return info, nil
}

// Sessions returns up to limit sessions, most recently resumed first.
func (s *JournalStore) Sessions(ctx context.Context, limit int) ([]session.Info, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, input_root, output_dir, items, started_at, resumed_at
		FROM journal_sessions
		ORDER BY resumed_at DESC
		LIMIT ?`, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []session.Info
	for rows.Next() {
		var (
			info             session.Info
			started, resumed int64
		)
		if err := rows.Scan(&info.ID, &info.InputRoot, &info.OutputDir, &info.Items, &started, &resumed); err != nil {
			return nil, fmt.Errorf("failed to scan journal session: %w", err)
		}
		info.StartedAt = time.Unix(0, started)
		info.ResumedAt = time.Unix(0, resumed)
		out = append(out, info)
	}
	return out, rows.Err()
}

// List returns up to limit entries, newest first. An empty sessionID lists
// entries of every session.
func (s *JournalStore) List(ctx context.Context, sessionID string, limit int) ([]session.JournalEntry, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, session_id, seq, kind, undo, item_id, item_index, code, region, effects, cursor, created_at
		FROM journal_entries
		WHERE ? = '' OR session_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?`, sessionID, sessionID, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []session.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanEntry(rows *sql.Rows) (session.JournalEntry, error) {
	var (
		entry           session.JournalEntry
		kind            string
		region, effects string
		created         int64
	)
	err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Seq, &kind, &entry.Undo, &entry.ItemID,
		&entry.Index, &entry.Code, &region, &effects, &entry.Cursor, &created)
	if err != nil {
		return session.JournalEntry{}, fmt.Errorf("failed to scan journal entry: %w", err)
	}

	entry.Kind = history.ActionKind(kind)
	entry.CreatedAt = time.Unix(0, created)

	if region != "" {
		var r geometry.Region
		if err := json.Unmarshal([]byte(region), &r); err != nil {
			return session.JournalEntry{}, fmt.Errorf("failed to unmarshal region: %w", err)
		}
		entry.Region = r
	}
	var fx fileops.Effects
	if err := json.Unmarshal([]byte(effects), &fx); err != nil {
		return session.JournalEntry{}, fmt.Errorf("failed to unmarshal effects: %w", err)
	}
	entry.Effects = fx

	return entry, nil
}

// limitOrAll maps a non-positive limit to SQLite's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
