package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection pragmas, applied to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and runs all
// pending migrations.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// DB returns the raw *sql.DB for ad-hoc queries.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// runMigrations applies any SQL files not yet recorded in schema_migrations.
func (s *SQLiteStore) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version, description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", e.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", e.Name(), err)
		}
		s.logger.Info("applied migration",
			zap.Int("version", version),
			zap.String("description", description),
		)
	}
	return nil
}

// CreateNote implements NoteStore.
func (s *SQLiteStore) CreateNote(ctx context.Context, note *Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, content, sensitivity_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.Content, note.SensitivityLevel, formatTime(note.CreatedAt), formatTime(note.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetNote implements NoteStore.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*Note, error) {
	var (
		note             Note
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.content, n.sensitivity_level, n.created_at, n.updated_at,
		       EXISTS (SELECT 1 FROM span_sets ss WHERE ss.note_id = n.id)
		FROM notes n WHERE n.id = ?
	`, id).Scan(&note.ID, &note.Content, &note.SensitivityLevel, &created, &updated, &note.SpansMaterialized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query note: %w", err)
	}
	note.CreatedAt = parseTime(created)
	note.UpdatedAt = parseTime(updated)

	note.Spans, err = s.listSpans(ctx, id)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// DeleteNote implements NoteStore.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM text_spans WHERE note_id = ?", id); err != nil {
		return fmt.Errorf("delete spans: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM span_sets WHERE note_id = ?", id); err != nil {
		return fmt.Errorf("delete span set: %w", err)
	}
	return tx.Commit()
}

// InsertSpansIfAbsent implements SpanStore. The span_sets marker row is
// written first so the transaction holds the write lock before any read.
func (s *SQLiteStore) InsertSpansIfAbsent(ctx context.Context, noteID string, spans []TextSpan) ([]TextSpan, bool, error) {
	now := time.Now().UTC()
	prepared, err := prepareSpans(noteID, spans, now)
	if err != nil {
		return nil, false, err
	}
	if err := s.noteExists(ctx, noteID); err != nil {
		return nil, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin span tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO span_sets (note_id, created_at) VALUES (?, ?)",
		noteID, formatTime(now),
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim span set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		existing, err := s.listSpans(ctx, noteID)
		return existing, false, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO text_spans (id, note_id, start_offset, end_offset, label, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, false, fmt.Errorf("prepare span insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range prepared {
		if _, err := stmt.ExecContext(ctx,
			sp.ID, sp.NoteID, sp.Start, sp.End, sp.Label, sp.Confidence, formatTime(sp.CreatedAt),
		); err != nil {
			return nil, false, fmt.Errorf("insert span: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit spans: %w", err)
	}

	sortSpans(prepared)
	return prepared, true, nil
}

// ListSpans implements SpanStore.
func (s *SQLiteStore) ListSpans(ctx context.Context, noteID string) ([]TextSpan, error) {
	if err := s.noteExists(ctx, noteID); err != nil {
		return nil, err
	}
	return s.listSpans(ctx, noteID)
}

func (s *SQLiteStore) listSpans(ctx context.Context, noteID string) ([]TextSpan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, note_id, start_offset, end_offset, label, confidence, created_at
		FROM text_spans WHERE note_id = ?
		ORDER BY start_offset, end_offset
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	spans := []TextSpan{}
	for rows.Next() {
		var (
			sp      TextSpan
			created string
		)
		if err := rows.Scan(&sp.ID, &sp.NoteID, &sp.Start, &sp.End, &sp.Label, &sp.Confidence, &created); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		sp.CreatedAt = parseTime(created)
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

func (s *SQLiteStore) noteExists(ctx context.Context, noteID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE id = ?", noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query note: %w", err)
	}
	return nil
}

// GetProfile implements ProfileStore.
func (s *SQLiteStore) GetProfile(ctx context.Context, subjectID string) (*UserProfile, error) {
	var (
		p                UserProfile
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT subject_id, voice_pin_hash, created_at, updated_at
		FROM user_profiles WHERE subject_id = ?
	`, subjectID).Scan(&p.SubjectID, &p.VoicePinHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// GetOrCreateProfile implements ProfileStore.
func (s *SQLiteStore) GetOrCreateProfile(ctx context.Context, subjectID string) (*UserProfile, error) {
	if subjectID == "" {
		return nil, ErrEmptyID
	}
	now := formatTime(time.Now().UTC())
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_profiles (subject_id, voice_pin_hash, created_at, updated_at)
		VALUES (?, '', ?, ?)
	`, subjectID, now, now); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return s.GetProfile(ctx, subjectID)
}

// SaveProfile implements ProfileStore.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if profile.SubjectID == "" {
		return ErrEmptyID
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (subject_id, voice_pin_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			voice_pin_hash = excluded.voice_pin_hash,
			updated_at     = excluded.updated_at
	`, profile.SubjectID, profile.VoicePinHash, formatTime(profile.CreatedAt), formatTime(profile.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
