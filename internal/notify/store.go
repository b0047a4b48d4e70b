package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/relay"
	_ "modernc.org/sqlite"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	title          TEXT NOT NULL,
	message        TEXT NOT NULL,
	patient_name   TEXT NOT NULL DEFAULT '',
	patient_phone  TEXT NOT NULL DEFAULT '',
	exam_type      TEXT NOT NULL DEFAULT '',
	requested_date TEXT NOT NULL DEFAULT '',
	requested_time TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	is_read        INTEGER NOT NULL DEFAULT 0,
	pos            INTEGER NOT NULL
);`

type storeRow struct {
	ID            string `db:"id"`
	Kind          string `db:"kind"`
	Title         string `db:"title"`
	Message       string `db:"message"`
	PatientName   string `db:"patient_name"`
	PatientPhone  string `db:"patient_phone"`
	ExamType      string `db:"exam_type"`
	RequestedDate string `db:"requested_date"`
	RequestedTime string `db:"requested_time"`
	CreatedAt     string `db:"created_at"`
	IsRead        bool   `db:"is_read"`
	Pos           int    `db:"pos"`
}

// Store is the instance-local notification inbox: an in-memory list, newest
// first, capped at a fixed size with oldest-first eviction, snapshotted to
// an embedded SQLite file so it survives restarts.
//
// The in-memory list is the source of truth. Snapshot writes are
// best-effort: a failed write is logged and the records stay available for
// the rest of the session.
//
// All operations are safe for concurrent use; they execute atomically
// relative to each other.
type Store struct {
	mu      sync.Mutex
	records []Record // newest first
	cap     int
	db      *sqlx.DB // nil means memory-only
	logger  *logger.Logger
}

// OpenStore opens (or creates) the inbox snapshot at path and hydrates the
// in-memory list from it.
func OpenStore(path string, capacity int, logger *logger.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create inbox schema: %w", err)
	}

	s := &Store{
		cap:    capacity,
		db:     db,
		logger: logger.WithComponent("notify-store"),
	}
	s.hydrate()

	return s, nil
}

// NewMemoryStore creates an inbox with no snapshot file.
func NewMemoryStore(capacity int, logger *logger.Logger) *Store {
	return &Store{
		cap:    capacity,
		logger: logger.WithComponent("notify-store"),
	}
}

// hydrate loads the persisted snapshot. A broken snapshot is treated as no
// prior data; rows whose timestamps fail to parse are dropped silently.
func (s *Store) hydrate() {
	var rows []storeRow
	if err := s.db.Select(&rows, `SELECT * FROM notifications ORDER BY pos ASC`); err != nil {
		s.logger.Warn("failed to read inbox snapshot, starting empty", slog.String("error", err.Error()))
		return
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			s.logger.Debug("dropping inbox record with unparseable timestamp",
				slog.String("id", row.ID),
				slog.String("created_at", row.CreatedAt))
			continue
		}

		records = append(records, Record{
			ID:      row.ID,
			Kind:    relay.Kind(row.Kind),
			Title:   row.Title,
			Message: row.Message,
			Payload: Payload{
				PatientName:   row.PatientName,
				PatientPhone:  row.PatientPhone,
				ExamType:      row.ExamType,
				RequestedDate: row.RequestedDate,
				RequestedTime: row.RequestedTime,
			},
			CreatedAt: createdAt,
			IsRead:    row.IsRead,
		})
	}

	if len(records) > s.cap {
		records = records[:s.cap]
	}
	s.records = records
}

// Add constructs a Record from draft (fresh ID, created-now, unread),
// prepends it, evicts beyond capacity and persists. Returns the stored
// record.
func (s *Store) Add(draft Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := draft
	record.ID = uuid.New().String()
	record.CreatedAt = time.Now()
	record.IsRead = false

	s.records = append([]Record{record}, s.records...)
	if len(s.records) > s.cap {
		s.records = s.records[:s.cap]
	}

	s.persist()
	return record
}

// MarkRead marks one record read. Returns false if no record matches.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].IsRead = true
			s.persist()
			return true
		}
	}
	return false
}

// MarkAllRead marks every record read.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		s.records[i].IsRead = true
	}
	s.persist()
}

// Dismiss removes one record. Returns false if no record matches.
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

// ClearAll empties the inbox and removes the snapshot contents.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.persist()
}

// List returns the records, newest first.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// UnreadCount returns the number of unread records.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.records {
		if !r.IsRead {
			count++
		}
	}
	return count
}

// Close closes the snapshot database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// persist rewrites the snapshot from the in-memory list. Caller holds the
// lock. Failures are logged, never surfaced: the session keeps its records
// in memory either way.
func (s *Store) persist() {
	if s.db == nil {
		return
	}

	tx, err := s.db.Beginx()
	if err != nil {
		s.logger.Warn("failed to begin inbox snapshot", slog.String("error", err.Error()))
		return
	}

	if _, err := tx.Exec(`DELETE FROM notifications`); err != nil {
		s.logger.Warn("failed to clear inbox snapshot", slog.String("error", err.Error()))
		tx.Rollback()
		return
	}

	for pos, r := range s.records {
		_, err := tx.Exec(
			`INSERT INTO notifications
				(id, kind, title, message, patient_name, patient_phone, exam_type, requested_date, requested_time, created_at, is_read, pos)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.Kind), r.Title, r.Message,
			r.Payload.PatientName, r.Payload.PatientPhone, r.Payload.ExamType,
			r.Payload.RequestedDate, r.Payload.RequestedTime,
			r.CreatedAt.Format(time.RFC3339Nano), r.IsRead, pos,
		)
		if err != nil {
			s.logger.Warn("failed to write inbox snapshot row", slog.String("error", err.Error()))
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Warn("failed to commit inbox snapshot", slog.String("error", err.Error()))
	}
}
