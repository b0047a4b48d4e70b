package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// bufferChannel is the Postgres NOTIFY channel signalled on every append.
const bufferChannel = "relay_buffer_changed"

// PGBuffer implements Buffer on the shared relay_buffer table. Appends are
// transactional, so the capacity eviction cannot lose a concurrent writer's
// entry the way a read-modify-write key-value slot would.
type PGBuffer struct {
	db     *sql.DB
	dsn    string
	cap    int
	logger *logger.Logger
}

// NewPGBuffer creates a buffer over the given pool. The DSN is needed
// separately because LISTEN requires a dedicated connection.
func NewPGBuffer(db *sql.DB, dsn string, capacity int, logger *logger.Logger) *PGBuffer {
	return &PGBuffer{
		db:     db,
		dsn:    dsn,
		cap:    capacity,
		logger: logger.WithComponent("relay-buffer"),
	}
}

// Append inserts msg, evicts entries beyond capacity (oldest first) and
// notifies watchers, all in one transaction.
func (b *PGBuffer) Append(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO relay_buffer (id, kind, payload, ts) VALUES ($1, $2, $3, $4)`,
		msg.ID, string(msg.Kind), payload, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to insert buffer entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relay_buffer WHERE id NOT IN (
			SELECT id FROM relay_buffer ORDER BY inserted_at DESC LIMIT $1)`,
		b.cap,
	); err != nil {
		return fmt.Errorf("failed to evict buffer overflow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, bufferChannel, msg.ID); err != nil {
		return fmt.Errorf("failed to notify watchers: %w", err)
	}

	return tx.Commit()
}

// Read returns buffered messages in append order. Rows whose payload no
// longer unmarshals are skipped; the buffer is disposable state.
func (b *PGBuffer) Read(ctx context.Context) ([]Message, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT payload FROM relay_buffer ORDER BY inserted_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan buffer row: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Warn("dropping malformed buffer entry", slog.String("error", err.Error()))
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

// Prune drops entries stamped before olderThan.
func (b *PGBuffer) Prune(ctx context.Context, olderThan time.Time) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM relay_buffer WHERE ts < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("failed to prune buffer: %w", err)
	}
	return nil
}

// Watch listens for buffer-change notifications on a dedicated connection.
func (b *PGBuffer) Watch(signal func()) (func(), error) {
	listener := pq.NewListener(b.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			b.logger.Warn("buffer listener event",
				slog.Int("event", int(ev)),
				slog.String("error", err.Error()))
		}
	})

	if err := listener.Listen(bufferChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", bufferChannel, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-listener.Notify:
				if !ok {
					return
				}
				// A nil notification means the connection was re-established;
				// treat it as a change signal too, entries may have been missed.
				signal()
			}
		}
	}()

	stop := func() {
		close(done)
		if err := listener.Close(); err != nil {
			b.logger.Warn("failed to close buffer listener", slog.String("error", err.Error()))
		}
	}

	return stop, nil
}
