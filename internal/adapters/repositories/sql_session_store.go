package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/db"
	"sos-dispatch-service/internal/platform/obs"
	"sos-dispatch-service/internal/ports"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CompletionReset marks a session that was reset before it finished.
const CompletionReset domain.CompletionReason = "reset"

// SQLSessionStore records session history. It observes the orchestrator and
// implements the SessionHistory port.
type SQLSessionStore struct {
	DB      *sql.DB
	Driver  string
	Timeout time.Duration

	mu sync.Mutex
	// Session that has started but not finished yet.
	open string
}

var (
	_ ports.SessionObserver = (*SQLSessionStore)(nil)
	_ ports.SessionHistory  = (*SQLSessionStore)(nil)
)

func NewSQLSessionStore(conn *sql.DB, driver string) *SQLSessionStore {
	return &SQLSessionStore{DB: conn, Driver: driver, Timeout: 2 * time.Second}
}

func (s *SQLSessionStore) OnEvent(ev domain.Event) {
	if ev.Kind == domain.EventTick {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch ev.Kind {
	case domain.EventStarted:
		err = s.insertSession(ctx, ev.Snapshot)
		s.open = ev.Snapshot.SessionID
	case domain.EventLocationResolved:
		err = s.updateLocation(ctx, ev.Snapshot)
	case domain.EventContactStarted:
		err = s.insertContact(ctx, ev.At, ev.Snapshot)
	case domain.EventCompleted, domain.EventFailed:
		err = s.finish(ctx, ev.Snapshot)
		s.open = ""
	case domain.EventReset:
		if s.open != "" {
			err = s.abandon(ctx, s.open, ev.At)
			s.open = ""
		}
	}

	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Kind)).Str("session_id", ev.Snapshot.SessionID).Msg("persist session event")
	}
}

func (s *SQLSessionStore) exec(ctx context.Context, query string, args ...any) error {
	if s.DB == nil {
		return errors.New("sql session store: DB is nil")
	}
	_, err := s.DB.ExecContext(ctx, db.Rebind(s.Driver, query), args...)
	return err
}

func (s *SQLSessionStore) insertSession(ctx context.Context, snap domain.Snapshot) error {
	err := s.exec(ctx, `
	INSERT INTO sessions (id, status, started_at)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO NOTHING;
	`, snap.SessionID, string(snap.Status), snap.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) updateLocation(ctx context.Context, snap domain.Snapshot) error {
	if snap.Location == nil {
		return nil
	}
	err := s.exec(ctx, `
	UPDATE sessions
	SET status = ?, lat = ?, lon = ?
	WHERE id = ?;
	`, string(snap.Status), snap.Location.Lat, snap.Location.Lon, snap.SessionID)
	if err != nil {
		return fmt.Errorf("update session location: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) insertContact(ctx context.Context, at time.Time, snap domain.Snapshot) error {
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Contacted) {
		return fmt.Errorf("insert contact: index %d out of range", snap.CurrentIndex)
	}
	h := snap.Contacted[snap.CurrentIndex]

	if err := s.exec(ctx, `
	INSERT INTO session_contacts (session_id, position, name, address, phone, started_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (session_id, position) DO NOTHING;
	`, snap.SessionID, snap.CurrentIndex, h.Name, h.Address, h.Phone, at.UnixMilli()); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}

	if err := s.exec(ctx, `UPDATE sessions SET status = ? WHERE id = ?;`, string(snap.Status), snap.SessionID); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) finish(ctx context.Context, snap domain.Snapshot) error {
	err := s.exec(ctx, `
	UPDATE sessions
	SET status = ?, error_kind = ?, completion = ?, ended_at = ?
	WHERE id = ?;
	`, string(snap.Status), string(snap.ErrorKind), string(snap.Completion), snap.EndedAt.UnixMilli(), snap.SessionID)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) abandon(ctx context.Context, id string, at time.Time) error {
	err := s.exec(ctx, `
	UPDATE sessions
	SET completion = ?, ended_at = ?
	WHERE id = ? AND ended_at IS NULL;
	`, string(CompletionReset), at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("abandon session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first, each with its
// contacted hospitals in contact order.
func (s *SQLSessionStore) ListSessions(ctx context.Context, limit int) (_ []ports.SessionRecord, err error) {
	defer obs.Time(ctx, "sessions.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql session store: DB is nil")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("list sessions: limit must be positive, got %d", limit)
	}

	rows, err := s.DB.QueryContext(ctx, db.Rebind(s.Driver, `
	SELECT
		id,
		status,
		lat,
		lon,
		error_kind,
		completion,
		started_at,
		ended_at
	FROM sessions
	ORDER BY started_at DESC, id
	LIMIT ?;
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: query sessions table: %w", err)
	}
	defer rows.Close()

	records := make([]ports.SessionRecord, 0, limit)
	index := make(map[string]int, limit)
	for rows.Next() {
		var (
			r          ports.SessionRecord
			status     string
			errorKind  string
			completion string
			lat, lon   sql.NullFloat64
			startedAt  int64
			endedAt    sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &status, &lat, &lon, &errorKind, &completion, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("list sessions: scan row: %w", err)
		}

		r.Status = domain.Status(status)
		r.ErrorKind = domain.ErrorKind(errorKind)
		r.Completion = domain.CompletionReason(completion)
		r.StartedAt = time.UnixMilli(startedAt).UTC()
		if lat.Valid && lon.Valid {
			r.Latitude, r.Longitude = &lat.Float64, &lon.Float64
		}
		if endedAt.Valid {
			t := time.UnixMilli(endedAt.Int64).UTC()
			r.EndedAt = &t
		}
		r.Contacted = []string{}

		index[r.ID] = len(records)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: row iteration: %w", err)
	}

	if len(records) == 0 {
		return records, nil
	}

	// Only the placeholder structure is interpolated; ids stay parameterized.
	args := make([]any, 0, len(records))
	for _, r := range records {
		args = append(args, r.ID)
	}
	contactRows, err := s.DB.QueryContext(ctx, db.Rebind(s.Driver, fmt.Sprintf(`
	SELECT session_id, name
	FROM session_contacts
	WHERE session_id IN (%s)
	ORDER BY session_id, position;
	`, db.Placeholders(len(args)))), args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: query session_contacts table: %w", err)
	}
	defer contactRows.Close()

	for contactRows.Next() {
		var id, name string
		if err := contactRows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("list sessions: scan contact row: %w", err)
		}
		if i, ok := index[id]; ok {
			records[i].Contacted = append(records[i].Contacted, name)
		}
	}
	if err := contactRows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: contact row iteration: %w", err)
	}

	return records, nil
}
