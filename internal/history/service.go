package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/Automaat/shader-buster/internal/logging"
)

// Service records runs and derives totals from the stored log.
type Service struct {
	store      Store
	db         *sql.DB
	now        func() time.Time
	maxEntries int
}

// NewService wraps store. maxEntries <= 0 keeps every entry.
func NewService(store Store, maxEntries int) *Service {
	return &Service{store: store, now: time.Now, maxEntries: maxEntries}
}

// Open opens the SQLite log at path.
func Open(ctx context.Context, path string, maxEntries int) (*Service, error) {
	db, err := NewConnection(ctx, path)
	if err != nil {
		return nil, err
	}
	s := NewService(NewSQLiteStore(db), maxEntries)
	s.db = db
	return s, nil
}

// Close releases the database opened by Open.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e, stamping it with the current time when unset, and drops
// the oldest entries beyond the retention limit.
func (s *Service) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	id, err := s.store.Append(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id

	if s.maxEntries > 0 {
		trimmed, err := s.store.Trim(ctx, s.maxEntries)
		if err != nil {
			return e, err
		}
		if trimmed > 0 {
			logging.FromContext(ctx).Debug().Int64("removed", trimmed).Msg("history trimmed")
		}
	}
	return e, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Service) List(ctx context.Context, limit int) ([]Entry, error) {
	return s.store.List(ctx, limit)
}

// Totals folds over every stored entry.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	entries, err := s.store.List(ctx, 0)
	if err != nil {
		return Totals{}, err
	}
	return Fold(entries), nil
}

// Clear removes every entry.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
