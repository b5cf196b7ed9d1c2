package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cdmedia/internal/events"
	"cdmedia/internal/logging"
)

// Recorder writes every ImportFinished event to a Store.
type Recorder struct {
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	recorded map[string]struct{}
	waiters  map[string][]chan struct{}
}

// NewRecorder constructs a recorder writing to store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "history"),
		recorded: make(map[string]struct{}),
		waiters:  make(map[string][]chan struct{}),
	}
}

// Attach subscribes the recorder to bus and returns the unsubscribe function.
func (r *Recorder) Attach(bus *events.Bus) func() {
	return events.Subscribe(bus, r.Handle)
}

// Handle records ev. Failures are logged; the journal is advisory.
func (r *Recorder) Handle(ev events.ImportFinished) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.store.Record(ctx, EntryFromEvent(ev)); err != nil {
		logging.WarnWithContext(r.logger, "import not recorded in history", "history_record_failed",
			logging.String(logging.FieldSessionID, ev.SessionID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "import missing from cdmedia history"),
		)
	} else {
		r.logger.Debug("import recorded",
			logging.String(logging.FieldSessionID, ev.SessionID),
			logging.String("status", ev.Status),
		)
	}

	r.mu.Lock()
	r.recorded[ev.SessionID] = struct{}{}
	waiters := r.waiters[ev.SessionID]
	delete(r.waiters, ev.SessionID)
	r.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}

// Wait blocks until the outcome of sessionID has been handled or ctx ends.
func (r *Recorder) Wait(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	if _, ok := r.recorded[sessionID]; ok {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.waiters[sessionID] = append(r.waiters[sessionID], ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
