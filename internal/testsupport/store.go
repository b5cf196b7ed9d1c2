package testsupport

import (
	"context"
	"testing"
	"time"

	"cdmedia/internal/config"
	"cdmedia/internal/history"
)

// MustOpenHistory opens the config's history journal for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordImport adds a finished import with the given status to the journal.
func RecordImport(t testing.TB, store *history.Store, sessionID, status string) history.Entry {
	t.Helper()

	finished := time.Now().UTC()
	entry := history.Entry{
		SessionID:   sessionID,
		Device:      "/dev/sr0",
		Destination: "/library/" + sessionID + ".cdmedia",
		Status:      status,
		StartedAt:   finished.Add(-5 * time.Minute),
		FinishedAt:  finished,
	}
	if _, err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return entry
}
