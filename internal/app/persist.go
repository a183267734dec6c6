package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidyasagar/journey/internal/browser"
	"github.com/vidyasagar/journey/internal/history"
	"github.com/vidyasagar/journey/internal/storage"
)

const storeTimeout = 5 * time.Second

// toStored converts host entries for the session store.
func toStored(entries []browser.Entry) []storage.SessionEntry {
	out := make([]storage.SessionEntry, len(entries))
	for i, e := range entries {
		out[i] = storage.SessionEntry{Path: e.Path, Title: e.Title, Payload: e.Payload}
	}
	return out
}

// fromStored converts persisted entries back into host entries.
func fromStored(entries []storage.SessionEntry) []browser.Entry {
	out := make([]browser.Entry, len(entries))
	for i, e := range entries {
		out[i] = browser.Entry{Path: e.Path, Title: e.Title, Payload: e.Payload}
	}
	return out
}

// openHost restores the previous run's host history from store, or starts a
// new one at start when there is none (or fresh is set).
func openHost(store *storage.SessionStore, start string, fresh bool, logger *zap.Logger) *browser.Session {
	if store == nil || fresh {
		return browser.NewSession(start, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	entries, cursor, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoSession) {
			logger.Warn("loading saved session failed", zap.Error(err))
		}
		return browser.NewSession(start, logger)
	}

	host, err := browser.RestoreSession(fromStored(entries), cursor, logger)
	if err != nil {
		logger.Warn("restoring saved session failed", zap.Error(err))
		return browser.NewSession(start, logger)
	}
	logger.Info("session restored", zap.Int("entries", len(entries)), zap.Int("cursor", cursor))
	return host
}

// saveHost persists the host's entries and cursor.
func saveHost(store *storage.SessionStore, host *browser.Session) error {
	if store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	entries, cursor := host.Snapshot()
	if err := store.Save(ctx, toStored(entries), cursor); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// recordVisit appends ev to the visit log.
func recordVisit(log *storage.VisitLog, ev history.Event) error {
	if log == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	return log.Add(ctx, storage.Visit{
		Event:     ev.Type.String(),
		Path:      ev.Path,
		Title:     ev.State.Title,
		StateTime: ev.State.Time,
		Orphan:    ev.Orphan,
	})
}
