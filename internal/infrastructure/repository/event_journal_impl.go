package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tsubakihara/ringi/internal/domain/repository"
)

// EventJournalImpl implements repository.EventSink with NDJSON file-based
// storage: one JSON object per line, append-only. Downstream consumers
// (dashboards, memory stores) tail the file; the engine never waits on them.
type EventJournalImpl struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewEventJournal creates a new NDJSON-based event journal
func NewEventJournal(fs afero.Fs, path string) *EventJournalImpl {
	return &EventJournalImpl{fs: fs, path: path}
}

// Publish appends one transition event as an NDJSON line
func (j *EventJournalImpl) Publish(ctx context.Context, event repository.TransitionEvent) error {
	// Normalize identity and timestamp before writing
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if dir := filepath.Dir(j.path); dir != "." {
		if err := j.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}

	f, err := j.fs.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}
