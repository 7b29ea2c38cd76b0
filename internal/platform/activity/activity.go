package activity

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Type labels one kind of recorded event.
type Type string

const (
	SessionStarted  Type = "session_started"
	SessionFinished Type = "session_finished"
	SessionCleared  Type = "session_cleared"
	AttemptAdded    Type = "attempt_added"
	AttemptUpdated  Type = "attempt_updated"
	AttemptDeleted  Type = "attempt_deleted"
	RouteSaved      Type = "route_saved"
	RouteUpdated    Type = "route_updated"
	RouteDeleted    Type = "route_deleted"
	BackupExported  Type = "backup_exported"
	BackupImported  Type = "backup_imported"
	BackupPushed    Type = "backup_pushed"
	BackupPulled    Type = "backup_pulled"
	DaemonStarted   Type = "daemon_started"
	DaemonStopped   Type = "daemon_stopped"
	Migration       Type = "migration"
)

// Event is one line of the durable JSONL activity log.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Query struct {
	Limit int
	Since time.Time
}

// Recorder appends and tails the event log. Callers treat recording as a
// fire-and-forget side effect; only tailing surfaces errors to users.
type Recorder interface {
	Append(ctx context.Context, event Event) error
	Tail(ctx context.Context, query Query) ([]Event, error)
}

type FileRecorder struct {
	path string
}

func NewFileRecorder(homePath string) *FileRecorder {
	return &FileRecorder{path: filepath.Join(homePath, "activity.log")}
}

func (r *FileRecorder) Append(_ context.Context, event Event) error {
	if event.ID == "" {
		event.ID = fmt.Sprintf("%d", time.Now().UTC().UnixNano())
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create activity dir: %w", err)
	}
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer file.Close()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode activity event: %w", err)
	}
	if _, err := file.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	return nil
}

// Tail returns the newest events in file order, at most query.Limit of them.
func (r *FileRecorder) Tail(_ context.Context, query Query) ([]Event, error) {
	if query.Limit <= 0 {
		query.Limit = 200
	}
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	defer file.Close()

	buffer := make([]Event, 0, query.Limit)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event := Event{}
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if !query.Since.IsZero() && event.OccurredAt.Before(query.Since.UTC()) {
			continue
		}
		if len(buffer) < query.Limit {
			buffer = append(buffer, event)
			continue
		}
		copy(buffer, buffer[1:])
		buffer[len(buffer)-1] = event
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan activity log: %w", err)
	}
	return buffer, nil
}
