package usersink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// FileSink appends activity records to a JSON Lines audit log. It satisfies
// usertypes.ActivitySink so it can stand in for a database-backed sink.
type FileSink struct {
	Path string

	mu sync.Mutex
}

var _ usertypes.ActivitySink = (*FileSink)(nil)

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

type fileEntry struct {
	ID         string         `json:"id"`
	Verb       string         `json:"verb"`
	ActorID    string         `json:"actor_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Channel    string         `json:"channel,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Log appends one line per record.
func (s *FileSink) Log(ctx context.Context, record usertypes.ActivityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(fileEntry{
		ID:         uuid.NewString(),
		Verb:       record.Verb,
		ActorID:    optionalUUID(record.ActorID),
		UserID:     optionalUUID(record.UserID),
		TenantID:   optionalUUID(record.TenantID),
		ObjectType: record.ObjectType,
		ObjectID:   record.ObjectID,
		Channel:    record.Channel,
		Data:       record.Data,
		OccurredAt: record.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("usersink: encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("usersink: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("usersink: open %s: %w", s.Path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("usersink: write %s: %w", s.Path, err)
	}
	return f.Close()
}

func optionalUUID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
