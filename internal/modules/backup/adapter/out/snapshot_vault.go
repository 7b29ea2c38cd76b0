package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crux/internal/modules/backup/domain"
	backupout "crux/internal/modules/backup/port/out"
)

// FileSnapshotVault archives snapshots as timestamped JSON files. Names sort
// lexicographically in creation order, so the newest snapshot is the last
// name. Two pushes with the same timestamp land on the same file, which is a
// plain overwrite.
type FileSnapshotVault struct {
	dir string
}

func NewFileSnapshotVault(homePath string) backupout.SnapshotVault {
	return &FileSnapshotVault{dir: filepath.Join(homePath, "backup", "snapshots")}
}

func (v *FileSnapshotVault) Store(_ context.Context, snapshot domain.Snapshot) (string, error) {
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	name := snapshot.Timestamp.UTC().Format("20060102-150405.000000000") + ".json"
	if err := os.WriteFile(filepath.Join(v.dir, name), append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return name, nil
}

func (v *FileSnapshotVault) Latest(_ context.Context) (domain.Snapshot, string, error) {
	names, err := v.names()
	if err != nil {
		return domain.Snapshot{}, "", err
	}
	if len(names) == 0 {
		return domain.Snapshot{}, "", domain.ErrNoSnapshots
	}
	name := names[len(names)-1]
	raw, err := os.ReadFile(filepath.Join(v.dir, name))
	if err != nil {
		return domain.Snapshot{}, "", fmt.Errorf("read snapshot %s: %w", name, err)
	}
	snapshot := domain.Snapshot{}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Snapshot{}, "", fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return snapshot, name, nil
}

func (v *FileSnapshotVault) Count(ctx context.Context) (int, time.Time, error) {
	names, err := v.names()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(names) == 0 {
		return 0, time.Time{}, nil
	}
	snapshot, _, err := v.Latest(ctx)
	if err != nil {
		return len(names), time.Time{}, err
	}
	return len(names), snapshot.Timestamp, nil
}

// names relies on os.ReadDir returning entries sorted by filename.
func (v *FileSnapshotVault) names() ([]string, error) {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
