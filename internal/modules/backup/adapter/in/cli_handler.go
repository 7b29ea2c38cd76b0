package in

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crux/internal/modules/backup/dto"
	backupin "crux/internal/modules/backup/port/in"
)

// CLIHandler adapts backup commands to the usecase API. It owns the file
// reads and writes so the usecase sees only bytes.
type CLIHandler struct {
	usecase backupin.Usecase
}

func NewCLIHandler(usecase backupin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Export writes a snapshot file and returns the path it landed on. An empty
// destination picks a dated name in the working directory.
func (h CLIHandler) Export(ctx context.Context, destPath string) (string, dto.SnapshotOutput, error) {
	out, err := h.usecase.Export(ctx)
	if err != nil {
		return "", dto.SnapshotOutput{}, err
	}
	if destPath == "" {
		destPath = fmt.Sprintf("crux-backup-%s.json", out.Timestamp.UTC().Format("2006-01-02"))
	}
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", dto.SnapshotOutput{}, fmt.Errorf("create backup dir: %w", err)
		}
	}
	if err := os.WriteFile(destPath, out.Data, 0o644); err != nil {
		return "", dto.SnapshotOutput{}, fmt.Errorf("write backup: %w", err)
	}
	return destPath, out, nil
}

func (h CLIHandler) Import(ctx context.Context, srcPath string) (dto.ImportOutput, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return dto.ImportOutput{}, fmt.Errorf("read backup: %w", err)
	}
	return h.usecase.Import(ctx, data)
}

func (h CLIHandler) Push(ctx context.Context) (dto.PushOutput, error) {
	return h.usecase.Push(ctx)
}

func (h CLIHandler) Pull(ctx context.Context) (dto.PullOutput, error) {
	return h.usecase.Pull(ctx)
}

func (h CLIHandler) RunDaemon(ctx context.Context) error {
	return h.usecase.RunDaemon(ctx)
}

func (h CLIHandler) StartDaemon(ctx context.Context) error {
	return h.usecase.StartDaemon(ctx)
}

func (h CLIHandler) StopDaemon(ctx context.Context) error {
	return h.usecase.StopDaemon(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.DaemonStatusOutput, error) {
	return h.usecase.DaemonStatus(ctx)
}

// Logs returns the last tailLines lines of the daemon log, or an empty string
// when the daemon never ran.
func (h CLIHandler) Logs(ctx context.Context, tailLines int) (string, error) {
	status, err := h.usecase.DaemonStatus(ctx)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(status.LogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read daemon log: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if tailLines > 0 && len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, "\n"), nil
}
