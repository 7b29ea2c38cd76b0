package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"crux/internal/modules/backup/domain"
	backupout "crux/internal/modules/backup/port/out"
	"crux/internal/platform/clock"
	apperrors "crux/internal/platform/errors"
)

const daemonStartTimeout = 5 * time.Second

type runtimeState struct {
	startedAt time.Time
	cancel    context.CancelFunc
}

// BackupService owns the snapshot format and the archive daemon lifecycle.
// While a daemon is serving, pushes and fetches from other processes travel
// over its socket; without one they hit the vault directly.
type BackupService struct {
	homePath  string
	clock     clock.Clock
	vault     backupout.SnapshotVault
	daemon    backupout.DaemonStore
	ipcServer backupout.IPCServer
	ipcClient backupout.IPCClient

	mu      sync.RWMutex
	runtime *runtimeState
}

func NewBackupService(
	homePath string,
	clk clock.Clock,
	vault backupout.SnapshotVault,
	daemon backupout.DaemonStore,
	ipcServer backupout.IPCServer,
	ipcClient backupout.IPCClient,
) *BackupService {
	return &BackupService{
		homePath:  homePath,
		clock:     clk,
		vault:     vault,
		daemon:    daemon,
		ipcServer: ipcServer,
		ipcClient: ipcClient,
	}
}

// Compose stamps the full logbook into a portable snapshot.
func (s *BackupService) Compose(sessions []domain.Session, current *domain.Session) domain.Snapshot {
	return domain.Snapshot{
		Version:        domain.SnapshotVersion,
		Timestamp:      s.clock.Now().UTC(),
		Sessions:       sessions,
		CurrentSession: current,
	}
}

func (s *BackupService) Encode(snapshot domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (s *BackupService) Parse(data []byte) (domain.Snapshot, error) {
	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.Snapshot{}, apperrors.Validation("Backup file is not valid JSON: %v", err)
	}
	if err := snapshot.Validate(); err != nil {
		return domain.Snapshot{}, apperrors.Validation("Backup file rejected: %v", err)
	}
	return snapshot, nil
}

// StoreSnapshot archives a snapshot, through the daemon when one is serving.
func (s *BackupService) StoreSnapshot(ctx context.Context, snapshot domain.Snapshot) (string, error) {
	s.mu.RLock()
	rt := s.runtime
	s.mu.RUnlock()
	if rt == nil && s.ipcClient != nil && socketReachable(s.daemon.SocketPath()) {
		return s.ipcClient.Push(ctx, s.daemon.SocketPath(), snapshot)
	}
	return s.vault.Store(ctx, snapshot)
}

// LatestSnapshot returns the newest archived snapshot and its name.
func (s *BackupService) LatestSnapshot(ctx context.Context) (domain.Snapshot, string, error) {
	s.mu.RLock()
	rt := s.runtime
	s.mu.RUnlock()
	if rt == nil && s.ipcClient != nil && socketReachable(s.daemon.SocketPath()) {
		return s.ipcClient.Fetch(ctx, s.daemon.SocketPath())
	}
	return s.vault.Latest(ctx)
}

func (s *BackupService) RunDaemon(ctx context.Context) error {
	if err := s.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.runtime = &runtimeState{
		startedAt: s.clock.Now().UTC(),
		cancel:    cancel,
	}
	s.mu.Unlock()

	if err := s.daemon.WritePID(ctx, os.Getpid()); err != nil {
		s.cleanupRuntime(context.Background())
		return err
	}

	ipcErr := make(chan error, 1)
	go func() {
		if s.ipcServer == nil {
			ipcErr <- fmt.Errorf("ipc server is not configured")
			return
		}
		ipcErr <- s.ipcServer.Serve(runCtx, s.daemon.SocketPath(), s)
	}()

	select {
	case <-runCtx.Done():
		s.cleanupRuntime(context.Background())
		return nil
	case err := <-ipcErr:
		s.cleanupRuntime(context.Background())
		if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (s *BackupService) StartDaemon(ctx context.Context) error {
	if err := s.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}
	status, err := s.DaemonStatus(ctx)
	if err == nil && status.Running {
		if socketReachable(s.daemon.SocketPath()) {
			return nil
		}
		return fmt.Errorf("%w: daemon process is alive but socket is unavailable", domain.ErrDaemonStartFailed)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.daemon.LogPath()), 0o755); err != nil {
		return fmt.Errorf("create daemon log dir: %w", err)
	}
	if err := os.Remove(s.daemon.SocketPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale daemon socket: %w", err)
	}

	logFile, err := os.OpenFile(s.daemon.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(execPath, "backup", "daemon", "__run", "--home", s.homePath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if err := s.daemon.WritePID(ctx, cmd.Process.Pid); err != nil {
		return err
	}
	_ = cmd.Process.Release()

	if err := waitForSocket(s.daemon.SocketPath(), daemonStartTimeout); err != nil {
		_ = s.daemon.ClearPID(ctx)
		return fmt.Errorf("%w: %v", domain.ErrDaemonStartFailed, err)
	}
	return nil
}

func (s *BackupService) StopDaemon(ctx context.Context) error {
	s.mu.RLock()
	rt := s.runtime
	s.mu.RUnlock()
	if rt != nil && rt.cancel != nil {
		rt.cancel()
		return nil
	}

	if s.ipcClient != nil {
		_ = s.ipcClient.Stop(ctx, s.daemon.SocketPath())
	}

	pid, err := s.daemon.ReadPID(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(s.daemon.SocketPath())
			return nil
		}
		return err
	}
	if pid <= 0 || !processAlive(pid) {
		_ = s.daemon.ClearPID(ctx)
		_ = os.Remove(s.daemon.SocketPath())
		return nil
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("stop daemon pid=%d: %w", pid, err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if processAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	if err := s.daemon.ClearPID(ctx); err != nil {
		return err
	}
	_ = os.Remove(s.daemon.SocketPath())
	return nil
}

func (s *BackupService) DaemonStatus(ctx context.Context) (backupout.DaemonRuntimeStatus, error) {
	out := backupout.DaemonRuntimeStatus{
		SocketPath: s.daemon.SocketPath(),
		LogPath:    s.daemon.LogPath(),
	}

	pid, err := s.daemon.ReadPID(ctx)
	if err == nil {
		out.PID = pid
		out.Running = processAlive(pid)
	}

	if out.Running && s.ipcClient != nil {
		if status, statusErr := s.ipcClient.Status(ctx, s.daemon.SocketPath()); statusErr == nil {
			out.Status = status
			return out, nil
		}
	}
	// The archive is on local disk, so counts are available without a daemon.
	if status, statusErr := s.Status(ctx); statusErr == nil {
		out.Status = status
	}
	return out, nil
}

// Ping and the handlers below serve the daemon side of the socket.

func (s *BackupService) Ping(ctx context.Context) error { return nil }

func (s *BackupService) Push(ctx context.Context, snapshot domain.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", err
	}
	return s.vault.Store(ctx, snapshot)
}

func (s *BackupService) Fetch(ctx context.Context) (domain.Snapshot, string, error) {
	return s.vault.Latest(ctx)
}

func (s *BackupService) Status(ctx context.Context) (backupout.DaemonStatus, error) {
	s.mu.RLock()
	rt := s.runtime
	s.mu.RUnlock()

	status := backupout.DaemonStatus{}
	if rt != nil {
		status.StartedAt = rt.startedAt
	}
	count, latest, err := s.vault.Count(ctx)
	if err != nil {
		return status, err
	}
	status.Snapshots = count
	status.LatestAt = latest
	return status, nil
}

func (s *BackupService) Stop(ctx context.Context) error {
	return s.StopDaemon(ctx)
}

func (s *BackupService) cleanupRuntime(ctx context.Context) {
	s.mu.Lock()
	rt := s.runtime
	s.runtime = nil
	s.mu.Unlock()
	if rt != nil && rt.cancel != nil {
		rt.cancel()
	}
	_ = s.daemon.ClearPID(ctx)
	_ = os.Remove(s.daemon.SocketPath())
}

func (s *BackupService) cleanupStaleArtifacts(ctx context.Context) error {
	pid, err := s.daemon.ReadPID(ctx)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else if pid > 0 && !processAlive(pid) {
		_ = s.daemon.ClearPID(ctx)
		_ = os.Remove(s.daemon.SocketPath())
	}

	if _, statErr := os.Stat(s.daemon.SocketPath()); statErr == nil {
		if !socketReachable(s.daemon.SocketPath()) {
			if removeErr := os.Remove(s.daemon.SocketPath()); removeErr != nil && !os.IsNotExist(removeErr) {
				return fmt.Errorf("remove stale daemon socket: %w", removeErr)
			}
		}
	}
	return nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if socketReachable(path) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket not ready: %s", path)
}

func socketReachable(path string) bool {
	conn, err := net.DialTimeout("unix", path, 150*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
