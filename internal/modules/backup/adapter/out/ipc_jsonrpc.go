package out

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"time"

	"crux/internal/modules/backup/domain"
	backupout "crux/internal/modules/backup/port/out"
)

type JSONRPCServer struct{}

type JSONRPCClient struct{}

func NewJSONRPCServer() backupout.IPCServer {
	return &JSONRPCServer{}
}

func NewJSONRPCClient() backupout.IPCClient {
	return &JSONRPCClient{}
}

type rpcHandler struct {
	h backupout.IPCHandler
}

// net/rpc only registers methods whose argument and reply types are
// exported, so the wire structs carry public names.

type PushRequest struct {
	Snapshot domain.Snapshot
}

type PushResponse struct {
	Name string
}

type FetchResponse struct {
	Snapshot domain.Snapshot
	Name     string
}

type StatusResponse struct {
	Status backupout.DaemonStatus
}

type Empty struct{}

func (s *rpcHandler) Ping(_ Empty, _ *Empty) error {
	return s.h.Ping(context.Background())
}

func (s *rpcHandler) Push(req PushRequest, resp *PushResponse) error {
	name, err := s.h.Push(context.Background(), req.Snapshot)
	if err != nil {
		return err
	}
	resp.Name = name
	return nil
}

func (s *rpcHandler) Fetch(_ Empty, resp *FetchResponse) error {
	snapshot, name, err := s.h.Fetch(context.Background())
	if err != nil {
		return err
	}
	resp.Snapshot = snapshot
	resp.Name = name
	return nil
}

func (s *rpcHandler) Status(_ Empty, resp *StatusResponse) error {
	status, err := s.h.Status(context.Background())
	if err != nil {
		return err
	}
	resp.Status = status
	return nil
}

func (s *rpcHandler) Stop(_ Empty, _ *Empty) error {
	return s.h.Stop(context.Background())
}

func (s *JSONRPCServer) Serve(ctx context.Context, socketPath string, handler backupout.IPCHandler) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create ipc dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale ipc socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen ipc socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod ipc socket: %w", err)
	}
	defer ln.Close()

	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName("Backup", &rpcHandler{h: handler}); err != nil {
		return fmt.Errorf("register ipc handler: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go rpcSrv.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

func (c *JSONRPCClient) Ping(ctx context.Context, socketPath string) error {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call("Backup.Ping", Empty{}, &Empty{})
}

func (c *JSONRPCClient) Push(ctx context.Context, socketPath string, snapshot domain.Snapshot) (string, error) {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return "", err
	}
	defer client.Close()
	resp := PushResponse{}
	if err := client.Call("Backup.Push", PushRequest{Snapshot: snapshot}, &resp); err != nil {
		return "", err
	}
	return resp.Name, nil
}

func (c *JSONRPCClient) Fetch(ctx context.Context, socketPath string) (domain.Snapshot, string, error) {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return domain.Snapshot{}, "", err
	}
	defer client.Close()
	resp := FetchResponse{}
	if err := client.Call("Backup.Fetch", Empty{}, &resp); err != nil {
		return domain.Snapshot{}, "", err
	}
	return resp.Snapshot, resp.Name, nil
}

func (c *JSONRPCClient) Status(ctx context.Context, socketPath string) (backupout.DaemonStatus, error) {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return backupout.DaemonStatus{}, err
	}
	defer client.Close()
	resp := StatusResponse{}
	if err := client.Call("Backup.Status", Empty{}, &resp); err != nil {
		return backupout.DaemonStatus{}, err
	}
	return resp.Status, nil
}

func (c *JSONRPCClient) Stop(ctx context.Context, socketPath string) error {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Call("Backup.Stop", Empty{}, &Empty{})
}

func dialClient(ctx context.Context, socketPath string) (*rpc.Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	client := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return client, nil
}
