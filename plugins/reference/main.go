package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pluginrpc "crux/internal/modules/plugin/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{
		Name:         "reference",
		Version:      "1.0.0",
		Capabilities: []string{"command", "analyze", "fullscreen_tty"},
	}, nil
}

func (s *server) ListCommands(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.ListCommandsResponse, error) {
	return &pluginrpc.ListCommandsResponse{Commands: []pluginrpc.CommandDescriptor{
		{ID: "echo", Title: "Echo", Description: "Echoes the provided input", Kind: "command", TimeoutMS: 2000},
		{ID: "send-rate", Title: "Send rate", Description: "Counts sends in an attempt list", Kind: "analyze", InputSchemaJSON: `{"type":"object","properties":{"attempts":{"type":"array"}}}`, TimeoutMS: 2500},
		{ID: "hangboard", Title: "Hangboard timer", Description: "Prepares a hangboard timer in the terminal", Kind: "fullscreen_tty", TimeoutMS: 1500},
	}}, nil
}

func (s *server) Execute(_ context.Context, in *pluginrpc.ExecuteRequest) (*pluginrpc.ExecuteResponse, error) {
	switch in.CommandID {
	case "echo":
		if strings.TrimSpace(in.InputJSON) == "" {
			return &pluginrpc.ExecuteResponse{Stdout: "echo", OutputJSON: `{"echo":""}`, ExitCode: 0}, nil
		}
		return &pluginrpc.ExecuteResponse{Stdout: in.InputJSON, OutputJSON: fmt.Sprintf(`{"echo":%q}`, in.InputJSON), ExitCode: 0}, nil
	case "send-rate":
		var payload struct {
			Attempts []struct {
				Success bool `json:"success"`
			} `json:"attempts"`
		}
		if strings.TrimSpace(in.InputJSON) != "" {
			if err := json.Unmarshal([]byte(in.InputJSON), &payload); err != nil {
				return &pluginrpc.ExecuteResponse{Stderr: "attempts payload is not valid JSON", ExitCode: 1}, nil
			}
		}
		sends := 0
		for _, attempt := range payload.Attempts {
			if attempt.Success {
				sends++
			}
		}
		summary := map[string]any{
			"session_id": in.Context.SessionID,
			"route_id":   in.Context.RouteID,
			"total":      len(payload.Attempts),
			"sends":      sends,
		}
		raw, _ := json.Marshal(summary)
		return &pluginrpc.ExecuteResponse{Stdout: fmt.Sprintf("%d of %d sent", sends, len(payload.Attempts)), OutputJSON: string(raw), ExitCode: 0}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s", in.CommandID)
	}
}

func (s *server) PrepareTTY(_ context.Context, in *pluginrpc.PrepareTTYRequest) (*pluginrpc.PrepareTTYResponse, error) {
	if in.CommandID != "hangboard" {
		return nil, fmt.Errorf("unknown tty command: %s", in.CommandID)
	}
	return &pluginrpc.PrepareTTYResponse{
		Argv: []string{"/bin/sh", "-lc", "echo 'hangboard: 7s hang / 3s rest x6'"},
		Cwd:  in.Context.Cwd,
		Env: map[string]string{
			"CRUX_PLUGIN": "reference",
		},
	}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
