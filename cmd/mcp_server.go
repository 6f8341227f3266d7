package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/overlay"
	"github.com/mj1618/overlaywin/internal/version"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// mcpServer exposes a running overlay controller as MCP tools.
type mcpServer struct {
	rt  *overlayRuntime
	mcp *mcpserver.MCPServer
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
}

// newMCPServer creates an MCP server with the overlay tools registered.
func newMCPServer(rt *overlayRuntime) *mcpServer {
	s := &mcpServer{rt: rt}
	s.mcp = mcpserver.NewMCPServer(
		"overlaywin",
		version.Version,
		mcpserver.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// serve runs the configured transport until ctx is done.
func (s *mcpServer) serve(ctx context.Context, cfg MCPConfig, log *zap.Logger) error {
	switch cfg.Transport {
	case "stdio":
		err := mcpserver.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		addr := fmt.Sprintf(":%d", cfg.Port)
		errCh := make(chan error, 1)
		go func() {
			log.Info("mcp listening", zap.String("addr", addr))
			errCh <- httpServer.Start(addr)
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) registerTools() {
	// status
	s.mcp.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Report the overlay controller state: phase, focus, intent, visibility, click-through and the target geometry"),
		),
		s.handleStatus,
	)

	// activate_overlay
	s.mcp.AddTool(
		mcp.NewTool("activate_overlay",
			mcp.WithDescription("Bring the overlay to the foreground and give it keyboard focus"),
		),
		s.handleActivateOverlay,
	)

	// focus_target
	s.mcp.AddTool(
		mcp.NewTool("focus_target",
			mcp.WithDescription("Hand keyboard focus back to the target window"),
		),
		s.handleFocusTarget,
	)

	// inject_event
	s.mcp.AddTool(
		mcp.NewTool("inject_event",
			mcp.WithDescription("Feed a tracker event to the controller as if the tracker had reported it"),
			mcp.WithString("type", mcp.Description("Event type: attach, focus, blur, detach, fullscreen, moveresize (or 1-6)"), mcp.Required()),
			mcp.WithNumber("x", mcp.Description("Target X")),
			mcp.WithNumber("y", mcp.Description("Target Y")),
			mcp.WithNumber("width", mcp.Description("Target width")),
			mcp.WithNumber("height", mcp.Description("Target height")),
			mcp.WithBoolean("is_fullscreen", mcp.Description("attach/fullscreen: whether the target is fullscreen")),
			mcp.WithBoolean("has_access", mcp.Description("attach: whether the tracker has accessibility access")),
			mcp.WithBoolean("to_overlay", mcp.Description("blur: focus moved to the overlay")),
			mcp.WithString("matched_title", mcp.Description("attach: which candidate title matched")),
		),
		s.handleInjectEvent,
	)
}

// statusToText serializes a snapshot to YAML for an MCP response.
func statusToText(snap overlay.Snapshot) string {
	b, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Sprintf("phase: %s\nfocus: %s\nvisible: %v", snap.Phase, snap.Focus, snap.Visible)
	}
	return string(b)
}

// commandHandler runs fn on the controller and answers with the resulting status.
func (s *mcpServer) commandHandler(ctx context.Context, fn func(*overlay.Controller) error) (*mcp.CallToolResult, error) {
	var cmdErr error
	if err := s.rt.do(ctx, func(ctrl *overlay.Controller) { cmdErr = fn(ctrl) }); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cmdErr != nil {
		return mcp.NewToolResultError(cmdErr.Error()), nil
	}
	return s.handleStatus(ctx, mcp.CallToolRequest{})
}

func (s *mcpServer) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.rt.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(statusToText(snap)), nil
}

func (s *mcpServer) handleActivateOverlay(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.commandHandler(ctx, (*overlay.Controller).ActivateOverlay)
}

func (s *mcpServer) handleFocusTarget(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.commandHandler(ctx, (*overlay.Controller).FocusTarget)
}

func (s *mcpServer) handleInjectEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := recordFromParams(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.inject(ctx, rec); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rt.flush(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.handleStatus(ctx, request)
}

// recordFromParams builds a tracker record from inject_event arguments.
func recordFromParams(params map[string]interface{}) (model.Record, error) {
	name := stringParam(params, "type", "")
	if name == "" {
		return model.Record{}, errors.New("type is required")
	}
	t, err := model.ParseEventType(name)
	if err != nil {
		return model.Record{}, err
	}
	return model.Record{
		Type:         t,
		X:            intParam(params, "x", 0),
		Y:            intParam(params, "y", 0),
		Width:        intParam(params, "width", 0),
		Height:       intParam(params, "height", 0),
		IsFullscreen: optBoolParam(params, "is_fullscreen"),
		HasAccess:    optBoolParam(params, "has_access"),
		ToOverlay:    optBoolParam(params, "to_overlay"),
		MatchedTitle: stringParam(params, "matched_title", ""),
	}, nil
}
