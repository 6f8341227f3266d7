package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an overlay and expose it as MCP tools",
	Long: `Attach an overlay to the target and start a Model Context Protocol (MCP) server that
controls it. Agents can read the controller state, move keyboard focus between the
overlay and the target, and inject tracker events.

Tools: status, activate_overlay, focus_target, inject_event.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

With the stdio transport stdin belongs to MCP, so tracker records come from
--tracker, --events <file> or inject_event only.

Examples:
  overlaywin serve --title Game --tracker ./wintracker
  overlaywin serve --title Game --window headless --transport streamable-http --port 8080
  overlaywin serve --title Game --metrics-addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().String("window", "", "Overlay window backend: ebiten, headless (default from config)")
	addTargetFlags(serveCmd)
	addTrackerFlags(serveCmd, "")
	serveCmd.Flags().Bool("journal", false, "Record the session in the journal for later replay")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	cfg := *appConfig
	if err := applyTargetFlags(cmd, &cfg); err != nil {
		return err
	}
	opts, err := runtimeOptionsFrom(&cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, out, cleanup, err := trackerIO(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	opts.TrackerIn, opts.TrackerOut = in, out

	rt, err := newRuntime(ctx, opts, logger)
	if err != nil {
		return err
	}
	srv := newMCPServer(rt)
	mcpCfg := MCPConfig{Transport: transport, Port: port}

	return rt.run(ctx, func(ctx context.Context) error {
		if err := rt.attach(ctx, nil); err != nil {
			return err
		}
		logger.Info("overlay attached", zap.String("transport", transport))
		return srv.serve(ctx, mcpCfg, logger)
	})
}
