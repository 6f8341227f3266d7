package cmd

import (
	"fmt"
	"os"

	"github.com/mj1618/overlaywin/internal/config"
	"github.com/mj1618/overlaywin/internal/logging"
	"github.com/mj1618/overlaywin/internal/output"
	"github.com/mj1618/overlaywin/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "overlaywin",
	Short: "Keep an overlay window glued to another application's window",
	Long: `overlaywin shadows a target window with a transparent, always-on-top overlay.
It follows the target's moves, resizes and fullscreen transitions reported by a
window tracker, and arbitrates keyboard focus between the overlay and the target.`,
	SilenceUsage: true,
}

var (
	// appConfig and logger are set by the root command before any subcommand runs.
	appConfig = config.Default()
	logger    = zap.NewNop()
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.overlaywin/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")

		// Smart default: JSON when piped, YAML for a terminal.
		if format == "" {
			if output.IsOutputPiped() {
				format = string(output.FormatJSON)
			} else {
				format = string(output.FormatYAML)
			}
		}
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		if prettyFlag := cmd.Flags().Lookup("pretty"); prettyFlag != nil {
			if pretty, err := cmd.Flags().GetBool("pretty"); err == nil && pretty {
				output.PrettyOutput = true
			}
		}

		path, _ := rootCmd.PersistentFlags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		log, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		appConfig, logger = cfg, log
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	}
}
