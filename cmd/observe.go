package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mj1618/overlaywin/internal/model"
	"github.com/mj1618/overlaywin/internal/output"
	"github.com/mj1618/overlaywin/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Decode a tracker stream into JSONL notifications",
	Long: `Read tracker records and emit one JSON notification per decoded event, without
creating an overlay window. Useful for checking what a tracker reports.

Unknown record types and malformed lines are reported, not fatal.
Output is always JSONL regardless of the --format flag.

Examples:
  ./wintracker | overlaywin observe
  overlaywin observe --events recorded.jsonl --types moveresize,fullscreen`,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	observeCmd.Flags().String("events", "-", "Read records from this JSONL file (- for stdin)")
	observeCmd.Flags().StringSlice("types", nil, "Only report these event types (e.g. \"blur,focus\")")
	observeCmd.Flags().Bool("raw", false, "Include the raw record with each notification")
}

// observation is the payload of an observe notification.
type observation struct {
	Line   int           `json:"line,omitempty"`
	Event  interface{}   `json:"event,omitempty"`
	Record *model.Record `json:"record,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func runObserve(cmd *cobra.Command, args []string) error {
	events, _ := cmd.Flags().GetString("events")
	typeNames, _ := cmd.Flags().GetStringSlice("types")
	raw, _ := cmd.Flags().GetBool("raw")

	filter := map[model.EventType]bool{}
	for _, name := range typeNames {
		t, err := model.ParseEventType(name)
		if err != nil {
			return err
		}
		filter[t] = true
	}

	var in io.Reader = os.Stdin
	if events != "-" {
		f, err := os.Open(events)
		if err != nil {
			return fmt.Errorf("opening events: %w", err)
		}
		defer f.Close() //nolint:errcheck
		in = f
	}

	lw := output.NewLineWriter(output.Stdout)
	start := time.Now()
	counts := map[string]int{}
	emitted := 0

	err := tracker.ReadRecords(in, func(rec model.Record) bool {
		if len(filter) > 0 && !filter[rec.Type] {
			return true
		}
		obs := observation{}
		if raw {
			r := rec
			obs.Record = &r
		}
		name := "unknown"
		if e, ok := tracker.Translate(rec); ok {
			name = tracker.Name(e)
			obs.Event = notificationData(e)
		} else {
			obs.Error = fmt.Sprintf("unknown record type %d", int(rec.Type))
		}
		counts[name]++
		emitted++
		if err := lw.Notify(name, obs); err != nil {
			logger.Warn("writing notification", zap.Error(err))
		}
		return true
	}, func(line int, err error) {
		counts["malformed"]++
		lw.Notify("malformed", observation{Line: line, Error: err.Error()}) //nolint:errcheck
	})
	if err != nil {
		return err
	}

	return lw.Notify("done", map[string]interface{}{
		"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		"events":  emitted,
		"counts":  counts,
	})
}
