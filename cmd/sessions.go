package cmd

import (
	"fmt"

	"github.com/mj1618/overlaywin/internal/journal"
	"github.com/mj1618/overlaywin/internal/output"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [id|latest]",
	Short: "List journaled sessions",
	Long: `List sessions recorded with attach --journal, newest first.

With an id (or "latest"), show that session and its entries.
With --delete, remove the session from the journal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().Int("limit", 20, "Max sessions to list (0 = all)")
	sessionsCmd.Flags().Bool("delete", false, "Delete the given session")
	sessionsCmd.Flags().Bool("pretty", false, "Pretty-print output (no-op for YAML)")
}

// sessionDetail is the output for a single session.
type sessionDetail struct {
	Session journal.SessionInfo `yaml:"session" json:"session"`
	Entries []entryView         `yaml:"entries" json:"entries"`
}

// entryView renders an entry payload as text so YAML output stays readable.
type entryView struct {
	Seq     int64  `yaml:"seq"     json:"seq"`
	Offset  string `yaml:"offset"  json:"offset"`
	Kind    string `yaml:"kind"    json:"kind"`
	Payload string `yaml:"payload" json:"payload"`
}

func runSessions(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	del, _ := cmd.Flags().GetBool("delete")
	if del && len(args) == 0 {
		return fmt.Errorf("--delete needs a session id")
	}

	ctx := cmd.Context()
	store, err := openJournal(ctx, appConfig)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if len(args) == 0 {
		sessions, err := store.Sessions(ctx, limit)
		if err != nil {
			return err
		}
		if sessions == nil {
			sessions = []journal.SessionInfo{}
		}
		return output.Print(sessions)
	}

	info, err := resolveSession(ctx, store, args[0])
	if err != nil {
		return err
	}
	if del {
		if err := store.DeleteSession(ctx, info.ID); err != nil {
			return err
		}
		return output.Print(map[string]string{"deleted": info.ID})
	}

	entries, err := store.Entries(ctx, info.ID)
	if err != nil {
		return err
	}
	detail := sessionDetail{Session: info, Entries: make([]entryView, 0, len(entries))}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, entryView{
			Seq:     e.Seq,
			Offset:  e.Offset.String(),
			Kind:    string(e.Kind),
			Payload: string(e.Payload),
		})
	}
	return output.Print(detail)
}
