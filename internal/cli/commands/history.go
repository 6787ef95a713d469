package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
	"github.com/leapstack-labs/sluice/internal/state"
	"github.com/leapstack-labs/sluice/pkg/core"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	JSON  bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs and their statements",
		Long: `Without arguments, list recent runs with per-statement outcome counts.
With a run ID, show every statement of that run in submission order.`,
		Example: `  # Recent runs
  sluice history

  # Only the last five runs
  sluice history --limit 5

  # Every statement of one run
  sluice history 2f1c9c4e-8a5b-4f30-9c57-1a2b3c4d5e6f

  # Machine-readable
  sluice history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := cc.openState()
	if err != nil {
		return err
	}
	defer closeStore()

	if len(args) == 1 {
		return showRun(cc, store, args[0], opts)
	}
	return listRunHistory(cc, store, opts)
}

// runSummaryDoc is the JSON shape of one run in a history listing.
type runSummaryDoc struct {
	ID          string     `json:"id"`
	Target      string     `json:"target"`
	Command     string     `json:"command"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Statements  int        `json:"statements"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
}

func listRunHistory(cc *CommandContext, store *state.Store, opts *HistoryOptions) error {
	summaries, err := store.ListRunSummaries(opts.Limit)
	if err != nil {
		return err
	}

	if opts.JSON {
		docs := make([]runSummaryDoc, 0, len(summaries))
		for _, sum := range summaries {
			docs = append(docs, runSummaryDoc{
				ID:          sum.ID,
				Target:      sum.Target,
				Command:     sum.Command,
				Status:      string(sum.Status),
				StartedAt:   sum.StartedAt,
				CompletedAt: sum.CompletedAt,
				Error:       sum.Error,
				Statements:  sum.Statements,
				Succeeded:   sum.Succeeded,
				Failed:      sum.Failed,
				Skipped:     sum.Skipped,
			})
		}
		return cc.Renderer.JSON(docs)
	}

	if len(summaries) == 0 {
		cc.Renderer.Println("No runs recorded yet.")
		return nil
	}

	s := cc.Renderer.Styles()
	cc.Renderer.Header(fmt.Sprintf("Runs (%d shown)", len(summaries)))

	t := table.NewWriter()
	t.SetOutputMirror(cc.Renderer.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Target", "Command", "Status", "Started", "Duration", "OK", "Fail", "Skip"})
	for _, sum := range summaries {
		t.AppendRow(table.Row{
			sum.ID,
			sum.Target,
			sum.Command,
			styledStatus(s, string(sum.Status)),
			sum.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(&sum.Run),
			sum.Succeeded,
			sum.Failed,
			sum.Skipped,
		})
	}
	t.Render()
	return nil
}

// statementDoc is the JSON shape of one statement record.
type statementDoc struct {
	Key        string `json:"key"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Statement  string `json:"statement"`
	Error      string `json:"error,omitempty"`
}

func showRun(cc *CommandContext, store *state.Store, runID string, opts *HistoryOptions) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	statements, err := store.ListStatements(runID)
	if err != nil {
		return err
	}

	if opts.JSON {
		docs := make([]statementDoc, 0, len(statements))
		for _, st := range statements {
			docs = append(docs, statementDoc{
				Key:        st.Key,
				Kind:       st.Kind,
				Status:     string(st.Status),
				DurationMS: st.DurationMS,
				Statement:  st.Statement,
				Error:      st.Error,
			})
		}
		return cc.Renderer.JSON(map[string]any{
			"id":         run.ID,
			"target":     run.Target,
			"command":    run.Command,
			"status":     string(run.Status),
			"started_at": run.StartedAt,
			"error":      run.Error,
			"statements": docs,
		})
	}

	s := cc.Renderer.Styles()
	cc.Renderer.Header(fmt.Sprintf("Run %s", run.ID))
	cc.Renderer.Printf("Target: %s  Command: %s  Status: %s  Duration: %s\n",
		run.Target, run.Command, styledStatus(s, string(run.Status)), runDuration(run))
	if run.Error != "" {
		cc.Renderer.Errorf("%s", run.Error)
	}
	cc.Renderer.Println()

	t := table.NewWriter()
	t.SetOutputMirror(cc.Renderer.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Resource", "Kind", "Status", "ms", "Error"})
	for i, st := range statements {
		t.AppendRow(table.Row{
			i + 1,
			st.Key,
			output.TitleCase(st.Kind),
			styledStatus(s, string(st.Status)),
			st.DurationMS,
			truncate(st.Error, 60),
		})
	}
	t.Render()
	return nil
}

func styledStatus(s *output.Styles, status string) string {
	switch status {
	case string(core.RunStatusCompleted), string(core.StatementStatusSuccess):
		return s.Success.Render(status)
	case string(core.RunStatusFailed):
		return s.Error.Render(status)
	case string(core.StatementStatusSkipped):
		return s.Muted.Render(status)
	case string(core.RunStatusRunning):
		return s.Warning.Render(status)
	default:
		return status
	}
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
