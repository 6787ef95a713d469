package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
	"github.com/leapstack-labs/sluice/internal/runner"
)

// ApplyOptions holds options for the apply command.
type ApplyOptions struct {
	Parallel int
}

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	opts := &ApplyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Execute the compiled plan against the target engine",
		Long: `Compile the project and submit every CREATE statement to the target
engine in dependency order. The first failure aborts the run; resources that
were not yet submitted are recorded as skipped.

Every run is recorded in the local run history (see: sluice history).`,
		Example: `  # Apply sequentially
  sluice apply

  # Run up to four independent resources at once
  sluice apply --parallel 4

  # Apply with a named target profile
  sluice apply --target prod`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 1, "Maximum independent resources in flight at once")

	return cmd
}

func runApply(cmd *cobra.Command, opts *ApplyOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	pl, _, err := cc.buildPlan()
	if err != nil {
		return err
	}
	if len(pl.Steps) == 0 {
		cc.Renderer.Println("Nothing to apply: no managed resources found.")
		return nil
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, closeClient, err := cc.connectEngine(ctx)
	if err != nil {
		return err
	}
	defer closeClient()

	store, closeStore, err := cc.openState()
	if err != nil {
		return err
	}
	defer closeStore()

	cc.Renderer.Header(fmt.Sprintf("Applying %d resources to target %q (%s)",
		len(pl.Steps), cc.Cfg.TargetName, client.Name()))

	r := runner.New(client, store, cc.Cfg.TargetName, cc.Logger)
	res, runErr := r.Apply(ctx, pl, "apply", runner.Options{Parallel: opts.Parallel})

	printRunResult(cc.Renderer, res)
	return runErr
}

// printRunResult writes the per-resource outcome counts and the run ID.
func printRunResult(r *output.Renderer, res *runner.Result) {
	if res == nil {
		return
	}
	s := r.Styles()
	r.Println()
	r.Printf("%s  %s  %s\n",
		s.Success.Render(fmt.Sprintf("%d succeeded", res.Succeeded)),
		s.Error.Render(fmt.Sprintf("%d failed", res.Failed)),
		s.Muted.Render(fmt.Sprintf("%d skipped", res.Skipped)))
	if res.Run != nil {
		r.Mutedf("Run %s recorded; inspect with: sluice history %s", res.Run.ID, res.Run.ID)
	}
}
