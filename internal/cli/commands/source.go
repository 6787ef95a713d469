package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/internal/runner"
)

// NewSourceCommand creates the source command group.
func NewSourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Work with on-demand source resources",
		Long: `Source resources are declared in sources/ and never take part in the
managed build plan. They are created explicitly, one by one or all at once.`,
	}
	cmd.AddCommand(newSourceCreateCommand())
	return cmd
}

// SourceCreateOptions holds options for source create.
type SourceCreateOptions struct {
	All     bool
	Execute bool
}

func newSourceCreateCommand() *cobra.Command {
	opts := &SourceCreateOptions{}
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Render or execute CREATE statements for source resources",
		Long: `Render the CREATE statements of one declared source resource, or of all
of them in declaration order.

The name may be bare (pageviews) or namespace-qualified (kafka.pageviews).
By default the statements are printed; --execute submits them to the target
engine and records the run.`,
		Example: `  # Print the statements for one source
  sluice source create kafka_main

  # Print the statements for every source
  sluice source create --all

  # Submit to the engine instead of printing
  sluice source create pageviews --execute`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourceCreate(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Create every declared source resource")
	cmd.Flags().BoolVar(&opts.Execute, "execute", false, "Submit the statements to the engine")

	return cmd
}

func runSourceCreate(cmd *cobra.Command, args []string, opts *SourceCreateOptions) error {
	if opts.All && len(args) > 0 {
		return fmt.Errorf("cannot combine a source name with --all")
	}
	if !opts.All && len(args) == 0 {
		return fmt.Errorf("provide a source name or --all")
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	catalog, _, err := cc.loadCatalog()
	if err != nil {
		return err
	}

	planner := plan.New(catalog, cc.Logger)
	var pl *plan.Plan
	if opts.All {
		pl, err = planner.CreateAllUnmanaged()
	} else {
		pl, err = planner.CreateUnmanaged(args[0])
	}
	if err != nil {
		return err
	}
	if len(pl.Steps) == 0 {
		cc.Renderer.Println("No source resources declared.")
		return nil
	}

	if !opts.Execute {
		printPlan(cc.Renderer, pl)
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

	r := runner.New(client, store, cc.Cfg.TargetName, cc.Logger)
	res, runErr := r.Apply(ctx, pl, "source create", runner.Options{})

	printRunResult(cc.Renderer, res)
	return runErr
}
