package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// DAGOptions holds options for the dag command.
type DAGOptions struct {
	JSON bool
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	opts := &DAGOptions{}
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the dependency graph",
		Long: `Display the dependency graph of all managed resources, grouped by
execution wave. Resources in the same wave depend only on earlier waves and
can be created concurrently.`,
		Example: `  # Show the dependency graph
  sluice dag

  # Output as JSON
  sluice dag --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

func runDAG(cmd *cobra.Command, opts *DAGOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	pl, _, err := cc.buildPlan()
	if err != nil {
		return err
	}

	if opts.JSON {
		doc := newPlanDoc(pl)
		return cc.Renderer.JSON(map[string]any{
			"waves": doc.Waves,
			"edges": doc.Edges,
		})
	}

	// Dependencies per resource, in stable order.
	parents := map[string][]string{}
	for _, e := range pl.Edges {
		parents[e.To] = append(parents[e.To], e.From)
	}
	for _, deps := range parents {
		sort.Strings(deps)
	}

	s := cc.Renderer.Styles()
	cc.Renderer.Header(fmt.Sprintf("Dependency graph: %d resources, %d edges", len(pl.Steps), len(pl.Edges)))
	for i, wave := range pl.Waves {
		cc.Renderer.Println()
		cc.Renderer.Println(s.Key.Render(fmt.Sprintf("Wave %d", i+1)))
		for _, key := range wave {
			if deps := parents[key]; len(deps) > 0 {
				cc.Renderer.Printf("  %s %s\n", key, s.Muted.Render("(after "+strings.Join(deps, ", ")+")"))
			} else {
				cc.Renderer.Printf("  %s\n", key)
			}
		}
	}
	return nil
}
