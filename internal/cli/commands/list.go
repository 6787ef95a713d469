package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	JSON bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all resources in the project",
		Long: `List every resource the project declares: managed models in declaration
order, then on-demand sources grouped by namespace.

The engine name column shows the exact identifier each resource goes by on
the engine under the active target scope.`,
		Example: `  # List all resources
  sluice list

  # List as JSON
  sluice list --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

// resourceListing is the JSON shape of one listed resource.
type resourceListing struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace,omitempty"`
	Managed    bool   `json:"managed"`
	EngineName string `json:"engine_name"`
	Path       string `json:"path,omitempty"`
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	catalog, result, err := cc.loadCatalog()
	if err != nil {
		return err
	}

	scope := catalog.Scope()
	listings := make([]resourceListing, 0, catalog.Len())
	for _, res := range catalog.Resources() {
		listings = append(listings, resourceListing{
			Key:        res.Key(),
			Name:       res.Name,
			Kind:       res.Kind.String(),
			Namespace:  res.Namespace,
			Managed:    res.IsManaged(),
			EngineName: res.EngineName(scope),
			Path:       res.Path,
		})
	}

	if opts.JSON {
		return cc.Renderer.JSON(listings)
	}

	cc.Renderer.Header(fmt.Sprintf("Resources (%d total)", len(listings)))

	t := table.NewWriter()
	t.SetOutputMirror(cc.Renderer.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Key", "Kind", "Class", "Engine Name"})
	for _, l := range listings {
		class := "managed"
		if !l.Managed {
			class = "source"
		}
		t.AppendRow(table.Row{l.Key, output.TitleCase(l.Kind), class, l.EngineName})
	}
	t.Render()

	cc.Renderer.Mutedf("%d resources from %d files", catalog.Len(), result.Files)
	return nil
}
