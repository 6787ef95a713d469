package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sluice/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Sluice project",
		Long: `Initialize a new Sluice project with a starter layout.

This creates:
  - sluice.yaml with a local engine target
  - sources/ with an example store and source stream
  - models/ with two example models reading from it`,
		Example: `  # Initialize in the current directory
  sluice init

  # Initialize a new directory
  sluice init my-project

  # Overwrite existing files
  sluice init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "sluice.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("sluice.yaml already exists. Use --force to overwrite")
	}

	if err := copyScaffold(dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listScaffoldFiles()
	for _, f := range files {
		r.Successf("  %s", f)
	}

	r.Println("")
	r.Successf("Sluice project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point sluice.yaml at your engine")
	r.Println("  2. Declare upstream streams and stores in sources/")
	r.Println("  3. Write models in models/")
	r.Println("  4. Run 'sluice compile' to inspect the plan")
	r.Println("  5. Run 'sluice apply' to create everything")

	return nil
}
