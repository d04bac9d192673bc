package cli

import (
	"azdoexport/internal/engine"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var sectionsQuiet bool

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the sections an export fetches",
	Long: `List every section of the export document in fetch order, with the
service each one is fetched from (core, identity or analytics).

Sections fetched from analytics are the ones dropped by --skip-metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		plan, err := engine.BuildPlan(false)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if sectionsQuiet {
			for _, task := range plan.Tasks {
				fmt.Fprintln(out, task.Entity)
			}
			return nil
		}

		bold := color.New(color.Bold)
		bold.Fprintf(out, "%-28s %s\n", "SECTION", "SOURCE")
		for _, task := range plan.Tasks {
			fmt.Fprintf(out, "%-28s %s\n", task.Entity, task.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
	sectionsCmd.Flags().BoolVarP(&sectionsQuiet, "quiet", "q", false, "Print section names only")
}
