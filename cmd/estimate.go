package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kerneltune/kerneltune/tune"
	"github.com/kerneltune/kerneltune/tune/workload"
)

var estimateConfigPath string

// estimateCmd prints the roofline prior for every call site in a workload
// spec without running anything. Useful for sanity-checking a spec before a
// long benchmark.
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Print prior cost estimates for a workload spec",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := workload.LoadSpec(estimateConfigPath)
		if err != nil {
			logrus.Fatalf("Failed to load workload spec %s: %v", estimateConfigPath, err)
		}
		runner, err := workload.NewRunner(spec)
		if err != nil {
			logrus.Fatalf("Failed to build workload: %v", err)
		}
		printEstimates(os.Stdout, runner.Sites())
	},
}

// printEstimates writes the per-site candidate table, cheapest arm starred.
func printEstimates(w io.Writer, sites []*workload.Site) {
	fmt.Fprintln(w, "=== Prior Cost Estimates ===")
	for _, site := range sites {
		fmt.Fprintf(w, "%s (%s)\n", site.ID(), site.Repr())
		estimates := site.CostEstimates()
		best := tune.Disabled
		min := 0.0
		for i, est := range estimates {
			if i == 0 || est.Cost < min {
				min = est.Cost
				best = est.Impl
			}
		}
		for _, est := range estimates {
			marker := " "
			if est.Impl == best {
				marker = "*"
			}
			fmt.Fprintf(w, " %s %-16s : %12.0f ns\n", marker, est.Impl, est.Cost)
		}
	}
}

func init() {
	estimateCmd.Flags().StringVar(&estimateConfigPath, "config", "", "Path to workload spec YAML")
	_ = estimateCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(estimateCmd)
}
