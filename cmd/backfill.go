package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/whovoted/rollmap/internal/xref"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Retroactively re-run party cross-reference over all datasets",
	Long:  "Rebuilds the prior-party annotations for every persisted dataset against the merged lookup of all datasets earlier than it. Useful after importing historical rolls out of order.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, idx, err := buildIndex()
		if err != nil {
			return err
		}

		results, err := xref.NewEngine(dir, idx).BackfillAll()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COUNTY\tDATE\tVOTERS\tSWITCHED\tSKIPPED")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n",
				r.Key.Jurisdiction, r.Key.ElectionDate, r.Voters, r.Switched, r.Skipped)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}
