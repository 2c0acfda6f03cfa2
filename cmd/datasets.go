package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/whovoted/rollmap/internal/dataset"
	"github.com/whovoted/rollmap/internal/pipeline"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Inspect and maintain persisted datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, idx, err := buildIndex()
		if err != nil {
			return err
		}

		all := idx.All()
		if len(all) == 0 {
			fmt.Fprintln(os.Stderr, "No datasets found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COUNTY\tDATE\tTYPE\tMETHOD\tPARTY\tVOTERS\tGEOCODED\tUNMATCHED")
		for _, md := range all {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				md.County, md.ElectionDate, md.ElectionType, md.VotingMethod, md.PrimaryParty,
				md.TotalAddresses, md.SuccessfullyGeocoded, md.UnmatchedCount,
			)
		}
		return w.Flush()
	},
}

var datasetsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a dataset with the given parameters already exists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		k := dataset.Key{
			Jurisdiction: processCounty,
			Year:         processYear,
			ElectionType: processType,
			ElectionDate: processDate,
			VotingMethod: processMethod,
			Party:        processParty,
		}
		if err := k.Validate(); err != nil {
			return err
		}

		_, idx, err := buildIndex()
		if err != nil {
			return err
		}
		if md := idx.Find(k); md != nil {
			fmt.Printf("exists: %s (uploaded as %s)\n", dataset.MapDataFilename(k), md.OriginalFilename)
			return nil
		}
		fmt.Println("not found")
		return nil
	},
}

var regeocodeCmd = &cobra.Command{
	Use:   "regeocode",
	Short: "Re-run an existing dataset through the current provider chain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		k := dataset.Key{
			Jurisdiction: processCounty,
			Year:         processYear,
			ElectionType: processType,
			ElectionDate: processDate,
			VotingMethod: processMethod,
			Party:        processParty,
		}
		if err := k.Validate(); err != nil {
			return err
		}

		env, err := buildEnv()
		if err != nil {
			return err
		}

		job := &pipeline.Job{ID: "regeocode", Key: k, ReGeocode: true}
		if err := job.Run(cmd.Context(), env); err != nil {
			return err
		}

		snap := job.Snapshot()
		fmt.Printf("re-geocoded %d addresses (%d resolved, %d failed)\n",
			snap.Total, snap.Geocoded, snap.Failures)
		if snap.Failures > 0 {
			return eris.Errorf("%d addresses could not be re-geocoded; see %s", snap.Failures, dataset.ErrorReportName)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{datasetsCheckCmd, regeocodeCmd} {
		c.Flags().StringVar(&processCounty, "county", "", "county")
		c.Flags().StringVar(&processYear, "year", "", "election year")
		c.Flags().StringVar(&processType, "type", "", "election type")
		c.Flags().StringVar(&processDate, "date", "", "election date (YYYY-MM-DD)")
		c.Flags().StringVar(&processMethod, "method", "election day", "voting method")
		c.Flags().StringVar(&processParty, "party", "", "primary party")
	}

	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsCheckCmd)
	datasetsCmd.AddCommand(regeocodeCmd)
	rootCmd.AddCommand(datasetsCmd)
}
