package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whovoted/rollmap/internal/dataset"
	"github.com/whovoted/rollmap/internal/vuid"
)

var rosterCounty string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Maintain early-vote roster artifacts",
}

var rosterReresolveCmd = &cobra.Command{
	Use:   "reresolve",
	Short: "Retry voter-id resolution for unmatched roster entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, idx, err := buildIndex()
		if err != nil {
			return err
		}

		results, err := vuid.ReResolve(dir, idx, rosterCounty)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("nothing to resolve")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%s: %d resolved\n", r.MapDataName, r.Resolved)
		}

		if cfg.Data.PublicDir != "" {
			for _, r := range results {
				if err := dir.Deploy(cfg.Data.PublicDir, r.MapDataName, r.MetadataName); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

var rosterCumulativeCmd = &cobra.Command{
	Use:   "cumulative",
	Short: "Rebuild the cumulative early-vote merge for an election",
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, _ := cmd.Flags().GetString("year")
		etype, _ := cmd.Flags().GetString("type")
		party, _ := cmd.Flags().GetString("party")

		dir, idx, err := buildIndex()
		if err != nil {
			return err
		}

		k := dataset.Key{
			Jurisdiction: rosterCounty,
			Year:         year,
			ElectionType: etype,
			VotingMethod: "early",
			Party:        party,
		}
		md, err := vuid.MergeCumulative(dir, idx, k)
		if err != nil {
			return err
		}
		fmt.Printf("merged %d snapshots, %d voters (%d unmatched)\n",
			len(md.DaySnapshots), md.TotalAddresses, md.UnmatchedCount)

		if cfg.Data.PublicDir != "" {
			return dir.Deploy(cfg.Data.PublicDir,
				dataset.CumulativeMapDataFilename(md.Key()),
				dataset.CumulativeMetadataFilename(md.Key()),
			)
		}
		return nil
	},
}

func init() {
	rosterCmd.PersistentFlags().StringVar(&rosterCounty, "county", "", "county whose rosters to maintain")
	_ = rosterCmd.MarkPersistentFlagRequired("county")

	rosterCumulativeCmd.Flags().String("year", "", "election year")
	rosterCumulativeCmd.Flags().String("type", "", "election type")
	rosterCumulativeCmd.Flags().String("party", "", "primary party")

	rosterCmd.AddCommand(rosterReresolveCmd)
	rosterCmd.AddCommand(rosterCumulativeCmd)
	rootCmd.AddCommand(rosterCmd)
}
