package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whovoted/rollmap/internal/precinct"
)

var (
	precinctsOut  string
	precinctsFIPS string
)

var precinctsCmd = &cobra.Command{
	Use:   "precincts",
	Short: "Precinct boundary tools",
}

var precinctsConvertCmd = &cobra.Command{
	Use:   "convert <shapefile>",
	Short: "Convert a voting-district shapefile to GeoJSON",
	Long:  "Converts a TIGER VTD shapefile into the precinct boundary GeoJSON overlay, optionally filtered to one county by FIPS code.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fips := precinctsFIPS
		if fips == "" {
			fips = cfg.Precinct.CountyFIPS
		}

		n, err := precinct.Convert(args[0], precinctsOut, precinct.Options{CountyFIPS: fips})
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d districts to %s\n", n, precinctsOut)
		return nil
	},
}

func init() {
	precinctsConvertCmd.Flags().StringVarP(&precinctsOut, "out", "o", "precincts.geojson", "output GeoJSON path")
	precinctsConvertCmd.Flags().StringVar(&precinctsFIPS, "county-fips", "", "keep only this county FIPS code")

	precinctsCmd.AddCommand(precinctsConvertCmd)
	rootCmd.AddCommand(precinctsCmd)
}
