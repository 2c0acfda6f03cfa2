package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whovoted/rollmap/internal/geocode"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the address cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and provider configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		orch, err := geocode.NewFromConfig(cfg.Geocode, cfg.Data.CacheFile)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(orch.Stats(), "", "  ")
		if err != nil {
			return err
		}
		os.Stdout.Write(append(out, '\n'))
		return nil
	},
}

var cacheLookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Look up one address in the cache without touching providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := geocode.NewFromConfig(cfg.Geocode, cfg.Data.CacheFile)
		if err != nil {
			return err
		}

		r, ok := orch.Lookup(args[0])
		if !ok {
			fmt.Fprintln(os.Stderr, "not cached")
			os.Exit(1)
		}
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		os.Stdout.Write(append(out, '\n'))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheLookupCmd)
	rootCmd.AddCommand(cacheCmd)
}
