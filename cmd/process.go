package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
	"github.com/whovoted/rollmap/internal/pipeline"
	"github.com/whovoted/rollmap/internal/store"
)

var (
	processCounty  string
	processYear    string
	processType    string
	processDate    string
	processMethod  string
	processParty   string
	processReplace bool
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Geocode a voter roll or early-vote roster upload",
	Long:  "Reads a CSV or Excel upload, geocodes every address through the cached provider chain (or resolves roster rows by voter id), cross-references prior party affiliation, and writes the GeoJSON artifact pair. Missing election parameters are recovered from the filename where possible.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		key, err := keyFromFlagsAndFilename(path)
		if err != nil {
			return err
		}

		env, err := buildEnv()
		if err != nil {
			return err
		}

		opts := []pipeline.SchedulerOption{
			pipeline.WithMaxConcurrent(cfg.Jobs.MaxConcurrent),
			pipeline.WithPollInterval(time.Duration(cfg.Jobs.PollMillis) * time.Millisecond),
		}
		if st, err := initStore(ctx); err == nil {
			defer st.Close() //nolint:errcheck
			opts = append(opts, pipeline.WithHistory(store.NewHistory(st)))
		} else {
			zap.L().Warn("job history disabled", zap.Error(err))
		}
		sched := pipeline.NewScheduler(env, opts...)

		id := sched.Submit(&pipeline.Job{
			Key:        key,
			SourcePath: path,
			Replace:    processReplace,
		})
		sched.Drain(ctx)

		snap, _ := sched.Get(id)
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal job snapshot")
		}
		os.Stdout.Write(append(out, '\n'))

		if snap.Status != pipeline.StatusCompleted {
			return eris.Errorf("job %s %s: %s", truncateID(id), snap.Status, snap.Error)
		}
		return nil
	},
}

// keyFromFlagsAndFilename builds the dataset key from flags, filling gaps
// from what the upload filename encodes.
func keyFromFlagsAndFilename(path string) (dataset.Key, error) {
	info := dataset.ParseUploadFilename(filepath.Base(path))

	k := dataset.Key{
		Jurisdiction: processCounty,
		Year:         processYear,
		ElectionType: processType,
		ElectionDate: processDate,
		VotingMethod: processMethod,
		Party:        processParty,
	}
	if k.Jurisdiction == "" {
		k.Jurisdiction = info.Jurisdiction
	}
	if k.Year == "" {
		k.Year = info.Year
	}
	if k.ElectionType == "" {
		k.ElectionType = info.ElectionType
	}
	if k.ElectionDate == "" {
		k.ElectionDate = info.ElectionDate
	}
	if k.Party == "" {
		k.Party = info.Party
	}
	if k.VotingMethod == "" {
		if info.EarlyVoting {
			k.VotingMethod = "early"
		} else {
			k.VotingMethod = "election day"
		}
	}

	if err := k.Validate(); err != nil {
		return dataset.Key{}, eris.Wrap(err, "dataset parameters incomplete; pass --county/--year/--type/--date")
	}
	return k, nil
}

func init() {
	processCmd.Flags().StringVar(&processCounty, "county", "", "county the roll covers (e.g. Lubbock)")
	processCmd.Flags().StringVar(&processYear, "year", "", "election year")
	processCmd.Flags().StringVar(&processType, "type", "", "election type (primary, runoff, general, special)")
	processCmd.Flags().StringVar(&processDate, "date", "", "election date (YYYY-MM-DD)")
	processCmd.Flags().StringVar(&processMethod, "method", "", "voting method (early, election day)")
	processCmd.Flags().StringVar(&processParty, "party", "", "primary party (republican, democratic)")
	processCmd.Flags().BoolVar(&processReplace, "replace", false, "replace an existing dataset with the same parameters")

	rootCmd.AddCommand(processCmd)
}
