package pipeline

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whovoted/rollmap/internal/dataset"
	"github.com/whovoted/rollmap/internal/fetcher"
	"github.com/whovoted/rollmap/internal/geocode"
	"github.com/whovoted/rollmap/internal/vuid"
	"github.com/whovoted/rollmap/internal/xref"
)

// Status is a job's lifecycle state. Transitions are monotonic:
// queued -> running -> completed | failed.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress checkpoints. Geocoding owns the 0.2..0.7 band because it
// dominates wall time.
const (
	progressValidated = 0.2
	progressGeocoded  = 0.7
	progressAnnotated = 0.9
	progressDone      = 1.0
)

// Env is the shared machinery a job runs against.
type Env struct {
	Dir          *dataset.Dir
	Idx          *dataset.Index
	Orch         *geocode.Orchestrator
	Workers      int
	DefaultCity  string
	DefaultState string
	KnownCities  []string
	PublicDir    string
}

// Bounds on the per-job activity log and error list. Older entries roll
// off so a large roll cannot grow a job's state without limit.
const (
	maxLogLines = 200
	maxErrors   = 100
)

// LogLine is one timestamped entry in a job's activity log.
type LogLine struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Job processes one uploaded roll file end to end. All mutable state is
// guarded by mu; readers get a Snapshot.
type Job struct {
	ID         string
	Key        dataset.Key
	SourcePath string

	// Replace admits an upload whose key matches an existing dataset,
	// removing the old pair first.
	Replace bool

	// ReGeocode rebuilds an existing dataset from its persisted
	// collection instead of reading an upload, re-running every address
	// through the current provider chain and cache.
	ReGeocode bool

	mu       sync.Mutex
	status   Status
	progress float64
	errMsg   string
	logLines []LogLine
	errs     []string

	total     int
	processed int
	geocoded  int
	failures  int
	unmatched int

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// Snapshot is a point-in-time copy of a job's observable state.
type Snapshot struct {
	ID           string      `json:"id"`
	Key          dataset.Key `json:"key"`
	Status       Status      `json:"status"`
	Progress     float64     `json:"progress"`
	Error        string      `json:"error,omitempty"`
	Total        int         `json:"total"`
	Processed    int         `json:"processed"`
	Geocoded     int         `json:"geocoded"`
	Failures     int         `json:"failures"`
	Unmatched    int         `json:"unmatched,omitempty"`
	LogLines     []LogLine   `json:"log_lines,omitempty"`
	Errors       []string    `json:"errors,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    time.Time   `json:"started_at,omitzero"`
	FinishedAt   time.Time   `json:"finished_at,omitzero"`
	SourcePath   string      `json:"source_path,omitempty"`
	ReGeocodeRun bool        `json:"re_geocode,omitempty"`
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:           j.ID,
		Key:          j.Key,
		Status:       j.status,
		Progress:     j.progress,
		Error:        j.errMsg,
		Total:        j.total,
		Processed:    j.processed,
		Geocoded:     j.geocoded,
		Failures:     j.failures,
		Unmatched:    j.unmatched,
		LogLines:     append([]LogLine(nil), j.logLines...),
		Errors:       append([]string(nil), j.errs...),
		CreatedAt:    j.createdAt,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
		SourcePath:   j.SourcePath,
		ReGeocodeRun: j.ReGeocode,
	}
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

// log appends a timestamped line to the job's activity log and mirrors it
// to the global logger.
func (j *Job) log(logger *zap.Logger, msg string, fields ...zap.Field) {
	j.appendLogLine(msg)
	logger.Info(msg, fields...)
}

// warn is log at warning level, for degraded-but-not-fatal conditions.
func (j *Job) warn(logger *zap.Logger, msg string, fields ...zap.Field) {
	j.appendLogLine(msg)
	logger.Warn(msg, fields...)
}

func (j *Job) appendLogLine(msg string) {
	j.mu.Lock()
	j.logLines = append(j.logLines, LogLine{Time: time.Now().UTC(), Message: msg})
	if len(j.logLines) > maxLogLines {
		j.logLines = j.logLines[len(j.logLines)-maxLogLines:]
	}
	j.mu.Unlock()
}

// recordError adds one entry to the job's error list, visible through
// Snapshot while the job is still running.
func (j *Job) recordError(msg string) {
	j.mu.Lock()
	j.errs = append(j.errs, msg)
	if len(j.errs) > maxErrors {
		j.errs = j.errs[len(j.errs)-maxErrors:]
	}
	j.mu.Unlock()
}

func (j *Job) markRunning() {
	j.mu.Lock()
	j.status = StatusRunning
	j.startedAt = time.Now().UTC()
	j.mu.Unlock()
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finishedAt = time.Now().UTC()
	if err != nil {
		j.status = StatusFailed
		j.errMsg = err.Error()
		j.errs = append(j.errs, err.Error())
		return
	}
	j.status = StatusCompleted
	j.progress = progressDone
}

// Run executes the job's five steps: validate, geocode, cross-reference,
// persist, deploy. The terminal status is recorded on the job; the error
// is also returned for the scheduler's log.
func (j *Job) Run(ctx context.Context, env *Env) error {
	j.markRunning()
	log := zap.L().With(zap.String("job", j.ID), zap.String("jurisdiction", j.Key.Jurisdiction))
	j.log(log, "processing started", zap.String("file", j.SourcePath))

	err := j.run(ctx, env, log)
	j.finish(err)
	if err != nil {
		log.Error("job failed", zap.Error(err))
		return err
	}
	j.log(log, "processing completed")
	return nil
}

func (j *Job) run(ctx context.Context, env *Env, log *zap.Logger) error {
	if err := j.Key.Validate(); err != nil {
		return err
	}

	if j.ReGeocode {
		records, original, err := j.recordsFromDataset(env)
		if err != nil {
			return err
		}
		return j.processRoll(ctx, env, log, records, original, true)
	}

	tbl, err := fetcher.ReadFile(j.SourcePath)
	if err != nil {
		return err
	}
	kind, err := ClassifyTable(tbl)
	if err != nil {
		return err
	}

	if existing := env.Idx.Find(j.Key); existing != nil && !j.Replace {
		return eris.Errorf("pipeline: dataset %s already exists; resubmit with replace", dataset.MapDataFilename(j.Key))
	}

	switch kind {
	case KindRoster:
		return j.processRoster(env, log, tbl)
	default:
		if !tbl.HasCol(vuidCols...) && !tbl.HasCol(idCols...) && !tbl.HasCol(certCols...) {
			j.warn(log, "no voter id column; prior-party matching falls back to name and location")
		}
		if !tbl.HasCol(nameCols...) && !tbl.HasCol("LASTNAME", "LAST NAME") {
			j.warn(log, "no name columns; voters without ids cannot be matched across elections")
		}
		records := recordsFromTable(tbl)
		return j.processRoll(ctx, env, log, records, filepath.Base(j.SourcePath), false)
	}
}

// processRoll is the full-roll path: clean, geocode through the worker
// pool, cross-reference, persist, deploy, then retry unmatched rosters.
func (j *Job) processRoll(ctx context.Context, env *Env, log *zap.Logger, records []VoterRecord, originalFilename string, replacing bool) error {
	if len(records) == 0 {
		return eris.New("pipeline: no usable rows in upload")
	}
	j.mu.Lock()
	j.total = len(records)
	j.mu.Unlock()
	j.setProgress(progressValidated)
	j.log(log, "step 1/5: upload validated", zap.Int("records", len(records)))

	for i := range records {
		records[i].CleanAddress = CleanAddress(records[i].OriginalAddress, env.DefaultCity, env.DefaultState, env.KnownCities)
	}

	j.log(log, "step 2/5: geocoding addresses", zap.Int("workers", env.Workers))
	before := env.Orch.Stats()
	if err := j.geocodeAll(ctx, env, records); err != nil {
		return err
	}
	after := env.Orch.Stats()
	j.setProgress(progressGeocoded)
	j.log(log, "step 2/5: geocoding done",
		zap.Int("geocoded", j.snapshotGeocoded()),
		zap.Int64("cache_hits", after.CacheHits-before.CacheHits),
	)

	features := j.buildFeatures(records)
	countHouseholds(features)

	engine := xref.NewEngine(env.Dir, env.Idx)
	lookup, err := engine.PriorLookup(j.Key.Jurisdiction, j.Key.ElectionDate)
	if err != nil {
		return err
	}
	switched := 0
	for i := range features {
		if xref.Annotate(&features[i], lookup) {
			switched++
		}
	}
	j.log(log, "step 3/5: cross-reference done", zap.Int("switched", switched), zap.Int("prior_vuids", lookup.Size()))
	j.setProgress(progressAnnotated)

	md := dataset.NewMetadata(j.Key, originalFilename)
	md.TotalAddresses = len(records)
	md.SuccessfullyGeocoded = j.snapshotGeocoded()
	md.FailedAddresses = len(records) - md.SuccessfullyGeocoded
	md.CacheHits = int(after.CacheHits - before.CacheHits)
	md.APICalls = int(after.APICalls - before.APICalls)
	if md.TotalAddresses > 0 {
		md.CacheHitRate = float64(md.CacheHits) / float64(md.TotalAddresses)
	}

	if replacing || j.Replace {
		if err := env.Dir.RemovePair(j.Key); err != nil {
			return err
		}
		env.Idx.Remove(j.Key)
	}
	if err := env.Dir.WritePair(j.Key, dataset.NewFeatureCollection(features), md); err != nil {
		return err
	}
	env.Idx.Add(md)
	j.log(log, "step 4/5: artifacts written", zap.String("map_data", dataset.MapDataFilename(j.Key)))

	if rows := failureRows(records); len(rows) > 0 {
		if err := env.Dir.WriteErrorReport(rows); err != nil {
			return err
		}
	}

	deploy := []string{
		dataset.MapDataFilename(j.Key), dataset.MetadataFilename(j.Key),
		dataset.LatestMapDataName, dataset.LatestMetadataName,
	}
	if env.PublicDir != "" {
		if err := env.Dir.Deploy(env.PublicDir, deploy...); err != nil {
			return err
		}
	}
	j.log(log, "step 5/5: deployed", zap.Int("files", len(deploy)))

	// A fresh full-address dataset may resolve voters that earlier roster
	// uploads could not.
	results, err := vuid.ReResolve(env.Dir, env.Idx, j.Key.Jurisdiction)
	if err != nil {
		return err
	}
	if env.PublicDir != "" {
		for _, r := range results {
			if err := env.Dir.Deploy(env.PublicDir, r.MapDataName, r.MetadataName); err != nil {
				return err
			}
		}
	}
	return nil
}

// processRoster resolves an early-vote check-in list against persisted
// full-roll datasets and refreshes the cumulative merge.
func (j *Job) processRoster(env *Env, log *zap.Logger, tbl *fetcher.Table) error {
	entries := rosterFromTable(tbl)
	if len(entries) == 0 {
		return eris.New("pipeline: no usable rows in roster")
	}
	j.mu.Lock()
	j.total = len(entries)
	j.mu.Unlock()
	j.setProgress(progressValidated)
	j.log(log, "roster validated", zap.Int("entries", len(entries)))

	resolver := vuid.NewResolver(env.Dir, env.Idx)
	if err := resolver.Build(j.Key.Jurisdiction); err != nil {
		return err
	}
	features, unmatched := vuid.BuildFeatures(resolver, entries)

	j.mu.Lock()
	j.processed = len(entries)
	j.geocoded = len(entries) - unmatched
	j.unmatched = unmatched
	j.mu.Unlock()
	j.setProgress(progressAnnotated)
	j.log(log, "roster resolved",
		zap.Int("voters", len(entries)),
		zap.Int("unmatched", unmatched),
		zap.Int("known_vuids", resolver.Size()),
	)

	md := dataset.NewMetadata(j.Key, filepath.Base(j.SourcePath))
	md.TotalAddresses = len(entries)
	md.SuccessfullyGeocoded = len(entries) - unmatched
	md.UnmatchedCount = unmatched

	if j.Replace {
		if err := env.Dir.RemovePair(j.Key); err != nil {
			return err
		}
		env.Idx.Remove(j.Key)
	}
	if err := env.Dir.WritePair(j.Key, dataset.NewFeatureCollection(features), md); err != nil {
		return err
	}
	env.Idx.Add(md)

	names := []string{
		dataset.MapDataFilename(j.Key), dataset.MetadataFilename(j.Key),
		dataset.LatestMapDataName, dataset.LatestMetadataName,
	}
	// The cumulative merge only spans early-vote snapshots.
	if strings.EqualFold(j.Key.VotingMethod, "early") {
		cumulative, err := vuid.MergeCumulative(env.Dir, env.Idx, j.Key)
		if err != nil {
			return err
		}
		names = append(names,
			dataset.CumulativeMapDataFilename(cumulative.Key()),
			dataset.CumulativeMetadataFilename(cumulative.Key()),
		)
	}

	if env.PublicDir != "" {
		if err := env.Dir.Deploy(env.PublicDir, names...); err != nil {
			return err
		}
	}
	return nil
}

// geocodeAll resolves every record: cache hits synchronously, the rest
// through a bounded worker pool. Per-record misses are not errors; only a
// cancelled context aborts the run.
func (j *Job) geocodeAll(ctx context.Context, env *Env, records []VoterRecord) error {
	var pending []int
	for i := range records {
		if r, ok := env.Orch.Lookup(records[i].CleanAddress); ok {
			applyResult(&records[i], r)
			j.recordProcessed(true)
			continue
		}
		pending = append(pending, i)
	}

	workers := env.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, i := range pending {
		g.Go(func() error {
			r, err := env.Orch.Geocode(gctx, records[i].CleanAddress)
			if err != nil {
				return err
			}
			if r == nil {
				j.recordError("no provider match: " + records[i].CleanAddress)
				j.recordProcessed(false)
				return nil
			}
			applyResult(&records[i], r)
			j.recordProcessed(true)
			return nil
		})
	}
	return g.Wait()
}

// recordProcessed bumps counters and maps progress into the geocode band.
func (j *Job) recordProcessed(ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed++
	if ok {
		j.geocoded++
	} else {
		j.failures++
	}
	if j.total > 0 {
		frac := float64(j.processed) / float64(j.total)
		j.progress = progressValidated + (progressGeocoded-progressValidated)*frac
	}
}

func (j *Job) snapshotGeocoded() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.geocoded
}

func applyResult(rec *VoterRecord, r *geocode.Result) {
	rec.Latitude = r.Latitude
	rec.Longitude = r.Longitude
	rec.DisplayName = r.DisplayName
	rec.Source = r.Source
	rec.Fallback = r.Fallback
	rec.Geocoded = true
}

// buildFeatures turns geocoded records into output features, dropping the
// records no provider could place.
func (j *Job) buildFeatures(records []VoterRecord) []dataset.Feature {
	features := make([]dataset.Feature, 0, len(records))
	for _, rec := range records {
		if !rec.Geocoded {
			continue
		}
		// Party column first, then the upload form's primary party, then
		// whatever the ballot style encodes.
		party := xref.NormalizeParty(rec.Party)
		if party == "" {
			party = xref.NormalizeParty(j.Key.Party)
		}
		if party == "" {
			party = xref.PartyFromBallotStyle(rec.BallotStyle)
		}
		props := dataset.Properties{
			Address:                rec.CleanAddress,
			DisplayName:            rec.DisplayName,
			Precinct:               rec.Precinct,
			BallotStyle:            rec.BallotStyle,
			Source:                 rec.Source,
			Fallback:               rec.Fallback,
			VUID:                   rec.VUID,
			LastName:               rec.LastName,
			FirstName:              rec.FirstName,
			FullName:               rec.FullName,
			PartyCurrent:           party,
			VotedInCurrentElection: rec.Voted,
			IsRegistered:           rec.Registered,
		}
		if rec.Fallback != "" {
			props.OriginalAddress = rec.OriginalAddress
		}
		features = append(features, dataset.NewFeature(dataset.NewPoint(rec.Latitude, rec.Longitude), props))
	}
	return features
}

// countHouseholds fills HouseholdVoterCount by grouping features on
// coordinates rounded to 4 decimal places.
func countHouseholds(features []dataset.Feature) {
	type cell struct{ lat, lng float64 }
	counts := make(map[cell]int, len(features))
	key := func(g *dataset.Geometry) cell {
		return cell{
			lat: math.Round(g.Lat()*1e4) / 1e4,
			lng: math.Round(g.Lng()*1e4) / 1e4,
		}
	}
	for i := range features {
		if features[i].Geometry != nil {
			counts[key(features[i].Geometry)]++
		}
	}
	for i := range features {
		if features[i].Geometry != nil {
			features[i].Properties.HouseholdVoterCount = counts[key(features[i].Geometry)]
		}
	}
}

func failureRows(records []VoterRecord) [][]string {
	var rows [][]string
	for _, rec := range records {
		if !rec.Geocoded {
			rows = append(rows, []string{rec.OriginalAddress, "no provider match"})
		}
	}
	return rows
}

// recordsFromDataset rebuilds voter records from a persisted collection so
// an existing dataset can be re-run against the current provider chain.
func (j *Job) recordsFromDataset(env *Env) ([]VoterRecord, string, error) {
	md := env.Idx.Find(j.Key)
	if md == nil {
		return nil, "", eris.Errorf("pipeline: no dataset %s to re-geocode", dataset.MapDataFilename(j.Key))
	}
	fc, err := env.Dir.ReadCollection(dataset.MapDataFilename(j.Key))
	if err != nil {
		return nil, "", err
	}

	records := make([]VoterRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		addr := f.Properties.Address
		if f.Properties.OriginalAddress != "" {
			addr = f.Properties.OriginalAddress
		}
		if addr == "" {
			continue
		}
		records = append(records, VoterRecord{
			OriginalAddress: addr,
			Precinct:        f.Properties.Precinct,
			BallotStyle:     f.Properties.BallotStyle,
			VUID:            f.Properties.VUID,
			LastName:        f.Properties.LastName,
			FirstName:       f.Properties.FirstName,
			FullName:        f.Properties.FullName,
			Party:           f.Properties.PartyCurrent,
			Voted:           f.Properties.VotedInCurrentElection,
			Registered:      f.Properties.IsRegistered,
		})
	}
	return records, md.OriginalFilename, nil
}

// String identifies the job in scheduler logs.
func (j *Job) String() string {
	return fmt.Sprintf("%s %s %s", j.ID, j.Key.Jurisdiction, j.Key.ElectionDate)
}
