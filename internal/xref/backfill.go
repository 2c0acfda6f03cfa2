package xref

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/whovoted/rollmap/internal/dataset"
)

// BackfillResult summarizes one dataset's retroactive pass.
type BackfillResult struct {
	Key      dataset.Key
	Voters   int
	Switched int
	Skipped  bool
}

// BackfillDataset re-runs prior-party matching for one persisted dataset
// against all of its earlier datasets merged, rewriting the collection in
// place. Datasets with nothing earlier are skipped, not failed.
func (e *Engine) BackfillDataset(k dataset.Key) (*BackfillResult, error) {
	md := e.idx.Find(k)
	if md == nil {
		return nil, eris.Errorf("xref: dataset not found for %s %s", k.Jurisdiction, k.ElectionDate)
	}

	lookup, err := e.MergedLookup(md.County, md.ElectionDate)
	if err != nil {
		return nil, err
	}
	result := &BackfillResult{Key: md.Key()}
	if lookup == nil {
		result.Skipped = true
		return result, nil
	}

	name := dataset.MapDataFilename(md.Key())
	fc, err := e.dir.ReadCollection(name)
	if err != nil {
		return nil, err
	}

	for i := range fc.Features {
		result.Voters++
		if Annotate(&fc.Features[i], lookup) {
			result.Switched++
		}
	}

	if err := e.dir.RewriteCollection(name, fc); err != nil {
		return nil, eris.Wrap(err, "xref: rewrite backfilled dataset")
	}

	zap.L().Info("dataset backfilled",
		zap.String("jurisdiction", md.County),
		zap.String("date", md.ElectionDate),
		zap.Int("voters", result.Voters),
		zap.Int("switched", result.Switched),
	)
	return result, nil
}

// BackfillAll runs BackfillDataset over every indexed dataset.
func (e *Engine) BackfillAll() ([]BackfillResult, error) {
	var results []BackfillResult
	for _, md := range e.idx.All() {
		r, err := e.BackfillDataset(md.Key())
		if err != nil {
			return results, err
		}
		results = append(results, *r)
	}
	return results, nil
}
