package dataset

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrorReportName is the fixed name of the per-run geocode failure report.
const ErrorReportName = "processing_errors.csv"

// Dir is the output directory holding all persisted dataset artifacts.
type Dir struct {
	path string
}

// NewDir ensures the artifact directory exists and returns a handle to it.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, eris.Wrap(err, "dataset: create artifact dir")
	}
	return &Dir{path: path}, nil
}

// Path returns the absolute or relative directory path.
func (d *Dir) Path() string { return d.path }

// WritePair persists a FeatureCollection and its metadata under the keyed
// filenames and refreshes the fixed latest aliases. LastUpdated is stamped
// here so both documents agree.
func (d *Dir) WritePair(k Key, fc *FeatureCollection, md *Metadata) error {
	md.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	if err := d.writeJSON(MapDataFilename(k), fc); err != nil {
		return err
	}
	if err := d.writeJSON(MetadataFilename(k), md); err != nil {
		return err
	}
	if err := d.writeJSON(LatestMapDataName, fc); err != nil {
		return err
	}
	return d.writeJSON(LatestMetadataName, md)
}

// WriteCumulativePair persists the merged roster pair for a key.
func (d *Dir) WriteCumulativePair(k Key, fc *FeatureCollection, md *Metadata) error {
	md.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	if err := d.writeJSON(CumulativeMapDataFilename(k), fc); err != nil {
		return err
	}
	return d.writeJSON(CumulativeMetadataFilename(k), md)
}

// RewriteCollection replaces one FeatureCollection file in place, used by
// roster re-resolution.
func (d *Dir) RewriteCollection(name string, fc *FeatureCollection) error {
	return d.writeJSON(name, fc)
}

// RewriteMetadata replaces one metadata document in place.
func (d *Dir) RewriteMetadata(name string, md *Metadata) error {
	md.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return d.writeJSON(name, md)
}

// RemovePair deletes the artifact pair for a key, tolerating files that
// are already gone. Used when a duplicate upload replaces a dataset.
func (d *Dir) RemovePair(k Key) error {
	for _, name := range []string{MapDataFilename(k), MetadataFilename(k)} {
		if err := os.Remove(filepath.Join(d.path, name)); err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "dataset: remove %s", name)
		}
	}
	return nil
}

// ReadCollection loads a FeatureCollection by filename.
func (d *Dir) ReadCollection(name string) (*FeatureCollection, error) {
	data, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", name)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", name)
	}
	return &fc, nil
}

// ReadMetadata loads a metadata document by filename.
func (d *Dir) ReadMetadata(name string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(d.path, name))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", name)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", name)
	}
	return &md, nil
}

// WriteErrorReport writes the per-record geocode failure CSV. Each row is
// (address, reason).
func (d *Dir) WriteErrorReport(rows [][]string) error {
	f, err := os.Create(filepath.Join(d.path, ErrorReportName))
	if err != nil {
		return eris.Wrap(err, "dataset: create error report")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{"address", "reason"}); err != nil {
		return eris.Wrap(err, "dataset: write error report header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "dataset: write error report row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "dataset: flush error report")
}

// Deploy copies the named artifacts into the externally served directory.
// A failed copy is reported but does not undo copies that already landed.
func (d *Dir) Deploy(publicDir string, names ...string) error {
	if err := os.MkdirAll(publicDir, 0o755); err != nil {
		return eris.Wrap(err, "dataset: create public dir")
	}
	for _, name := range names {
		if err := copyFile(filepath.Join(d.path, name), filepath.Join(publicDir, name)); err != nil {
			return eris.Wrapf(err, "dataset: deploy %s", name)
		}
		zap.L().Debug("artifact deployed", zap.String("file", name), zap.String("dir", publicDir))
	}
	return nil
}

// writeJSON marshals v and atomically replaces name inside the directory.
func (d *Dir) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "dataset: marshal %s", name)
	}

	tmp, err := os.CreateTemp(d.path, "."+name+"-*")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp for %s", name)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "dataset: write temp for %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dataset: close temp for %s", name)
	}

	if err := os.Rename(tmpName, filepath.Join(d.path, name)); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dataset: replace %s", name)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
