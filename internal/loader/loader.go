package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/metrics"
)

// Loader reads one-record-per-file folders under a base directory.
type Loader struct {
	log     *logger.Logger
	baseDir string
	ext     string
}

func New(log *logger.Logger, baseDir, ext string) *Loader {
	if ext == "" {
		ext = ".json"
	}
	return &Loader{log: log, baseDir: baseDir, ext: ext}
}

type Result struct {
	Dir     string   `json:"dir"`
	Files   int      `json:"files"`
	Loaded  int      `json:"loaded"`
	Skipped []string `json:"skipped,omitempty"`
}

// Dir resolves folder under the base directory.
func (l *Loader) Dir(folder string) (string, error) {
	if folder == "" || folder != filepath.Base(folder) || folder == ".." || folder == "." {
		return "", dataset.Errorf(dataset.KindMalformedInput, "load", "invalid folder name %q", folder)
	}
	return filepath.Join(l.baseDir, folder), nil
}

// Load merges every eligible file of folder into one batch. A file that
// cannot be read or parsed is skipped with a warning.
func (l *Loader) Load(ctx context.Context, folder string) (*dataset.Batch, Result, error) {
	dir, err := l.Dir(folder)
	if err != nil {
		return nil, Result{}, err
	}
	res := Result{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, res, dataset.Errorf(dataset.KindNotFound, "load", "folder %s does not exist", dir)
		}
		return nil, res, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), l.ext) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, res, dataset.Errorf(dataset.KindEmptyInput, "load", "folder %s has no %s files", dir, l.ext)
	}
	res.Files = len(files)
	l.log.Info().Str("dir", dir).Int("files", len(files)).Msg("reading records")

	recs := make([]dataset.Record, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		r, err := readRecord(filepath.Join(dir, name))
		if err != nil {
			l.log.Warn().Err(err).Str("file", name).Msg("skipping unreadable record")
			metrics.FilesSkipped.Inc()
			res.Skipped = append(res.Skipped, name)
			continue
		}
		recs = append(recs, r)
	}
	res.Loaded = len(recs)
	if len(recs) == 0 {
		return nil, res, dataset.Errorf(dataset.KindEmptyInput, "load", "no valid records in %s (%d skipped)", dir, len(res.Skipped))
	}
	return dataset.FromRecords(recs), res, nil
}

func readRecord(path string) (dataset.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dataset.DecodeRecord(b)
}
