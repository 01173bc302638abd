// Package loader reads per-timestamp pool usage CSV files into snapshots.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/utils"
)

// DefaultPattern matches the sampler's snapshot file names.
const DefaultPattern = "*pool.csv"

const tagColumn = "Tag"

// Columns every snapshot must carry besides Tag and the timestamp column.
var requiredColumns = []string{
	"PagedDiff",
	"NonPagedDiff",
	"PagedUsedBytes",
	"NonPagedUsedBytes",
	"TotalUsedBytes",
}

var optionalColumns = []string{
	"PagedAllocs",
	"PagedFrees",
	"NonPagedAllocs",
	"NonPagedFrees",
}

// Loader turns a directory of snapshot files into ordered snapshots.
type Loader struct {
	logger  *slog.Logger
	pattern string
}

// NewLoader constructs a Loader; an empty pattern falls back to DefaultPattern.
func NewLoader(logger *slog.Logger, pattern string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Loader{logger: logger, pattern: pattern}
}

// LoadDir parses every recognised file in dir and returns the snapshots sorted by timestamp.
func (l *Loader) LoadDir(dir string, source models.TimestampSource) ([]models.Snapshot, error) {
	const op = "load snapshots"
	if !source.Valid() {
		return nil, utils.NewAppError(op, dir, utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("unknown timestamp source %q", source)))
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, utils.NewAppError(op, dir, err)
	}
	if !info.IsDir() {
		return nil, utils.NewAppError(op, dir, fmt.Errorf("not a directory"))
	}

	files, err := filepath.Glob(filepath.Join(dir, l.pattern))
	if err != nil {
		return nil, utils.NewAppError(op, l.pattern, err)
	}
	if len(files) == 0 {
		return nil, utils.NewAppError(op, dir, utils.WithKind(models.ErrEmptyDirectory, fmt.Errorf("no files match %q", l.pattern)))
	}
	sort.Strings(files)

	snapshots := make([]models.Snapshot, 0, len(files))
	for _, path := range files {
		snap, err := l.LoadFile(path, source)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].Timestamp.Equal(snapshots[j].Timestamp) {
			return snapshots[i].Source < snapshots[j].Source
		}
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})

	l.logger.Debug("snapshots loaded", slog.String("dir", dir), slog.Int("count", len(snapshots)))
	return snapshots, nil
}

// LoadFile parses a single snapshot file.
func (l *Loader) LoadFile(path string, source models.TimestampSource) (models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Snapshot{}, utils.NewAppError("load snapshot", path, err)
	}
	defer f.Close()
	return l.Parse(f, path, source)
}

// Parse decodes one snapshot table. A UTF-8 or UTF-16 byte order mark selects the encoding.
func (l *Loader) Parse(r io.Reader, name string, source models.TimestampSource) (models.Snapshot, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.TrimLeadingSpace = true

	malformed := func(format string, args ...any) error {
		return utils.NewAppError("parse snapshot", name, utils.WithKind(models.ErrMalformedSnapshot, fmt.Errorf(format, args...)))
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Snapshot{}, malformed("missing header")
		}
		return models.Snapshot{}, malformed("read header: %v", err)
	}
	columns := indexColumns(header)

	for _, col := range append([]string{tagColumn, string(source)}, requiredColumns...) {
		if _, ok := columns[col]; !ok {
			return models.Snapshot{}, malformed("missing column %q", col)
		}
	}

	loc := time.Local
	if source == models.TimestampUTC {
		loc = time.UTC
	}

	snap := models.Snapshot{Source: name, Rows: make(map[string]models.TagRecord)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return models.Snapshot{}, malformed("line %d: %v", line, err)
		}

		tag := strings.TrimSpace(record[columns[tagColumn]])
		if tag == "" {
			return models.Snapshot{}, malformed("line %d: empty tag", line)
		}

		if snap.Timestamp.IsZero() {
			ts, err := utils.ParseSnapshotTime(record[columns[string(source)]], loc)
			if err != nil {
				return models.Snapshot{}, malformed("line %d: %s: %v", line, source, err)
			}
			snap.Timestamp = ts
		}

		row, err := parseRecord(record, columns)
		if err != nil {
			return models.Snapshot{}, malformed("line %d: tag %s: %v", line, tag, err)
		}

		if tag == models.TotalTag {
			l.logger.Warn("dropping reserved tag row", slog.String("file", name), slog.Int("line", line))
			continue
		}
		if _, dup := snap.Rows[tag]; dup {
			l.logger.Warn("duplicate tag row, keeping last", slog.String("file", name), slog.String("tag", tag), slog.Int("line", line))
		}
		snap.Rows[tag] = row
	}

	if snap.Timestamp.IsZero() {
		return models.Snapshot{}, malformed("no data rows")
	}
	return snap, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	return columns
}

func parseRecord(record []string, columns map[string]int) (models.TagRecord, error) {
	var row models.TagRecord
	targets := map[string]*int64{
		"PagedAllocs":       &row.PagedAllocs,
		"PagedFrees":        &row.PagedFrees,
		"PagedDiff":         &row.PagedDiff,
		"PagedUsedBytes":    &row.PagedUsedBytes,
		"NonPagedAllocs":    &row.NonPagedAllocs,
		"NonPagedFrees":     &row.NonPagedFrees,
		"NonPagedDiff":      &row.NonPagedDiff,
		"NonPagedUsedBytes": &row.NonPagedUsedBytes,
		"TotalUsedBytes":    &row.TotalUsedBytes,
	}

	for _, col := range append(append([]string(nil), requiredColumns...), optionalColumns...) {
		idx, ok := columns[col]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(record[idx]), 10, 64)
		if err != nil {
			return models.TagRecord{}, fmt.Errorf("column %s: %w", col, err)
		}
		*targets[col] = v
	}
	return row, nil
}
