// Package scanner walks media directories and feeds the files it finds into an indexer.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/log"
	"github.com/mwantia/mediameta/metrics"
)

// Progress is the state of a scan. Remaining counts the files not processed yet.
type Progress struct {
	Indexing  bool
	Done      int
	Remaining int
	Elapsed   time.Duration
}

type ProgressFunc func(Progress)

type Scanner struct {
	log      *log.Logger
	writer   indexer.Writer
	roots    []string
	metrics  *metrics.Metrics
	progress ProgressFunc
	prune    bool
}

type Option func(*Scanner)

func WithLogger(logger *log.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) {
		s.progress = fn
	}
}

// WithPrune removes indexed items below the roots whose files are gone. The writer must also
// implement indexer.Indexer.
func WithPrune(prune bool) Option {
	return func(s *Scanner) {
		s.prune = prune
	}
}

func New(writer indexer.Writer, roots []string, opts ...Option) (*Scanner, error) {
	if writer == nil {
		return nil, fmt.Errorf("%w: scanner needs a writer", data.ErrInvalid)
	}

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", root, err)
		}
		cleaned = append(cleaned, abs)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: scanner needs at least one root", data.ErrInvalid)
	}

	s := &Scanner{
		log:    log.Discard(),
		writer: writer,
		roots:  cleaned,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan indexes every media file below the roots. Files that fail are skipped and reported in
// the returned error.
func (s *Scanner) Scan(ctx context.Context) error {
	start := time.Now()
	errs := &data.Errors{}

	files := s.collect(errs)
	s.log.Info("Scanning %d files below %v", len(files), s.roots)

	seen := s.indexAll(ctx, files, start, errs)

	if s.prune && ctx.Err() == nil {
		if err := s.pruneMissing(ctx, seen, s.covers); err != nil {
			errs.Add(err)
		}
	}

	s.report(Progress{Done: len(files), Elapsed: time.Since(start)})
	s.log.Info("Scan finished after %v with %d errors", time.Since(start).Round(time.Millisecond), errs.Len())
	return errs.Errors()
}

// indexAll writes files to the indexer, reporting progress after each one. Files whose size and
// modification time match the indexed item are left alone. It returns the paths it attempted.
func (s *Scanner) indexAll(ctx context.Context, files []mediaFile, start time.Time, errs *data.Errors) map[string]bool {
	s.report(Progress{Indexing: true, Remaining: len(files), Elapsed: time.Since(start)})

	stamps := s.indexedStamps(ctx, files)

	seen := make(map[string]bool, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}

		seen[file.path] = true
		if i < len(stamps) && file.unchanged(stamps[i]) {
			s.log.Debug("Skipping unchanged '%s'", file.path)
		} else if err := s.index(ctx, file); err != nil {
			s.log.Warn("Failed to index '%s': %v", file.path, err)
			s.metrics.ScanFailed()
			errs.Add(fmt.Errorf("%s: %w", file.path, err))
		} else {
			s.metrics.Scanned(file.service.String())
		}

		s.report(Progress{
			Indexing:  true,
			Done:      i + 1,
			Remaining: len(files) - i - 1,
			Elapsed:   time.Since(start),
		})
	}
	return seen
}

type mediaFile struct {
	path    string
	service data.Service
	info    fs.FileInfo
}

// stampKeys are read back by indexedStamps, in this order.
var stampKeys = []string{indexer.KeyModified, keySize}

const (
	keySize    = "File:Size"
	stampChunk = 256
)

func (f mediaFile) modified() string { return strconv.FormatInt(f.info.ModTime().Unix(), 10) }

func (f mediaFile) size() string { return strconv.FormatInt(f.info.Size(), 10) }

// unchanged reports whether stamp, a row of stampKeys, describes the file as it is now.
func (f mediaFile) unchanged(stamp data.Row) bool {
	modified, ok := stamp.Cell(0)
	if !ok || modified != f.modified() {
		return false
	}
	size, ok := stamp.Cell(1)
	return ok && size == f.size()
}

// indexedStamps returns the stored modification time and size of every file, aligned with
// files. It returns nil when the writer cannot be queried.
func (s *Scanner) indexedStamps(ctx context.Context, files []mediaFile) []data.Row {
	idx, ok := s.writer.(indexer.Indexer)
	if !ok || len(files) == 0 {
		return nil
	}

	stamps := make([]data.Row, 0, len(files))
	for begin := 0; begin < len(files); begin += stampChunk {
		end := min(begin+stampChunk, len(files))
		paths := make([]string, 0, end-begin)
		for _, file := range files[begin:end] {
			paths = append(paths, file.path)
		}

		rows, err := idx.GetMetadata(ctx, paths, stampKeys)
		if err != nil || len(rows) != len(paths) {
			s.log.Debug("Failed to read indexed stamps, indexing every file: %v", err)
			return nil
		}
		stamps = append(stamps, rows...)
	}
	return stamps
}

func (s *Scanner) collect(errs *data.Errors) []mediaFile {
	var files []mediaFile
	for _, root := range s.roots {
		found, err := s.walk(root)
		if err != nil {
			errs.Add(fmt.Errorf("failed to walk %s: %w", root, err))
		}
		files = append(files, found...)
	}
	return files
}

// walk lists the media files below dir, skipping hidden directories.
func (s *Scanner) walk(dir string) ([]mediaFile, error) {
	var files []mediaFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Debug("Walk error at '%s': %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != dir && isHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}

		service, ok := data.ServiceOf(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.log.Debug("Failed to stat '%s': %v", path, err)
			return nil
		}
		files = append(files, mediaFile{path: path, service: service, info: info})
		return nil
	})
	return files, err
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func (s *Scanner) index(ctx context.Context, file mediaFile) error {
	item := &indexer.Item{
		Path:    file.path,
		Service: file.service,
		Values: map[string]string{
			keySize:             file.size(),
			indexer.KeyModified: file.modified(),
		},
	}

	switch file.service {
	case data.ServiceMusic:
		values, err := readTags(file.path)
		if err != nil {
			s.log.Debug("No tags in '%s': %v", file.path, err)
		}
		for key, value := range values {
			item.Values[key] = value
		}
	case data.ServicePlaylist:
		entries, err := countEntries(file.path)
		if err != nil {
			return err
		}
		item.Values["Playlist:Songs"] = strconv.Itoa(entries)
		item.Values["Playlist:Duration"] = "0"
		item.Values["Playlist:ValidDuration"] = "0"
	}

	return s.writer.Put(ctx, item)
}

// pruneMissing deletes indexed items accepted by within that were not seen and whose files
// are gone.
func (s *Scanner) pruneMissing(ctx context.Context, seen map[string]bool, within func(string) bool) error {
	idx, ok := s.writer.(indexer.Indexer)
	if !ok {
		return fmt.Errorf("%w: pruning needs a queryable indexer", data.ErrBackendUnsupported)
	}

	for _, service := range data.Services {
		rows, err := idx.Query(ctx, &indexer.Query{Service: service})
		if err != nil {
			return err
		}
		for _, row := range rows {
			path, _ := row.Cell(0)
			if seen[path] || !within(path) {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := s.writer.Delete(ctx, path); err != nil {
				return err
			}
			s.log.Debug("Removed '%s' from the index", path)
		}
	}
	return nil
}

func (s *Scanner) covers(path string) bool {
	for _, root := range s.roots {
		if isBelow(root, path) {
			return true
		}
	}
	return false
}

// isBelow reports whether path is dir or inside it.
func isBelow(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Scanner) report(p Progress) {
	if s.progress != nil {
		s.progress(p)
	}
}
