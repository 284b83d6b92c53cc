package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mwantia/mediameta/data"
)

// DefaultDebounce is how long Watch waits for further events before applying a batch.
const DefaultDebounce = 500 * time.Millisecond

// Watch follows file system events below the roots until ctx is done. Events are collected
// until no new one arrived for debounce, then every touched path is indexed again or removed
// from the index.
func (s *Scanner) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range s.roots {
		if err := s.watchTree(watcher, root); err != nil {
			return err
		}
	}
	s.log.Info("Watching %v for changes", s.roots)

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || isHidden(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Watch error: %v", err)

		case <-timer.C:
			if err := s.apply(ctx, watcher, pending); err != nil {
				s.log.Warn("Failed to apply changes: %v", err)
			}
			pending = make(map[string]struct{})
		}
	}
}

// watchTree adds dir and every non-hidden directory below it to watcher.
func (s *Scanner) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			s.log.Debug("Failed to watch '%s': %v", path, err)
		}
		return nil
	})
}

// apply brings the index in line with the current state of the changed paths.
func (s *Scanner) apply(ctx context.Context, watcher *fsnotify.Watcher, changed map[string]struct{}) error {
	start := time.Now()
	errs := &data.Errors{}

	paths := make([]string, 0, len(changed))
	for path := range changed {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var files []mediaFile
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.remove(ctx, path, errs)
		case err != nil:
			errs.Add(err)
		case info.IsDir():
			if err := s.watchTree(watcher, path); err != nil {
				errs.Add(err)
			}
			found, err := s.walk(path)
			if err != nil {
				errs.Add(err)
			}
			files = append(files, found...)
		default:
			if service, ok := data.ServiceOf(path); ok {
				files = append(files, mediaFile{path: path, service: service, info: info})
			}
		}
	}

	if len(files) > 0 {
		s.indexAll(ctx, files, start, errs)
		s.report(Progress{Done: len(files), Elapsed: time.Since(start)})
	}

	s.log.Debug("Applied %d changes, %d files indexed", len(paths), len(files))
	return errs.Errors()
}

// remove deletes path from the index and, when it was a directory, every item below it.
func (s *Scanner) remove(ctx context.Context, path string, errs *data.Errors) {
	if err := s.writer.Delete(ctx, path); err == nil {
		s.log.Debug("Removed '%s' from the index", path)
		return
	} else if !errors.Is(err, data.ErrNotExist) {
		errs.Add(err)
		return
	}

	err := s.pruneMissing(ctx, nil, func(indexed string) bool {
		return isBelow(path, indexed)
	})
	if err != nil && !errors.Is(err, data.ErrBackendUnsupported) {
		errs.Add(err)
	}
}
