package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-ingests files under root as they are created or modified,
// blocking until ctx is cancelled. Hidden directories are not watched.
// Every file is indexed under its path relative to root, the same logical
// path Repo would use.
func (i *Ingester) Watch(ctx context.Context, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}

	i.logger.Info("watching for changes", zap.String("root", root))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			i.handleWatchEvent(ctx, watcher, root, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			i.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (i *Ingester) handleWatchEvent(ctx context.Context, watcher *fsnotify.Watcher, root string, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// fsnotify is not recursive; new directories need their own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				return
			}
			if err := watcher.Add(event.Name); err != nil {
				i.logger.Warn("failed to watch new directory",
					zap.String("path", event.Name),
					zap.Error(err),
				)
			}
			return
		}
	}

	if !IngestablePath(event.Name) {
		return
	}

	logicalPath, err := filepath.Rel(root, event.Name)
	if err != nil {
		logicalPath = event.Name
	}
	logicalPath = filepath.ToSlash(logicalPath)

	chunks, err := i.File(ctx, event.Name, logicalPath)
	if err != nil {
		i.logger.Warn("failed to re-ingest changed file",
			zap.String("path", logicalPath),
			zap.Error(err),
		)
		return
	}

	i.logger.Info("re-ingested changed file",
		zap.String("path", logicalPath),
		zap.Int("chunks", chunks),
	)
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
