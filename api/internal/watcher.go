package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TypeResolver maps a file path to a content type.
type TypeResolver interface {
	Resolve(path string) string
}

// MediaEvent is one change to a media file under the watched root.
type MediaEvent struct {
	Path        string
	Op          fsnotify.Op
	ContentType string
}

// MediaWatcher logs audio and video files as they appear, change or
// disappear under the served root.
type MediaWatcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	resolver TypeResolver
	logger   *logrus.Entry
	debounce time.Duration
	events   chan MediaEvent

	mu         sync.Mutex
	recent     map[string]time.Time
	eventCount int64
	errorCount int64
}

// NewMediaWatcher creates a watcher for rootDir. Call Start to begin.
func NewMediaWatcher(rootDir string, resolver TypeResolver) (*MediaWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	return &MediaWatcher{
		watcher:  watcher,
		rootDir:  rootDir,
		resolver: resolver,
		logger:   Logger().WithField("component", "watcher"),
		debounce: 2 * time.Second,
		events:   make(chan MediaEvent, 64),
		recent:   make(map[string]time.Time),
	}, nil
}

// Events delivers reported media events. Events are dropped when nobody
// reads fast enough.
func (mw *MediaWatcher) Events() <-chan MediaEvent {
	return mw.events
}

// Start watches the root and every directory below it until ctx is done.
func (mw *MediaWatcher) Start(ctx context.Context) error {
	mw.logger.Infof("Starting media watcher for directory: %s", mw.rootDir)

	if err := mw.watcher.Add(mw.rootDir); err != nil {
		return errors.Wrapf(err, "watch %s", mw.rootDir)
	}
	mw.addSubdirectories(mw.rootDir)

	go mw.processEvents(ctx)
	return nil
}

// addSubdirectories recursively adds all subdirectories to the watcher
func (mw *MediaWatcher) addSubdirectories(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if d.IsDir() && path != dir {
			if err := mw.watcher.Add(path); err != nil {
				mw.logger.Warnf("Could not watch directory %s: %v", path, err)
			}
		}
		return nil
	})
}

func (mw *MediaWatcher) processEvents(ctx context.Context) {
	defer mw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-mw.watcher.Events:
			if !ok {
				mw.logger.Info("File watcher events channel closed")
				return
			}
			mw.handleEvent(event, time.Now())

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				mw.logger.Info("File watcher errors channel closed")
				return
			}
			mw.mu.Lock()
			mw.errorCount++
			mw.mu.Unlock()
			NotifyError(SeverityWarning, "watcher", "File watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (mw *MediaWatcher) handleEvent(event fsnotify.Event, now time.Time) {
	mw.mu.Lock()
	mw.eventCount++
	mw.mu.Unlock()

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := mw.watcher.Add(event.Name); err != nil {
				mw.logger.Warnf("Could not watch directory %s: %v", event.Name, err)
			}
			mw.addSubdirectories(event.Name)
			return
		}
	}

	contentType := mw.resolver.Resolve(event.Name)
	if !isMediaType(contentType) {
		return
	}

	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && mw.isRecentlyReported(event.Name, now) {
		return
	}

	rel, err := filepath.Rel(mw.rootDir, event.Name)
	if err != nil {
		rel = event.Name
	}
	mw.logger.WithFields(logrus.Fields{
		"path":         "/" + filepath.ToSlash(rel),
		"op":           event.Op.String(),
		"content_type": contentType,
	}).Info("Media file changed")

	select {
	case mw.events <- MediaEvent{Path: event.Name, Op: event.Op, ContentType: contentType}:
	default:
	}
}

func isMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}

// isRecentlyReported suppresses the burst of writes a copy produces.
func (mw *MediaWatcher) isRecentlyReported(path string, now time.Time) bool {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if last, ok := mw.recent[path]; ok && now.Sub(last) < mw.debounce {
		return true
	}
	mw.recent[path] = now

	// Only clean up every 100th entry to avoid overhead
	if len(mw.recent)%100 == 0 {
		cutoff := now.Add(-time.Minute)
		for p, last := range mw.recent {
			if last.Before(cutoff) {
				delete(mw.recent, p)
			}
		}
	}
	return false
}

// WatcherStats is a snapshot of watcher counters.
type WatcherStats struct {
	TrackedFiles int
	TotalEvents  int64
	ErrorCount   int64
}

func (mw *MediaWatcher) Stats() WatcherStats {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return WatcherStats{
		TrackedFiles: len(mw.recent),
		TotalEvents:  mw.eventCount,
		ErrorCount:   mw.errorCount,
	}
}
