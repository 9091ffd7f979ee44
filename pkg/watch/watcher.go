// Package watch reports changed description files in a directory, batching
// bursts of events into one callback.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/synthgraph/pkg/logging"
)

// Handler receives the distinct paths changed during one debounce window,
// sorted
type Handler func(paths []string)

// Options configures a Watcher
type Options struct {
	// Debounce is how long the directory must stay quiet before Handler runs
	Debounce time.Duration
	// Filter selects the paths of interest; nil accepts everything
	Filter func(path string) bool
	Logger logging.Logger
}

// Watcher watches one directory. Subdirectories are not followed.
type Watcher struct {
	dir     string
	opts    Options
	handler Handler
	fs      *fsnotify.Watcher
	log     logging.Logger
}

// New starts watching dir. Events are delivered once Run is called.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		opts:    opts,
		handler: handler,
		fs:      fsw,
		log:     logging.OrNop(opts.Logger).With(logging.Component("watch"), logging.Path(dir)),
	}, nil
}

// Run delivers batches until ctx is done or the watcher fails. Pending
// changes are flushed before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		clear(pending)
		w.handler(paths)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				flush()
				return errors.New("watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if w.opts.Filter != nil && !w.opts.Filter(path) {
				continue
			}
			w.log.Debug("change detected", logging.Path(path), logging.String("op", event.Op.String()))
			pending[path] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			flush()

		case err, ok := <-w.fs.Errors:
			if !ok {
				flush()
				return errors.New("watcher closed")
			}
			w.log.Warn("watch error", logging.Error(err))
		}
	}
}
