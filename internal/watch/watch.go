package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/scheduler"
)

type Options struct {
	Dir      string // watched directory (base + folder)
	Folder   string // folder name passed to TrainLocal
	Ext      string
	Debounce time.Duration
}

// Run refits the pipeline each time the record folder settles after a
// change. Events are coalesced for Debounce so a bulk copy triggers one run.
func Run(ctx context.Context, log *logger.Logger, o Options, t scheduler.Trainer, n scheduler.Notifier) error {
	if o.Debounce <= 0 {
		o.Debounce = 2 * time.Second
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer w.Close()
	if err := w.Add(o.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", o.Dir, err)
	}
	log.Info().Str("dir", o.Dir).Dur("debounce", o.Debounce).Msg("watching record folder")

	timer := time.NewTimer(o.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, o.Ext) {
				continue
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("record folder changed")
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(o.Debounce)
			pending = true
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			pending = false
			_, _ = scheduler.Execute(ctx, log, "watch", o.Folder, t, n)
		}
	}
}

func relevant(ev fsnotify.Event, ext string) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return ext == "" || strings.EqualFold(filepath.Ext(ev.Name), ext)
}
