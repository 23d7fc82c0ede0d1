package envelope

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/fsnotify/fsnotify"
)

// Event is a master key availability transition.
type Event int

const (
	KeyLost Event = iota
	KeyAvailable
)

func (e Event) String() string {
	if e == KeyAvailable {
		return "key_available"
	}
	return "key_lost"
}

// Subscribe returns a channel that receives availability transitions. Slow
// subscribers miss events rather than block the watcher.
func (e *Envelope) Subscribe() <-chan Event {
	ch := make(chan Event, 8)
	e.subMu.Lock()
	e.subs = append(e.subs, ch)
	e.subMu.Unlock()
	return ch
}

func (e *Envelope) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Watch monitors the provider until ctx is done. On every tick a loaded key
// is checked and invalidated on failure, and a missing key is reloaded. If
// the provider is backed by a device node, removal of that node invalidates
// the key immediately. Providers that cannot be lost return at once.
func (e *Envelope) Watch(ctx context.Context, c clock.Clock, interval time.Duration) error {
	mon, ok := e.provider.(Monitor)
	if !ok {
		return nil
	}
	if c == nil {
		c = clock.Real()
	}

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	var target string
	if pw, ok := e.provider.(PathWatcher); ok && pw.WatchPath() != "" {
		target = filepath.Clean(pw.WatchPath())
		w, err := fsnotify.NewWatcher()
		if err != nil {
			e.logger.Warn("key device watcher unavailable, polling only", "error", err)
		} else {
			defer func() { _ = w.Close() }()
			if err := w.Add(filepath.Dir(target)); err != nil {
				e.logger.Warn("failed to watch key device directory", "path", target, "error", err)
			} else {
				fsEvents = w.Events
				fsErrors = w.Errors
			}
		}
	}

	ticker := c.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("key provider watcher started", "provider", e.provider.Name(), "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Remove|fsnotify.Rename) {
				e.logger.Warn("key device removed", "path", target)
				e.Invalidate()
			}

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			e.logger.Warn("key device watcher error", "error", err)

		case <-ticker.C:
			e.check(ctx, mon)
		}
	}
}

func (e *Envelope) check(ctx context.Context, mon Monitor) {
	if e.Available() {
		if err := mon.Check(ctx); err != nil {
			e.logger.Warn("key provider check failed", "error", err)
			e.Invalidate()
		}
		return
	}

	if err := mon.Check(ctx); err != nil {
		return
	}
	if err := e.Load(ctx); err != nil {
		e.logger.Warn("failed to reload master key", "error", err)
	}
}
