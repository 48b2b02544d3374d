package sync

import (
	"context"
	"log/slog"
)

// Trigger coalesces best-effort background pushes. Every local mutation
// calls Notify; a single worker drains the notifications and runs one push
// at a time, so N rapid edits produce at most one running push plus one
// queued rerun instead of N overlapping pushes.
type Trigger struct {
	engine *Engine
	notify chan struct{}
}

// NewTrigger creates a trigger for the given engine. Run must be started
// for notifications to have any effect.
func NewTrigger(engine *Engine) *Trigger {
	return &Trigger{
		engine: engine,
		notify: make(chan struct{}, 1),
	}
}

// Notify requests a background push. It never blocks: when a push is
// already pending the notification coalesces into it.
func (t *Trigger) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Run processes notifications until ctx is cancelled. Push failures are
// logged, never surfaced: the local mutation that triggered them has
// already succeeded from the caller's perspective.
func (t *Trigger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.notify:
			t.engine.TryPush(ctx)
		}
	}
}

// TryPush is the fire-and-forget push: a no-op when nobody is signed in,
// and errors are logged rather than returned.
func (e *Engine) TryPush(ctx context.Context) {
	if e.ident.CurrentUser() == nil {
		e.logger.Debug("sync: background push skipped, not signed in")
		return
	}
	if err := e.Push(ctx); err != nil {
		e.logger.Error("sync: background push failed", slog.String("error", err.Error()))
	}
}
