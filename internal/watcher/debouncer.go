package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of file events into one batch per quiet
// window, keeping only the latest event per path. A batch that reaches
// maxBatch flushes immediately; Stop flushes anything still pending.
// The flush callback runs without the internal lock held, so it may
// call back into the debouncer.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	events  map[string]FileEvent
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		events:   make(map[string]FileEvent),
	}
}

func (d *Debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.events[ev.Path] = ev

	if len(d.events) >= d.maxBatch {
		batch := d.drainLocked()
		d.mu.Unlock()
		d.emit(batch)
		return
	}

	d.timer = time.AfterFunc(d.window, d.flushAfterWindow)
	d.mu.Unlock()
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true

	batch := d.drainLocked()
	d.mu.Unlock()
	d.emit(batch)
}

func (d *Debouncer) flushAfterWindow() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := d.drainLocked()
	d.mu.Unlock()
	d.emit(batch)
}

func (d *Debouncer) drainLocked() []FileEvent {
	batch := make([]FileEvent, 0, len(d.events))
	for _, ev := range d.events {
		batch = append(batch, ev)
	}
	d.events = make(map[string]FileEvent)

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return batch
}

func (d *Debouncer) emit(batch []FileEvent) {
	if len(batch) > 0 && d.onFlush != nil {
		d.onFlush(batch)
	}
}
