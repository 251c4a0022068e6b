package watcher

import (
	"sync"
	"time"
)

// rootDebouncer delivers one notification per project root once that root
// has been quiet for delay. Each touch restarts the root's quiet period.
type rootDebouncer struct {
	delay  time.Duration
	notify ChangeHandler

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newRootDebouncer(delay time.Duration, notify ChangeHandler) *rootDebouncer {
	return &rootDebouncer{
		delay:  delay,
		notify: notify,
		timers: make(map[string]*time.Timer),
	}
}

// touch records activity under root
func (d *rootDebouncer) touch(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.timers[root]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A later touch or a drop replaced this timer
		if d.timers[root] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, root)
		d.mu.Unlock()

		if d.notify != nil {
			d.notify(root)
		}
	})
	d.timers[root] = t
}

// drop discards a pending notification for root
func (d *rootDebouncer) drop(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[root]; ok {
		t.Stop()
		delete(d.timers, root)
	}
}

// stop discards every pending notification and ignores later touches
func (d *rootDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for root, t := range d.timers {
		t.Stop()
		delete(d.timers, root)
	}
}
