package devicesim

import (
	"math"
	"sync"
	"time"

	tagview "tagview/engine/core"
)

// Updater advances the simulated device on a fixed tick: pressed commands are
// released and read-only numeric telemetry in the data group counts up.
type Updater struct {
	store    *Store
	interval time.Duration
	onChange func()

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewUpdater creates an updater; onChange runs after every tick that changed the model.
func NewUpdater(store *Store, interval time.Duration, onChange func()) *Updater {
	if interval <= 0 {
		interval = time.Second
	}
	return &Updater{store: store, interval: interval, onChange: onChange}
}

// Start begins ticking. Calling Start on a running updater does nothing.
func (u *Updater) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stop != nil {
		return
	}
	u.stop = make(chan struct{})
	u.stopped = false
	go u.run(u.stop)
}

// Stop halts the updater.
func (u *Updater) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stop == nil || u.stopped {
		return
	}
	u.stopped = true
	close(u.stop)
	u.stop = nil
}

func (u *Updater) run(stop <-chan struct{}) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if u.Tick() && u.onChange != nil {
				u.onChange()
			}
		}
	}
}

// Tick performs one simulation step and reports whether anything changed.
func (u *Updater) Tick() bool {
	return u.store.update(func(model *tagview.Snapshot) bool {
		changed := false
		for _, el := range model.Elements {
			for gi := range el.Groups {
				g := &el.Groups[gi]
				canonical := u.store.aliases.Canonical(g.Name)
				for ti := range g.Tags {
					tag := &g.Tags[ti]
					switch {
					case canonical == tagview.GroupCommand:
						if on, ok := tag.Value.(bool); ok && on {
							tag.Value = false
							changed = true
							tagview.DebugLog("[SIM] %s/%s released\n", el.Name, tag.Name)
						}
					case canonical == tagview.GroupData && bool(tag.ReadOnly):
						if n, ok := counter(tag); ok {
							tag.Value = n + 1
							changed = true
						}
					}
				}
			}
		}
		return changed
	})
}

// counter returns the value of a whole-number telemetry tag. Measurements,
// colors, times and list indexes are left alone.
func counter(tag *tagview.Tag) (float64, bool) {
	if tag.Type != nil && !tag.Type.IsNumeric() {
		return 0, false
	}
	if tag.Unit == tagview.UnitColor || len(tag.List) > 0 {
		return 0, false
	}
	switch n := tag.Value.(type) {
	case float64:
		return n, n == math.Trunc(n)
	case int:
		return float64(n), true
	}
	return 0, false
}
