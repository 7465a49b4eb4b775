package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a liveness event every interval until stopped. JIT code
// that never returns shows up as heartbeats after an unmatched "run" begin.
type Heartbeat struct {
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartHeartbeat returns nil when t is disabled or interval is not
// positive. Stop accepts nil.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if !Enabled(t) || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{})}
	h.wg.Go(func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for n := 1; ; n++ {
			select {
			case now := <-tick.C:
				t.Emit(&Event{
					Seq:    seq.Add(1),
					At:     now,
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Name:   "heartbeat",
					Detail: "#" + strconv.Itoa(n),
				})
			case <-h.stop:
				return
			}
		}
	})
	return h
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
	})
}
