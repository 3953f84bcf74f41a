package mux

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FIBO-Engineer/twist-mux/internal/domain"
	"github.com/FIBO-Engineer/twist-mux/internal/ports"
)

// ErrTypeMismatch indicates an inbound payload whose shape does not match the
// handle's declared shape. It signals a misconfigured deployment and is fatal.
var ErrTypeMismatch = errors.New("twistmux: message shape does not match handle configuration")

// ErrUnknownHandle indicates a callback carrying a handle name that was never
// registered.
var ErrUnknownHandle = errors.New("twistmux: unknown handle")

// Arbiter owns the velocity and lock handle containers and runs one
// arbitration cycle per inbound velocity sample: it computes the current lock
// priority, selects the winning velocity producer, and forwards that
// producer's latest sample to the output topic, shaped against the previous
// emission so authority handovers never speed the robot up.
//
// All handle state is guarded by a single mutex; bus adapters may deliver
// callbacks from any goroutine.
type Arbiter struct {
	mu         sync.Mutex
	velocities []*VelocityHandle
	locks      []*LockHandle
	byVelName  map[string]*VelocityHandle
	byLockName map[string]*LockHandle

	bus      ports.Bus
	obs      ports.Observability
	outTopic string
	outShape domain.Shape

	onFatal func(error)

	hasEmitted  bool
	prevWinner  string
	prevEmitted domain.Twist
	publishOK   bool
}

// NewArbiter builds an arbiter publishing to outTopic in outShape. Handles
// are added before the bus starts delivering; the set is fixed for a run.
func NewArbiter(bus ports.Bus, obs ports.Observability, outTopic string, outShape domain.Shape) *Arbiter {
	return &Arbiter{
		bus:        bus,
		obs:        obs,
		outTopic:   outTopic,
		outShape:   outShape,
		byVelName:  make(map[string]*VelocityHandle),
		byLockName: make(map[string]*LockHandle),
		publishOK:  true,
	}
}

// AddVelocity registers a velocity handle. Names must be unique.
func (a *Arbiter) AddVelocity(h *VelocityHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.byVelName[h.Name()]; exists {
		return fmt.Errorf("velocity handle %q already registered", h.Name())
	}
	a.velocities = append(a.velocities, h)
	a.byVelName[h.Name()] = h
	return nil
}

// AddLock registers a lock handle. Names must be unique.
func (a *Arbiter) AddLock(h *LockHandle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.byLockName[h.Name()]; exists {
		return fmt.Errorf("lock handle %q already registered", h.Name())
	}
	a.locks = append(a.locks, h)
	a.byLockName[h.Name()] = h
	return nil
}

// SetFatalHandler installs the hook invoked on unrecoverable conditions
// (type mismatches). Without a handler the condition is only logged.
func (a *Arbiter) SetFatalHandler(fn func(error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFatal = fn
}

// OnTwist is the bus callback for one velocity input. The sample is stored on
// the named handle and an arbitration cycle runs inline.
func (a *Arbiter) OnTwist(name string, msg domain.Message, now time.Time) {
	a.mu.Lock()

	h, ok := a.byVelName[name]
	if !ok {
		a.mu.Unlock()
		a.obs.LogError("twist_dropped", fmt.Errorf("%w: %q", ErrUnknownHandle, name))
		return
	}
	if msg.Shape() != h.Shape() {
		fatal := a.onFatal
		a.mu.Unlock()
		err := fmt.Errorf("%w: handle %q declared %s, got %s", ErrTypeMismatch, name, h.Shape(), msg.Shape())
		a.obs.IncCounter("twist_mux_type_mismatch_total", 1)
		a.obs.LogCritical("type_mismatch", err)
		if fatal != nil {
			fatal(err)
		}
		return
	}

	h.Record(msg, now)
	a.cycleLocked(now)
	a.mu.Unlock()
}

// OnLock is the bus callback for one lock input. Locks latch state but never
// trigger an emission on their own.
func (a *Arbiter) OnLock(name string, sig domain.LockSignal, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.byLockName[name]
	if !ok {
		a.obs.LogError("lock_dropped", fmt.Errorf("%w: %q", ErrUnknownHandle, name))
		return
	}
	h.Record(sig, now)
}

// LockPriority returns the highest effective priority among lock handles.
func (a *Arbiter) LockPriority(now time.Time) domain.Priority {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lockPriorityLocked(now)
}

func (a *Arbiter) lockPriorityLocked(now time.Time) domain.Priority {
	var p domain.Priority
	for _, l := range a.locks {
		if ep := l.EffectivePriority(now); ep > p {
			p = ep
		}
	}
	return p
}

// selectLocked picks the winning velocity handle: highest priority among
// non-expired, non-masked handles; most recent sample breaks priority ties;
// configuration order breaks exact ties.
func (a *Arbiter) selectLocked(lockPriority domain.Priority, now time.Time) *VelocityHandle {
	var best *VelocityHandle
	for _, h := range a.velocities {
		if h.IsExpired(now) || h.IsMasked(lockPriority) {
			continue
		}
		switch {
		case best == nil:
			best = h
		case h.priority > best.priority:
			best = h
		case h.priority == best.priority && h.lastAt.After(best.lastAt):
			best = h
		}
	}
	return best
}

func (a *Arbiter) cycleLocked(now time.Time) {
	lockPriority := a.lockPriorityLocked(now)
	a.obs.SetGauge("twist_mux_lock_priority", float64(lockPriority))

	winner := a.selectLocked(lockPriority, now)
	if winner == nil {
		a.obs.IncCounter("twist_mux_no_winner_cycles_total", 1)
		return
	}

	msg, ok := winner.Last()
	if !ok {
		// Unreachable: a winner is never expired, hence has received.
		return
	}

	next := msg.Twist()
	if a.hasEmitted && winner.Name() != a.prevWinner && domain.HasIncreasedAbsVelocity(a.prevEmitted, next) {
		a.obs.IncCounter("twist_mux_suppressed_total", 1)
		return
	}

	a.publishLocked(msg.Convert(a.outShape), winner.Name())

	a.hasEmitted = true
	a.prevWinner = winner.Name()
	a.prevEmitted = next
}

// publishLocked forwards the shaped message. Transport failures are logged
// once per ok-to-failed transition and arbitration continues.
func (a *Arbiter) publishLocked(out domain.Message, winner string) {
	err := a.bus.PublishTwist(a.outTopic, out)
	if err != nil {
		a.obs.IncCounter("twist_mux_publish_failures_total", 1)
		if a.publishOK {
			a.obs.LogError("publish_failed", err, ports.Field{Key: "winner", Value: winner})
		}
		a.publishOK = false
		return
	}
	if !a.publishOK {
		a.obs.LogInfo("publish_recovered", ports.Field{Key: "winner", Value: winner})
	}
	a.publishOK = true
	a.obs.IncCounter("twist_mux_emissions_total", 1)
}

// Snapshot assembles a read-only status view of all handles at the given
// instant, including the handle that would currently win.
func (a *Arbiter) Snapshot(now time.Time) ports.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	lockPriority := a.lockPriorityLocked(now)

	st := ports.Status{
		TakenAt:      now,
		Velocities:   make([]ports.HandleStatus, 0, len(a.velocities)),
		Locks:        make([]ports.HandleStatus, 0, len(a.locks)),
		LockPriority: lockPriority,
	}

	for _, h := range a.velocities {
		age, received := h.Age(now)
		st.Velocities = append(st.Velocities, ports.HandleStatus{
			Name:     h.Name(),
			Priority: h.Priority(),
			Received: received,
			Age:      age,
			Stale:    received && h.timeout > 0 && age > h.timeout,
		})
	}
	for _, h := range a.locks {
		age, received := h.Age(now)
		st.Locks = append(st.Locks, ports.HandleStatus{
			Name:     h.Name(),
			Priority: h.Priority(),
			Received: received,
			Age:      age,
			Stale:    h.State(now) == LockStale,
			Engaged:  h.IsLocked(now),
		})
	}

	if winner := a.selectLocked(lockPriority, now); winner != nil {
		st.Winner = winner.Name()
	}
	return st
}
