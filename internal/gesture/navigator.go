package gesture

import (
	"math"
	"time"
)

// Phase is the position of the navigator within one physical gesture.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUndecided
	PhaseHorizontal
	PhaseVertical
	PhaseFired
)

func (p Phase) String() string {
	switch p {
	case PhaseUndecided:
		return "undecided"
	case PhaseHorizontal:
		return "horizontal"
	case PhaseVertical:
		return "vertical"
	case PhaseFired:
		return "fired"
	default:
		return "idle"
	}
}

// SamplePhase marks where a scroll sample sits in its physical gesture.
type SamplePhase int

const (
	SampleMoved SamplePhase = iota
	SampleStart
	SampleEnd
)

// Sample is one scroll delta from the input source.
type Sample struct {
	Phase SamplePhase
	DX    float64
	DY    float64
}

// Direction is a history navigation direction. Positive accumulated x means back.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBack
	DirectionForward
)

func (d Direction) String() string {
	switch d {
	case DirectionBack:
		return "back"
	case DirectionForward:
		return "forward"
	default:
		return "none"
	}
}

// Config holds the gesture thresholds.
type Config struct {
	AxisLock     float64
	NavThreshold float64
	CoolDown     time.Duration
}

// Default thresholds.
const (
	DefaultAxisLock     = 25.0
	DefaultNavThreshold = 150.0
	DefaultCoolDown     = 300 * time.Millisecond
)

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{AxisLock: DefaultAxisLock, NavThreshold: DefaultNavThreshold, CoolDown: DefaultCoolDown}
}

func (c Config) normalized() Config {
	if c.AxisLock <= 0 {
		c.AxisLock = DefaultAxisLock
	}
	if c.NavThreshold <= 0 {
		c.NavThreshold = DefaultNavThreshold
	}
	if c.CoolDown <= 0 {
		c.CoolDown = DefaultCoolDown
	}
	return c
}

// Scheduler runs fn after d on the goroutine that owns the Navigator.
// The returned stop function reports whether fn was prevented from running.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Result tells the caller what to do with a sample.
type Result struct {
	// Consumed samples must not be forwarded to page content.
	Consumed bool
	// Fired is the navigation triggered by this sample, if any.
	Fired    Direction
	Progress float64
}

// State is a snapshot for drawing the swipe indicator.
type State struct {
	Phase            Phase
	AccumulatedX     float64
	AccumulatedY     float64
	Progress         float64
	Active           bool
	SwipingBack      bool
	ThresholdCrossed bool
}

// Navigator turns trackpad scroll samples into back/forward navigation.
// It is confined to one goroutine and does no locking.
type Navigator struct {
	cfg        Config
	scheduler  Scheduler
	onNavigate func(Direction)

	phase     Phase
	accX      float64
	accY      float64
	gen       uint64
	stopReset func() bool
}

// New constructs a Navigator. onNavigate may be nil.
func New(cfg Config, scheduler Scheduler, onNavigate func(Direction)) *Navigator {
	return &Navigator{cfg: cfg.normalized(), scheduler: scheduler, onNavigate: onNavigate}
}

// Handle feeds one sample through the state machine.
func (n *Navigator) Handle(sample Sample) Result {
	switch sample.Phase {
	case SampleStart:
		n.cancelReset()
		n.gen++
		n.clear()
		n.phase = PhaseUndecided
		return Result{}
	case SampleMoved:
		return n.moved(sample)
	case SampleEnd:
		return n.ended()
	}
	return Result{}
}

func (n *Navigator) moved(sample Sample) Result {
	switch n.phase {
	case PhaseUndecided:
		n.accX += sample.DX
		n.accY += sample.DY
		absX, absY := math.Abs(n.accX), math.Abs(n.accY)
		if absX+absY < n.cfg.AxisLock {
			return Result{Consumed: true}
		}
		if absX > 2*absY {
			n.phase = PhaseHorizontal
			return Result{Consumed: true, Progress: n.Progress()}
		}
		n.phase = PhaseVertical
		return Result{}
	case PhaseHorizontal:
		n.accX += sample.DX
		return Result{Consumed: true, Progress: n.Progress()}
	default:
		return Result{}
	}
}

func (n *Navigator) ended() Result {
	switch n.phase {
	case PhaseHorizontal:
		if !n.ThresholdCrossed() {
			n.reset()
			return Result{Consumed: true}
		}
		dir := DirectionForward
		if n.accX > 0 {
			dir = DirectionBack
		}
		n.phase = PhaseFired
		if n.onNavigate != nil {
			n.onNavigate(dir)
		}
		n.scheduleReset()
		return Result{Consumed: true, Fired: dir, Progress: n.Progress()}
	case PhaseUndecided, PhaseVertical:
		n.reset()
		return Result{}
	default:
		return Result{}
	}
}

func (n *Navigator) scheduleReset() {
	if n.scheduler == nil {
		return
	}
	gen := n.gen
	n.stopReset = n.scheduler.AfterFunc(n.cfg.CoolDown, func() {
		if n.gen != gen || n.phase != PhaseFired {
			return
		}
		n.stopReset = nil
		n.clear()
		n.phase = PhaseIdle
	})
}

func (n *Navigator) cancelReset() {
	if n.stopReset != nil {
		n.stopReset()
		n.stopReset = nil
	}
}

func (n *Navigator) clear() {
	n.accX = 0
	n.accY = 0
}

func (n *Navigator) reset() {
	n.clear()
	n.phase = PhaseIdle
}

// Reset abandons the current gesture and any pending cool-down.
func (n *Navigator) Reset() {
	n.cancelReset()
	n.gen++
	n.reset()
}

// Phase returns the current phase.
func (n *Navigator) Phase() Phase {
	return n.phase
}

// Progress returns clamp(|accumulated x| / nav threshold, 0, 1).
func (n *Navigator) Progress() float64 {
	p := math.Abs(n.accX) / n.cfg.NavThreshold
	if p > 1 {
		return 1
	}
	return p
}

// IsActive reports whether the swipe indicator should be shown.
func (n *Navigator) IsActive() bool {
	return n.phase == PhaseHorizontal || n.phase == PhaseFired
}

// IsSwipingBack reports an active swipe with positive net x.
func (n *Navigator) IsSwipingBack() bool {
	return n.IsActive() && n.accX > 0
}

// ThresholdCrossed reports whether |accumulated x| reached the nav threshold.
func (n *Navigator) ThresholdCrossed() bool {
	return math.Abs(n.accX) >= n.cfg.NavThreshold
}

// State returns a snapshot of the navigator.
func (n *Navigator) State() State {
	return State{
		Phase:            n.phase,
		AccumulatedX:     n.accX,
		AccumulatedY:     n.accY,
		Progress:         n.Progress(),
		Active:           n.IsActive(),
		SwipingBack:      n.IsSwipingBack(),
		ThresholdCrossed: n.ThresholdCrossed(),
	}
}
