package core

import (
	"time"

	"pkt.systems/glass/internal/gesture"
	"pkt.systems/glass/internal/persist"
	"pkt.systems/glass/internal/workpool"
	"pkt.systems/pslog"
)

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	Engines   EngineProvider
	Store     *persist.Store
	Pool      *workpool.Pool
	EventSink EventSink
	Logger    pslog.Logger
	Gesture   gesture.Config
	// GestureScheduler overrides the host scheduler that runs gesture cool-downs.
	GestureScheduler gesture.Scheduler
	Clock            func() time.Time
	// TickInterval paces Run. Zero uses DefaultTickInterval.
	TickInterval time.Duration
}
