package history

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/models"
	"github.com/hotstart/hotstart/internal/preload"
)

const DefaultBuffer = 256

// Store is the part of the repository the recorder writes to
type Store interface {
	Create(event *models.PreloadEvent) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Recorder persists controller events. Observe only queues; a single
// goroutine does the writes so a slow disk never holds up a pass. Events
// arriving while the queue is full are counted and dropped.
type Recorder struct {
	store  Store
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan preload.Event
	done    chan struct{}
	dropped atomic.Int64
}

var _ preload.Observer = (*Recorder)(nil)

func NewRecorder(store Store, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan preload.Event, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Observe queues e for storage. Pass starts and dropped ticks are not kept.
func (r *Recorder) Observe(e preload.Event) {
	switch e.Kind {
	case preload.EventPassStarted, preload.EventPassDropped:
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full queue
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close flushes queued events and stops the writer
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		r.write(e)
	}
}

func (r *Recorder) write(e preload.Event) {
	event := &models.PreloadEvent{
		Timestamp:  e.Time,
		PassID:     e.PassID,
		AppName:    e.App,
		Kind:       string(e.Kind),
		Handle:     uint64(e.Handle),
		DurationMs: e.Duration.Milliseconds(),
	}
	if e.Err != nil {
		event.Detail = e.Err.Error()
	}

	if err := r.store.Create(event); err != nil {
		r.logger.Warn("Failed to store preload event", zap.String("kind", event.Kind), zap.Error(err))
	}

	if e.Err == nil {
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: e.Time,
		AppName:   e.App,
		Kind:      string(e.Kind),
		ErrorMsg:  e.Err.Error(),
	}
	if err := r.store.CreateErrorLog(errorLog); err != nil {
		r.logger.Warn("Failed to store error in database",
			zap.Error(err),
			zap.NamedError("event_error", e.Err))
	}
}
