package activity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/pkg/errors"
)

// Replayer re-sends locally stored activities, oldest first.
type Replayer struct {
	store   FallbackStore
	sink    Sink
	device  models.DeviceInfo
	backoff *Backoff
	now     func() time.Time

	interval  time.Duration
	batchSize int

	triggerCh chan struct{}
	cycleMu   sync.Mutex

	// guarded by cycleMu
	nextAttemptAt time.Time
	failures      atomic.Int64

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	nextAttemptUnixNano atomic.Int64
	totalSent           atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func NewReplayer(store FallbackStore, sink Sink, device models.DeviceInfo) *Replayer {
	return &Replayer{
		store:             store,
		sink:              sink,
		device:            device,
		backoff:           NewBackoff(DefaultBackoffConfig()),
		now:               func() time.Time { return time.Now().UTC() },
		interval:          30 * time.Second,
		batchSize:         20,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Replayer) WithSettings(interval time.Duration, batchSize int) *Replayer {
	if interval > 0 {
		r.interval = interval
	}
	if batchSize > 0 {
		r.batchSize = batchSize
	}
	return r
}

func (r *Replayer) WithBackoff(cfg BackoffConfig) *Replayer {
	r.backoff = NewBackoff(cfg)
	return r
}

func (r *Replayer) WithClock(now func() time.Time) *Replayer {
	if now != nil {
		r.now = now
	}
	return r
}

// Trigger forces an immediate replay cycle that ignores the backoff
// (best-effort, non-blocking).
func (r *Replayer) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt           time.Time  `json:"startedAt"`
	LastCycleAt         *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt       *time.Time `json:"lastTriggerAt,omitempty"`
	NextAttemptAt       *time.Time `json:"nextAttemptAt,omitempty"`
	TotalSent           int64      `json:"totalSent"`
	TotalErrors         int64      `json:"totalErrors"`
	ConsecutiveFailures int64      `json:"consecutiveFailures"`
	LastError           string     `json:"lastError,omitempty"`
}

func (r *Replayer) Stats() Stats {
	st := Stats{
		StartedAt:   time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalSent:   r.totalSent.Load(),
		TotalErrors: r.totalErrors.Load(),

		ConsecutiveFailures: r.failures.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	if n := r.nextAttemptUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.NextAttemptAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Replayer) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = r.cycle(ctx, false)
		case <-r.triggerCh:
			_, _ = r.cycle(ctx, true)
		}
	}
}

// ReplayOnce runs one forced cycle and reports how many records were sent.
func (r *Replayer) ReplayOnce(ctx context.Context) (int, error) {
	return r.cycle(ctx, true)
}

// cycle sends one batch. The first failure ends the cycle and schedules the
// next attempt by backoff; the remaining records keep their order.
func (r *Replayer) cycle(ctx context.Context, force bool) (int, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	now := r.now()
	if !force && now.Before(r.nextAttemptAt) {
		return 0, nil
	}
	r.lastCycleUnixNano.Store(now.UnixNano())

	recs, err := r.store.Oldest(ctx, r.batchSize)
	if err != nil {
		err = errors.Wrap(err, "read fallback store")
		r.fail(now, err)
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		if err := r.sink.Send(ctx, BuildPayload(rec, r.device, r.now())); err != nil {
			r.fail(now, err)
			slog.Warn("replay activity", "activity_id", rec.ID, "failures", r.failures.Load(), "error", err.Error())
			return sent, err
		}
		if err := r.store.Remove(ctx, rec.ID); err != nil {
			// запись уже на сервере; повторная отправка идемпотентна по id
			err = errors.Wrap(err, "remove replayed activity")
			r.fail(now, err)
			return sent, err
		}
		sent++
		r.totalSent.Add(1)
	}

	r.failures.Store(0)
	r.nextAttemptAt = time.Time{}
	r.nextAttemptUnixNano.Store(0)
	if sent > 0 {
		slog.Info("replayed stored activities", "count", sent)
	}
	return sent, nil
}

func (r *Replayer) fail(now time.Time, err error) {
	n := r.failures.Add(1)
	r.nextAttemptAt = now.Add(r.backoff.Delay(int(n)))
	r.nextAttemptUnixNano.Store(r.nextAttemptAt.UnixNano())
	r.totalErrors.Add(1)
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}
