package fake

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/FieldTrack/internal/integrations/geolocation"
	"github.com/BearBump/FieldTrack/internal/models"
)

// Result is one scripted answer of CurrentPosition.
type Result struct {
	Position geolocation.Position
	Err      error
	// Delay before answering; a ctx deadline that fires first yields ErrTimeout.
	Delay time.Duration
}

// FakeClient is a scripted platform. Without a script it behaves like a
// healthy device parked in central Cairo.
type FakeClient struct {
	mu sync.Mutex

	current   []Result
	watch     []geolocation.Fix
	watchStep time.Duration

	permission    models.Permission
	permissionErr error

	calls         []geolocation.Options
	watchCalls    int
	activeWatches atomic.Int64
}

func New() *FakeClient {
	return &FakeClient{permission: models.PermissionGranted}
}

// WithCurrent scripts CurrentPosition answers in call order; the last one
// repeats once the script runs out.
func (f *FakeClient) WithCurrent(results ...Result) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = append(f.current, results...)
	return f
}

// WithWatch scripts fixes emitted by WatchPosition, one per step.
func (f *FakeClient) WithWatch(step time.Duration, fixes ...geolocation.Fix) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watch = append(f.watch, fixes...)
	f.watchStep = step
	return f
}

func (f *FakeClient) WithPermission(p models.Permission, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permission = p
	f.permissionErr = err
	return f
}

func (f *FakeClient) CurrentPosition(ctx context.Context, opts geolocation.Options) (geolocation.Position, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	res := Result{Position: demoPosition()}
	if n := len(f.current); n > 0 {
		idx := len(f.calls) - 1
		if idx >= n {
			idx = n - 1
		}
		res = f.current[idx]
	}
	f.mu.Unlock()

	if res.Delay > 0 {
		t := time.NewTimer(res.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return geolocation.Position{}, geolocation.ErrTimeout
		case <-t.C:
		}
	}
	if res.Err != nil {
		return geolocation.Position{}, res.Err
	}
	if res.Position.Timestamp.IsZero() {
		res.Position.Timestamp = time.Now().UTC()
	}
	return res.Position, nil
}

func (f *FakeClient) WatchPosition(ctx context.Context, opts geolocation.Options) (<-chan geolocation.Fix, error) {
	f.mu.Lock()
	f.watchCalls++
	fixes := append([]geolocation.Fix(nil), f.watch...)
	step := f.watchStep
	f.mu.Unlock()

	out := make(chan geolocation.Fix)
	f.activeWatches.Add(1)
	go func() {
		defer func() {
			f.activeWatches.Add(-1)
			close(out)
		}()
		for _, fx := range fixes {
			if step > 0 {
				t := time.NewTimer(step)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
			}
			select {
			case <-ctx.Done():
				return
			case out <- fx:
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func (f *FakeClient) QueryPermission(ctx context.Context) (models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission, f.permissionErr
}

// Calls returns the options of every CurrentPosition call so far.
func (f *FakeClient) Calls() []geolocation.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]geolocation.Options(nil), f.calls...)
}

func (f *FakeClient) WatchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watchCalls
}

func (f *FakeClient) ActiveWatches() int64 { return f.activeWatches.Load() }

func demoPosition() geolocation.Position {
	return geolocation.Position{
		Latitude:  30.0459,
		Longitude: 31.2243,
		Accuracy:  25,
	}
}
