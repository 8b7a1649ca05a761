package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/google/uuid"
)

// Locator is the part of the location service the logger needs.
type Locator interface {
	GetCurrentLocation(ctx context.Context) models.LocationSample
	LastKnown(ctx context.Context) (models.LocationSample, bool)
	Permission() models.PermissionState
}

type Sink interface {
	Send(ctx context.Context, p models.ActivityPayload) error
}

// FallbackStore keeps records the remote endpoint did not accept, newest first.
type FallbackStore interface {
	Push(ctx context.Context, rec models.ActivityRecord) error
	List(ctx context.Context, limit int) ([]models.ActivityRecord, error)
	Oldest(ctx context.Context, limit int) ([]models.ActivityRecord, error)
	Remove(ctx context.Context, ids ...string) error
	Len(ctx context.Context) (int, error)
}

type Logger struct {
	locator  Locator
	sink     Sink
	fallback FallbackStore
	device   models.DeviceInfo

	now   func() time.Time
	newID func() string
}

func NewLogger(locator Locator, sink Sink, fallback FallbackStore, device models.DeviceInfo) *Logger {
	return &Logger{
		locator:  locator,
		sink:     sink,
		fallback: fallback,
		device:   device,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (l *Logger) WithClock(now func() time.Time) *Logger {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *Logger) WithIDGenerator(newID func() string) *Logger {
	if newID != nil {
		l.newID = newID
	}
	return l
}

// LogActivity records a business event and returns its id. It never fails:
// a record the remote endpoint rejects goes to the fallback store.
func (l *Logger) LogActivity(ctx context.Context, t models.ActivityType, userID string, details map[string]any, forceLocation bool) string {
	rec := models.ActivityRecord{
		ID:        l.newID(),
		Type:      t,
		UserID:    userID,
		Timestamp: l.now(),
		Details:   details,
		Location:  l.locate(ctx, forceLocation),
	}

	err := l.sink.Send(ctx, BuildPayload(rec, l.device, l.now()))
	if err == nil {
		slog.Info("activity logged", "activity_id", rec.ID, "type", string(t), "user_id", userID)
		return rec.ID
	}

	slog.Warn("remote activity write failed, storing locally",
		"activity_id", rec.ID, "error", err.Error())
	if perr := l.fallback.Push(ctx, rec); perr != nil {
		slog.Error("store activity locally", "activity_id", rec.ID, "error", perr.Error())
	}
	return rec.ID
}

// locate acquires a fresh location only when that cannot prompt the user.
func (l *Logger) locate(ctx context.Context, force bool) *models.LocationSample {
	if l.locator == nil {
		return nil
	}
	if force || l.locator.Permission().Granted() {
		s := l.locator.GetCurrentLocation(ctx)
		return &s
	}
	if s, ok := l.locator.LastKnown(ctx); ok {
		return &s
	}
	return nil
}
