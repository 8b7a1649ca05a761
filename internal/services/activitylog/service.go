package activitylog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/FieldTrack/internal/broker/messages"
	"github.com/BearBump/FieldTrack/internal/cache"
	"github.com/BearBump/FieldTrack/internal/cache/rediscache"
	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput = errors.New("invalid activity")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnavailable  = errors.New("activity log unavailable")
)

type Repository interface {
	// InsertActivity stores a; false means an activity with the same id exists.
	InsertActivity(ctx context.Context, a models.StoredActivity) (bool, error)
	ListActivities(ctx context.Context, userID string, limit, offset int) ([]models.StoredActivity, error)
	LastLocation(ctx context.Context, userID string) (models.LastLocation, bool, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Service struct {
	repo     Repository
	producer Producer
	rl       RateLimiter
	cache    cache.BytesCache
	topic    string

	rateLimitPerMinute int64
	lastLocationTTL    time.Duration
	publishAttempts    int
	now                func() time.Time
}

func New(repo Repository, producer Producer, rl RateLimiter, c cache.BytesCache, topic string) *Service {
	return &Service{
		repo:               repo,
		producer:           producer,
		rl:                 rl,
		cache:              c,
		topic:              topic,
		rateLimitPerMinute: 120,
		lastLocationTTL:    24 * time.Hour,
		publishAttempts:    3,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithSettings(rlPerMin int64, lastLocationTTL time.Duration) *Service {
	if rlPerMin > 0 {
		s.rateLimitPerMinute = rlPerMin
	}
	if lastLocationTTL > 0 {
		s.lastLocationTTL = lastLocationTTL
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Accept validates an activity posted by an agent and publishes it for
// persistence. The returned id is the one the agent chose, or a new one.
func (s *Service) Accept(ctx context.Context, p models.ActivityPayload) (string, error) {
	if err := validatePayload(p); err != nil {
		return "", err
	}
	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	if s.rl != nil && s.rateLimitPerMinute > 0 {
		key := rediscache.MinuteKey("activity", p.UserID, now)
		allowed, n, err := s.rl.Allow(ctx, key, s.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			// лимитер недоступен: не блокируем приём
			slog.Warn("activity rate limiter", "error", err.Error())
		} else if !allowed {
			slog.Warn("activity rate limit exceeded", "user_id", p.UserID, "count", n)
			return "", ErrRateLimited
		}
	}

	msg := toMessage(p, now)
	b, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "marshal kafka msg")
	}

	var pubErr error
	for i := 0; i < s.publishAttempts; i++ {
		if pubErr = s.producer.Publish(ctx, s.topic, []byte(p.UserID), b); pubErr == nil {
			break
		}
		if i == s.publishAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
		if ctx.Err() != nil {
			break
		}
	}
	if pubErr != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, pubErr.Error())
	}
	return p.ID, nil
}

// ApplyLogged persists a published activity and refreshes the user's last
// location cache. Replays of an already stored id are no-ops.
func (s *Service) ApplyLogged(ctx context.Context, msg messages.ActivityLogged) error {
	if msg.ID == "" || msg.UserID == "" {
		return fmt.Errorf("%w: id and user_id are required", ErrInvalidInput)
	}
	a := fromMessage(msg, s.now())

	inserted, err := s.repo.InsertActivity(ctx, a)
	if err != nil {
		return err
	}
	if !inserted {
		slog.Debug("activity already stored", "activity_id", msg.ID)
		return nil
	}
	if msg.Location != nil {
		s.refreshLastLocation(ctx, lastLocationOf(a))
	}
	return nil
}

func (s *Service) ListActivities(ctx context.Context, userID string, limit, offset int) ([]models.StoredActivity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	return s.repo.ListActivities(ctx, userID, limit, offset)
}

// LastLocation returns the most recent located activity of a user, served
// from cache when possible.
func (s *Service) LastLocation(ctx context.Context, userID string) (models.LastLocation, bool, error) {
	if userID == "" {
		return models.LastLocation{}, false, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if ll, ok := s.cachedLastLocation(ctx, userID); ok {
		return ll, true, nil
	}

	ll, ok, err := s.repo.LastLocation(ctx, userID)
	if err != nil || !ok {
		return ll, ok, err
	}
	s.storeLastLocation(ctx, ll)
	return ll, true, nil
}

// refreshLastLocation keeps the newer of the cached and the given location;
// consumers may see activities of one user out of order after a replay.
func (s *Service) refreshLastLocation(ctx context.Context, ll models.LastLocation) {
	if cur, ok := s.cachedLastLocation(ctx, ll.UserID); ok && cur.OccurredAt.After(ll.OccurredAt) {
		return
	}
	s.storeLastLocation(ctx, ll)
}

func (s *Service) cachedLastLocation(ctx context.Context, userID string) (models.LastLocation, bool) {
	if s.cache == nil {
		return models.LastLocation{}, false
	}
	b, ok, err := s.cache.Get(ctx, lastLocationKey(userID))
	if err != nil || !ok {
		return models.LastLocation{}, false
	}
	var ll models.LastLocation
	if json.Unmarshal(b, &ll) != nil {
		return models.LastLocation{}, false
	}
	return ll, true
}

func (s *Service) storeLastLocation(ctx context.Context, ll models.LastLocation) {
	if s.cache == nil || s.lastLocationTTL <= 0 {
		return
	}
	b, _ := json.Marshal(ll)
	if err := s.cache.Set(ctx, lastLocationKey(ll.UserID), b, s.lastLocationTTL); err != nil {
		slog.Warn("cache last location", "user_id", ll.UserID, "error", err.Error())
	}
}

func lastLocationKey(userID string) string {
	return fmt.Sprintf("activity:%s:last-location", userID)
}
