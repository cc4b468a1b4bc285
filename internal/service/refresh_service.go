package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/literacy-tracker-api/pkg/stream"
)

// RefreshService keeps derived reads fresh. It subscribes to both change
// streams and invalidates the statistics and progress caches after a quiet
// period, so a burst of roster edits collapses into one invalidation.
// Streams are independent: no ordering is assumed between a class event and
// the student events it causes, which is safe because invalidation is
// idempotent.
type RefreshService struct {
	broker  *stream.Broker
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	window  time.Duration

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewRefreshService constructs a RefreshService.
func NewRefreshService(broker *stream.Broker, cache *CacheService, metrics *MetricsService, window time.Duration, logger *zap.Logger) *RefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &RefreshService{
		broker:  broker,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		window:  window,
		done:    make(chan struct{}),
	}
}

// Start begins consuming change events until ctx is cancelled or Stop is
// called.
func (s *RefreshService) Start(ctx context.Context) {
	if s.broker == nil {
		return
	}
	classes := s.broker.Subscribe(stream.TopicClasses)
	students := s.broker.Subscribe(stream.TopicStudents)
	s.wg.Add(1)
	go s.run(ctx, classes, students)
}

// Stop terminates the refresh loop and waits for it to drain.
func (s *RefreshService) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *RefreshService) run(ctx context.Context, classes, students <-chan stream.Event) {
	defer s.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(s.window)
			fire = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.window)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-classes:
			if !ok {
				classes = nil
				if students == nil {
					return
				}
				continue
			}
			s.logger.Debug("change observed", zap.String("topic", string(event.Topic)), zap.String("kind", string(event.Kind)), zap.String("id", event.ID))
			schedule()
		case event, ok := <-students:
			if !ok {
				students = nil
				if classes == nil {
					return
				}
				continue
			}
			s.logger.Debug("change observed", zap.String("topic", string(event.Topic)), zap.String("kind", string(event.Kind)), zap.String("id", event.ID))
			schedule()
		case <-fire:
			fire = nil
			timer = nil
			s.flush()
		}
	}
}

// flush drops every derived-read cache entry. It runs on its own deadline
// so a cancelled server context cannot strand stale entries on shutdown.
func (s *RefreshService) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pattern := range []string{"stats:*", "progress:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("cache refresh failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordRefreshRun()
	}
	s.logger.Debug("derived caches refreshed")
}
