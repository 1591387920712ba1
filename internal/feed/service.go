package feed

import (
	"context"
	"encoding/json"

	"beacon/internal/cache"
	"beacon/internal/platform/config"
	dErrors "beacon/pkg/domain-errors"
)

// Service answers feed reads. The posts themselves are memoized through the
// cache-aside layer (the upstream would be rate-limited in a real ingest);
// every read also offers the throttler a chance to start a burst.
type Service struct {
	cache     *cache.Orchestrator
	throttler *Throttler
	cfg       config.FeedConfig
}

func NewService(orch *cache.Orchestrator, throttler *Throttler, cfg config.FeedConfig) *Service {
	return &Service{cache: orch, throttler: throttler, cfg: cfg}
}

// Posts returns the feed for a disaster and, if the resource is Idle,
// schedules one staggered re-emission burst through the hub.
func (s *Service) Posts(ctx context.Context, disasterID string) ([]Post, error) {
	raw, err := s.cache.GetOrCompute(ctx, "social_feed:"+disasterID, 0, func(context.Context) (any, error) {
		return samplePosts(disasterID, s.cfg.BurstSize), nil
	})
	if err != nil {
		return nil, err
	}

	var posts []Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode cached feed")
	}

	s.throttler.Trigger(disasterID, posts)
	return posts, nil
}
