package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"infrabeacon/internal/geo"
	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
	"infrabeacon/internal/report"

	"github.com/redis/go-redis/v9"
)

const (
	markerLimit = 500
	statsLimit  = report.MaxListLimit
	statsKey    = "map:stats"
)

// Service loads reports for the map views. Stats are cached in Redis when a client is given.
type Service struct {
	repo     report.Repository
	rc       *redis.Client
	statsTTL time.Duration
}

func NewService(repo report.Repository, rc *redis.Client, statsTTL time.Duration) *Service {
	if statsTTL <= 0 {
		statsTTL = time.Minute
	}
	return &Service{repo: repo, rc: rc, statsTTL: statsTTL}
}

func (s *Service) Markers(ctx context.Context, status report.Status, issueType report.IssueType) ([]Marker, error) {
	rs, err := s.repo.List(ctx, report.Filter{Status: status, IssueType: issueType, Limit: markerLimit})
	if err != nil {
		return nil, err
	}
	return Markers(rs), nil
}

func (s *Service) Heatmap(ctx context.Context, bounds *geo.Bounds) ([]HeatPoint, error) {
	rs, err := s.repo.List(ctx, report.Filter{Limit: report.MaxListLimit})
	if err != nil {
		return nil, err
	}
	return Heatmap(rs, bounds), nil
}

func (s *Service) Clusters(ctx context.Context, zoom int) ([]Cluster, error) {
	rs, err := s.repo.List(ctx, report.Filter{Limit: markerLimit})
	if err != nil {
		return nil, err
	}
	return Clusters(rs, zoom), nil
}

// Stats serves from cache when possible; cache errors fall through to the repository.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.rc != nil {
		raw, err := s.rc.Get(ctx, statsKey).Bytes()
		if err == nil {
			var st Stats
			if json.Unmarshal(raw, &st) == nil {
				metrics.CacheHitsTotal.WithLabelValues("stats").Inc()
				return st, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.L().WithError(err).Warn("stats_cache_get_error")
		}
		metrics.CacheMissesTotal.WithLabelValues("stats").Inc()
	}
	return s.RefreshStats(ctx)
}

// RefreshStats recomputes the stats and rewrites the cache entry.
func (s *Service) RefreshStats(ctx context.Context) (Stats, error) {
	rs, err := s.repo.List(ctx, report.Filter{Limit: statsLimit})
	if err != nil {
		return Stats{}, err
	}
	st := ComputeStats(rs)
	if s.rc != nil {
		if b, err := json.Marshal(st); err == nil {
			if err := s.rc.Set(ctx, statsKey, b, s.statsTTL).Err(); err != nil {
				logger.L().WithError(err).Warn("stats_cache_set_error")
			}
		}
	}
	return st, nil
}
