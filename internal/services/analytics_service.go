// Package services – AnalyticsService
//
// This file implements AnalyticsService, the orchestrator of the aggregation
// pipeline: fetch the three raw collections from the event store, build the
// fact table, run the calculators, assemble the snapshot, and cache it for a
// bounded window. A manual refresh invalidates the cache and rebuilds from
// scratch; cached snapshots are immutable and never patched in place.
//
// The service never reads the wall clock inside the pipeline: the injected
// Clock anchors the 7-day activity window and is recorded on the snapshot,
// which keeps every aggregation reproducible under test.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/unilearn/socratic-chat-backend/internal/analytics"
	"github.com/unilearn/socratic-chat-backend/internal/cache"
	"github.com/unilearn/socratic-chat-backend/internal/domain"
)

// snapshotKeyPrefix namespaces cached snapshots; one entry per role filter.
const snapshotKeyPrefix = "analytics:snapshot:"

var (
	aggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_aggregation_runs_total",
		Help: "Aggregation pipeline runs by outcome (built, cached, error).",
	}, []string{"outcome"})

	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_aggregation_duration_seconds",
		Help:    "Wall time of full aggregation runs (fetch, join, calculate).",
		Buckets: prometheus.DefBuckets,
	})
)

// EventStore is the read contract the pipeline consumes. Each method
// returns a full snapshot of one collection; any may legitimately be empty.
type EventStore interface {
	UserProfiles(ctx context.Context) ([]domain.UserProfile, error)
	ChatSessions(ctx context.Context) ([]domain.ChatSession, error)
	Messages(ctx context.Context) ([]domain.Message, error)
}

// AnalyticsService builds, caches, and serves dashboard snapshots.
type AnalyticsService struct {
	Store EventStore
	Cache cache.Cache

	// Location is the reporting zone for all date/hour bucketing.
	Location *time.Location
	// TTL bounds snapshot freshness; non-positive disables caching.
	TTL time.Duration
	// Clock anchors window-relative metrics. Defaults to time.Now.
	Clock func() time.Time
}

func (s *AnalyticsService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Summary returns the snapshot for one role filter (empty role means the
// whole population), serving a fresh cached copy when one exists. On an
// event store failure it returns a zero-valued snapshot together with the
// wrapped error; the caller decides how to surface it.
func (s *AnalyticsService) Summary(ctx context.Context, role string) (analytics.Snapshot, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(attribute.String("role", role)),
	)
	defer span.End()

	key := snapshotKeyPrefix + role
	if s.Cache != nil && s.TTL > 0 {
		if raw, ok, err := s.Cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Msg("analytics: cache read failed, rebuilding")
		} else if ok {
			var snap analytics.Snapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				aggregationRuns.WithLabelValues("cached").Inc()
				return snap, nil
			}
			log.Warn().Msg("analytics: cache entry corrupt, rebuilding")
		}
	}

	snap, err := s.build(ctx, role)
	if err != nil {
		return snap, err
	}

	if s.Cache != nil && s.TTL > 0 {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.Cache.Set(ctx, key, raw, s.TTL); err != nil {
				log.Warn().Err(err).Msg("analytics: cache write failed")
			}
		}
	}
	return snap, nil
}

// Refresh drops every cached snapshot and rebuilds the one for role. The
// rebuilt snapshot is returned so the refresh endpoint can answer with it.
func (s *AnalyticsService) Refresh(ctx context.Context, role string) (analytics.Snapshot, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Refresh",
		trace.WithAttributes(attribute.String("role", role)),
	)
	defer span.End()

	if s.Cache != nil {
		if err := s.Cache.DeleteByPrefix(ctx, snapshotKeyPrefix); err != nil {
			log.Warn().Err(err).Msg("analytics: cache invalidation failed")
		}
	}
	return s.Summary(ctx, role)
}

// build runs the full pipeline once: three store reads, one fact table,
// every calculator, one assembled snapshot.
func (s *AnalyticsService) build(ctx context.Context, role string) (analytics.Snapshot, error) {
	start := time.Now()

	profiles, err := s.Store.UserProfiles(ctx)
	if err != nil {
		aggregationRuns.WithLabelValues("error").Inc()
		return analytics.Snapshot{GeneratedAt: s.now(), RoleFilter: role},
			fmt.Errorf("%w: profiles: %v", ErrUpstreamFetch, err)
	}
	sessions, err := s.Store.ChatSessions(ctx)
	if err != nil {
		aggregationRuns.WithLabelValues("error").Inc()
		return analytics.Snapshot{GeneratedAt: s.now(), RoleFilter: role},
			fmt.Errorf("%w: sessions: %v", ErrUpstreamFetch, err)
	}
	messages, err := s.Store.Messages(ctx)
	if err != nil {
		aggregationRuns.WithLabelValues("error").Inc()
		return analytics.Snapshot{GeneratedAt: s.now(), RoleFilter: role},
			fmt.Errorf("%w: messages: %v", ErrUpstreamFetch, err)
	}

	table := analytics.BuildFactTable(profiles, sessions, messages, s.Location)
	if table.Excluded > 0 {
		log.Info().Int("excluded", table.Excluded).Msg("analytics: malformed rows excluded from fact table")
	}
	snap := analytics.Aggregate(table, role, s.now())

	aggregationDuration.Observe(time.Since(start).Seconds())
	aggregationRuns.WithLabelValues("built").Inc()
	return snap, nil
}
