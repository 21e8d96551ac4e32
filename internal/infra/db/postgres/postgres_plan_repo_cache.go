package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/metrics"
	red "jobboard-billing/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator serves plan reads from Redis. Cache failures fall
// through to the inner repository; they never fail a read.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "plan_cache").Logger()
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func planKey(id string) string { return fmt.Sprintf("plan:%s", id) }

func planListKey(audience model.Audience, includeInactive bool) string {
	a, scope := string(audience), "active"
	if a == "" {
		a = "all"
	}
	if includeInactive {
		scope = "all"
	}
	return fmt.Sprintf("plans:%s:%s", a, scope)
}

// planListKeys is every list key a single plan write can affect.
func planListKeys() []string {
	var keys []string
	for _, a := range []model.Audience{"", model.AudienceEmployer, model.AudienceJobseeker} {
		keys = append(keys, planListKey(a, false), planListKey(a, true))
	}
	return keys
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	key := planKey(id)
	var plan model.Plan
	if d.get(ctx, "plan", key, &plan) {
		return &plan, nil
	}
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, p)
	return p, nil
}

func (d *planRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, audience model.Audience, includeInactive bool) ([]*model.Plan, error) {
	key := planListKey(audience, includeInactive)
	var plans []*model.Plan
	if d.get(ctx, "plans", key, &plans) {
		return plans, nil
	}
	plans, err := d.inner.List(ctx, tx, audience, includeInactive)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, plans)
	return plans, nil
}

// Writes go to the database first; the cache is dropped only once they succeed.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	d.invalidate(ctx, plan.ID)
	return nil
}

func (d *planRepoCacheDecorator) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if err := d.inner.Deactivate(ctx, tx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

func (d *planRepoCacheDecorator) get(ctx context.Context, family, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	switch {
	case errors.Is(err, red.Nil):
		metrics.IncCacheRequest(family, "miss")
		return false
	case err != nil:
		metrics.IncCacheRequest(family, "error")
		d.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		metrics.IncCacheRequest(family, "error")
		d.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	metrics.IncCacheRequest(family, "hit")
	return true
}

func (d *planRepoCacheDecorator) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	keys := append([]string{planKey(id)}, planListKeys()...)
	if err := d.cache.Del(ctx, keys...); err != nil {
		d.log.Warn().Err(err).Str("plan_id", id).Msg("cache invalidation failed")
	}
}
