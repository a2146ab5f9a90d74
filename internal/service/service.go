package service

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shop-orders/internal/cache"
	"shop-orders/internal/events"
	"shop-orders/internal/metrics"
)

var tracer = otel.Tracer("shop-orders/service")

// Options carries what every service shares besides its repositories.
// Zero values are replaced with no-op implementations.
type Options struct {
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Cache     cache.StatsCache
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = events.NewNoop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	if o.Cache == nil {
		o.Cache = cache.NewNoop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// publish runs after commit. Failures are logged and swallowed.
func (o Options) publish(ctx context.Context, build ...func() (events.Event, error)) {
	evs := make([]events.Event, 0, len(build))
	for _, b := range build {
		ev, err := b()
		if err != nil {
			zlog.Ctx(ctx).Error().Err(err).Msg("build event")
			continue
		}
		evs = append(evs, ev)
	}
	if len(evs) == 0 {
		return
	}
	if err := o.Publisher.Publish(ctx, evs...); err != nil {
		zlog.Ctx(ctx).Error().Err(err).Int("events", len(evs)).Msg("publish events")
	}
}

func (o Options) invalidateYear(ctx context.Context, year int) {
	if err := o.Cache.InvalidateYear(ctx, year); err != nil {
		zlog.Ctx(ctx).Warn().Err(err).Int("year", year).Msg("invalidate revenue cache")
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
