package service

import (
	"context"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"shop-orders/internal/domain"
	"shop-orders/internal/repo"
)

type StatisticsService interface {
	// GetMonthlyRevenueForYear always returns twelve months. Only completed
	// or paid orders that were not cancelled count.
	GetMonthlyRevenueForYear(ctx context.Context, year int) (*domain.YearlyRevenue, error)
	GetProductSalesForYear(ctx context.Context, year int) ([]domain.ProductSales, error)
}

type statisticsService struct {
	stats repo.StatisticsRepo
	opts  Options
}

func NewStatisticsService(stats repo.StatisticsRepo, opts Options) StatisticsService {
	return &statisticsService{stats: stats, opts: opts.withDefaults()}
}

func validYear(year int) error {
	if year < 1 || year > 9999 {
		return domain.Invalidf("year %d is out of range", year)
	}
	return nil
}

func (s *statisticsService) GetMonthlyRevenueForYear(ctx context.Context, year int) (report *domain.YearlyRevenue, err error) {
	ctx, span := tracer.Start(ctx, "StatisticsService.GetMonthlyRevenueForYear")
	span.SetAttributes(attribute.Int("year", year))
	defer func() { endSpan(span, err) }()

	if err := validYear(year); err != nil {
		return nil, err
	}

	// cache errors only cost a database round trip
	cached, err := s.opts.Cache.GetYearlyRevenue(ctx, year)
	if err != nil {
		zlog.Ctx(ctx).Warn().Err(err).Int("year", year).Msg("read revenue cache")
	}
	if cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	byMonth, err := s.stats.MonthlyRevenue(ctx, year)
	if err != nil {
		return nil, err
	}
	report = domain.NewYearlyRevenue(year, byMonth)

	if err := s.opts.Cache.SetYearlyRevenue(ctx, report); err != nil {
		zlog.Ctx(ctx).Warn().Err(err).Int("year", year).Msg("write revenue cache")
	}
	return report, nil
}

func (s *statisticsService) GetProductSalesForYear(ctx context.Context, year int) ([]domain.ProductSales, error) {
	if err := validYear(year); err != nil {
		return nil, err
	}
	sales, err := s.stats.ProductSales(ctx, year)
	if err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []domain.ProductSales{}
	}
	return sales, nil
}
