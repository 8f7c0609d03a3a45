package calendar

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// CompositeSource implements HolidaySource with fallback strategy
type CompositeSource struct {
	primary  HolidaySource
	fallback HolidaySource
	logger   *zap.Logger
}

// NewCompositeSource creates a new CompositeSource
func NewCompositeSource(primary, fallback HolidaySource, logger *zap.Logger) *CompositeSource {
	return &CompositeSource{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Name returns both source names
func (cs *CompositeSource) Name() string {
	return fmt.Sprintf("%s+%s", cs.primary.Name(), cs.fallback.Name())
}

// FetchYear tries the primary source, then the fallback
func (cs *CompositeSource) FetchYear(ctx context.Context, year int) ([]DayFact, error) {
	facts, err := cs.primary.FetchYear(ctx, year)
	if err == nil {
		return facts, nil
	}

	cs.logger.Warn("Primary holiday source failed, falling back",
		zap.String("primary", cs.primary.Name()),
		zap.String("fallback", cs.fallback.Name()),
		zap.Int("year", year),
		zap.Error(err))

	facts, fallbackErr := cs.fallback.FetchYear(ctx, year)
	if fallbackErr != nil {
		return nil, &SourceError{
			Source: cs.Name(),
			Year:   year,
			Err:    errors.Join(err, fallbackErr),
		}
	}

	cs.logger.Info("Using fallback holiday data",
		zap.String("source", cs.fallback.Name()),
		zap.Int("year", year))

	return facts, nil
}
