package sheets

import (
	"context"

	"rfcharts/internal/forecast"
)

// Ports for forecast sources.
type (
	// ForecastReader loads the monthly forecast of a plan. Implementations
	// return an error wrapping forecast.ErrPlanNotFound for unknown plans.
	ForecastReader interface {
		ReadForecast(ctx context.Context, planID string) (forecast.Forecast, error)
	}

	// ForecastWriter replaces the stored forecast of a plan.
	ForecastWriter interface {
		SaveForecast(ctx context.Context, f forecast.Forecast) error
	}

	// PlanLister enumerates the plans a source knows about.
	PlanLister interface {
		ListPlans(ctx context.Context) ([]string, error)
	}
)
