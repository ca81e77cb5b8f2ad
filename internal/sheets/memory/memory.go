package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"rfcharts/internal/forecast"
)

type Store struct {
	mu    sync.RWMutex
	plans map[string]forecast.Forecast
}

func New(forecasts ...forecast.Forecast) *Store {
	s := &Store{plans: make(map[string]forecast.Forecast)}
	for _, f := range forecasts {
		s.plans[f.PlanID] = f
	}
	return s
}

// NewFromFiles seeds one plan per "<plan>.csv" file found in base. Files
// that do not parse are logged and skipped.
func NewFromFiles(base string) *Store {
	s := New()
	paths, _ := filepath.Glob(filepath.Join(base, "*.csv"))
	for _, path := range paths {
		planID := strings.TrimSuffix(filepath.Base(path), ".csv")
		if err := forecast.ValidatePlanID(planID); err != nil {
			slog.Warn("Skipping seed file", "path", path, "error", err)
			continue
		}
		f, err := readFile(path, planID)
		if err != nil {
			slog.Warn("Skipping seed file", "path", path, "error", err)
			continue
		}
		s.plans[planID] = f
	}
	return s
}

func readFile(path, planID string) (forecast.Forecast, error) {
	fh, err := os.Open(path)
	if err != nil {
		return forecast.Forecast{}, err
	}
	defer fh.Close()
	return forecast.ReadCSV(fh, planID)
}

// ReadForecast returns a copy of the stored forecast.
func (s *Store) ReadForecast(_ context.Context, planID string) (forecast.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.plans[planID]
	if !ok {
		return forecast.Forecast{}, fmt.Errorf("%w: %s", forecast.ErrPlanNotFound, planID)
	}
	return clone(f), nil
}

// SaveForecast replaces the forecast of f.PlanID.
func (s *Store) SaveForecast(_ context.Context, f forecast.Forecast) error {
	if err := forecast.ValidatePlanID(f.PlanID); err != nil {
		return err
	}
	if len(f.Months) == 0 {
		return forecast.ErrEmptyForecast
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[f.PlanID] = clone(f)
	return nil
}

// ListPlans returns the known plan ids in sorted order.
func (s *Store) ListPlans(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func clone(f forecast.Forecast) forecast.Forecast {
	out := forecast.Forecast{PlanID: f.PlanID, Months: make([]forecast.Month, len(f.Months))}
	for i, m := range f.Months {
		m.Terms = append([]float64(nil), m.Terms...)
		out.Months[i] = m
	}
	return out
}
