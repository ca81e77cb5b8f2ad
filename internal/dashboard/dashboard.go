// Package dashboard assembles the rendered charts of a plan page.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rfcharts/internal/cache"
	"rfcharts/internal/chartspec"
	"rfcharts/internal/core"
	"rfcharts/internal/render"
	"rfcharts/internal/sheets"
)

// Render builds and renders one chart from a payload. It holds no state.
func Render(p core.RawPayload, kind core.ChartKind, theme *render.Theme) (render.Chart, error) {
	spec, err := chartspec.Build(p, kind)
	if err != nil {
		return render.Chart{}, err
	}
	return render.ChartJS(spec, theme)
}

// Service reads forecasts and serves their charts, caching rendered configs
// per plan and kind.
type Service struct {
	reader sheets.ForecastReader
	theme  *render.Theme
	charts cache.Cache[render.Chart]
	logger *slog.Logger

	// generations counts invalidations per plan; a build only caches its
	// result when no invalidation happened since it started reading.
	mu          sync.Mutex
	generations map[string]uint64
}

// New creates a dashboard service. A nil cache disables caching.
func New(reader sheets.ForecastReader, theme *render.Theme, charts cache.Cache[render.Chart], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if theme == nil {
		theme = render.NewTheme(render.DefaultFontColor)
	}
	return &Service{
		reader:      reader,
		theme:       theme,
		charts:      charts,
		logger:      logger.With("component", "dashboard"),
		generations: make(map[string]uint64),
	}
}

// Theme returns the theme every chart is rendered with.
func (s *Service) Theme() *render.Theme { return s.theme }

// Payload assembles the raw payload of one chart of a plan.
func (s *Service) Payload(ctx context.Context, planID string, kind core.ChartKind) (core.RawPayload, error) {
	if _, err := core.ParseChartKind(string(kind)); err != nil {
		return core.RawPayload{}, err
	}
	f, err := s.reader.ReadForecast(ctx, planID)
	if err != nil {
		return core.RawPayload{}, fmt.Errorf("read forecast %s: %w", planID, err)
	}
	return f.Payload(kind)
}

// Chart returns the rendered chart of one kind for a plan.
func (s *Service) Chart(ctx context.Context, planID string, kind core.ChartKind) (render.Chart, error) {
	c, _, err := s.Lookup(ctx, planID, kind)
	return c, err
}

// Lookup is Chart, also reporting whether the config came from the cache.
func (s *Service) Lookup(ctx context.Context, planID string, kind core.ChartKind) (render.Chart, bool, error) {
	key := cache.Key(planID, string(kind))
	if s.charts != nil {
		if c, ok := s.charts.Get(key); ok {
			return c, true, nil
		}
	}

	gen := s.generation(planID)
	start := time.Now()
	p, err := s.Payload(ctx, planID, kind)
	if err != nil {
		return render.Chart{}, false, err
	}
	c, err := Render(p, kind, s.theme)
	if err != nil {
		return render.Chart{}, false, fmt.Errorf("plan %s: %w", planID, err)
	}
	if s.charts != nil {
		s.mu.Lock()
		if s.generations[planID] == gen {
			s.charts.Set(key, c)
		}
		s.mu.Unlock()
	}
	s.logger.DebugContext(ctx, "Chart built",
		"plan", planID,
		"kind", kind,
		"duration", time.Since(start))
	return c, false, nil
}

// Charts renders every chart kind of a plan concurrently, in core.Kinds order.
// The first failure cancels the remaining builds.
func (s *Service) Charts(ctx context.Context, planID string) ([]render.Chart, error) {
	kinds := core.Kinds()
	out := make([]render.Chart, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := s.Chart(ctx, planID, kind)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops the cached charts of a plan and reports how many went.
func (s *Service) Invalidate(planID string) int {
	if s.charts == nil {
		return 0
	}
	s.mu.Lock()
	s.generations[planID]++
	n := s.charts.DeletePrefix(cache.Key(planID) + "/")
	s.mu.Unlock()
	s.logger.Info("Chart cache invalidated", "plan", planID, "entries", n)
	return n
}

func (s *Service) generation(planID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[planID]
}
