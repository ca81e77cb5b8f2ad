package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rfcharts/internal/core"
	"rfcharts/internal/forecast"
	applog "rfcharts/internal/log"
	"rfcharts/internal/middleware/security"
)

// chartLibraryURL is the Chart.js v2 build the page shim targets.
const chartLibraryURL = security.ChartLibraryOrigin + "/chart.js@2.9.4/dist/Chart.min.js"

type canvas struct {
	ElementID string
	Kind      string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var plans []string
	if s.plans != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
		defer cancel()
		var err error
		plans, err = s.plans.ListPlans(ctx)
		if err != nil {
			// the page still renders, just without the list
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Plan list error", applog.FieldError, err)
		}
	}

	data := struct {
		Title string
		Plans []string
	}{
		Title: "Reserve fund plans",
		Plans: plans,
	}
	s.render(w, r, "index.html", data)
}

// handlePlan serves the page shell; the charts are fetched by the page script.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	planID := chi.URLParam(r, "planID")
	if err := forecast.ValidatePlanID(planID); err != nil {
		http.Error(w, "invalid plan id", http.StatusBadRequest)
		return
	}
	if s.plans != nil {
		if known, err := s.planKnown(r.Context(), planID); err == nil && !known {
			http.Error(w, forecast.ErrPlanNotFound.Error(), http.StatusNotFound)
			return
		}
	}

	kinds := core.Kinds()
	data := struct {
		Title           string
		PlanID          string
		Canvases        []canvas
		ChartLibraryURL string
	}{
		Title:           planID + " reserve fund forecast",
		PlanID:          planID,
		Canvases:        make([]canvas, 0, len(kinds)),
		ChartLibraryURL: chartLibraryURL,
	}
	for _, k := range kinds {
		data.Canvases = append(data.Canvases, canvas{ElementID: forecast.ElementID(k), Kind: string(k)})
	}
	s.render(w, r, "plan.html", data)
}

// planKnown reports whether the lister has the plan. Lister failures are
// returned so the caller can fall back to serving the page.
func (s *Server) planKnown(ctx context.Context, planID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			applog.FromContext(ctx).WarnContext(ctx, "Plan list error", applog.FieldError, err)
		}
		return false, err
	}
	for _, p := range plans {
		if p == planID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
