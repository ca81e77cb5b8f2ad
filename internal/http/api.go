package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"rfcharts/internal/core"
	"rfcharts/internal/dashboard"
	"rfcharts/internal/fetch"
	"rfcharts/internal/forecast"
	applog "rfcharts/internal/log"
	"rfcharts/internal/middleware/ratelimit"
	"rfcharts/internal/middleware/security"
	"rfcharts/internal/middleware/trace"
	"rfcharts/internal/render"
)

type planInput struct {
	PlanID string `path:"planID" doc:"Plan identifier"`
}

type planKindInput struct {
	PlanID string `path:"planID" doc:"Plan identifier"`
	Kind   string `path:"kind" doc:"Chart kind: balance-line, comparison-bars, dual-axis-total-vs-expenditure or stacked-allocation"`
}

// rawJSONOutput carries an already marshalled JSON document.
type rawJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type chartOutput struct {
	Body render.Chart
}

type chartsOutput struct {
	Body struct {
		Plan   string         `json:"plan"`
		Charts []render.Chart `json:"charts"`
	}
}

func registerPlanHandlers(api huma.API, s *Server) {
	type plansOutput struct {
		Body struct {
			Plans []string `json:"plans"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-plans", Method: http.MethodGet, Path: "/api/v1/plans", Summary: "List known plans", Tags: []string{"Plans"}},
		func(ctx context.Context, input *struct{}) (*plansOutput, error) {
			out := &plansOutput{}
			out.Body.Plans = []string{}
			if s.plans == nil {
				return out, nil
			}
			plans, err := s.plans.ListPlans(ctx)
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			out.Body.Plans = append(out.Body.Plans, plans...)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-payload", Method: http.MethodGet, Path: "/api/v1/plans/{planID}/payloads/{kind}", Summary: "Get the raw payload of one chart", Tags: []string{"Plans"}},
		func(ctx context.Context, input *planKindInput) (*rawJSONOutput, error) {
			if err := forecast.ValidatePlanID(input.PlanID); err != nil {
				return nil, mapErr(ctx, err)
			}
			p, err := s.dash.Payload(ctx, input.PlanID, core.ChartKind(input.Kind))
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			data, err := json.Marshal(p)
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			return &rawJSONOutput{ContentType: "application/json", Body: data}, nil
		})
}

func registerChartHandlers(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{OperationID: "get-chart", Method: http.MethodGet, Path: "/api/v1/plans/{planID}/charts/{kind}", Summary: "Get the rendered config of one chart", Tags: []string{"Charts"}},
		func(ctx context.Context, input *planKindInput) (*chartOutput, error) {
			if err := forecast.ValidatePlanID(input.PlanID); err != nil {
				return nil, mapErr(ctx, err)
			}
			c, hit, err := s.dash.Lookup(ctx, input.PlanID, core.ChartKind(input.Kind))
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			applog.NewStructuredLogger(applog.FromContext(ctx)).LogChartServed(ctx, input.PlanID, input.Kind, hit)
			return &chartOutput{Body: c}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-charts", Method: http.MethodGet, Path: "/api/v1/plans/{planID}/charts", Summary: "Get every chart of a plan", Tags: []string{"Charts"}},
		func(ctx context.Context, input *planInput) (*chartsOutput, error) {
			if err := forecast.ValidatePlanID(input.PlanID); err != nil {
				return nil, mapErr(ctx, err)
			}
			charts, err := s.dash.Charts(ctx, input.PlanID)
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			out := &chartsOutput{}
			out.Body.Plan = input.PlanID
			out.Body.Charts = charts
			return out, nil
		})

	type renderInput struct {
		Kind    string `path:"kind" doc:"Chart kind"`
		RawBody []byte `contentType:"application/json"`
	}
	huma.Register(api, huma.Operation{OperationID: "render-chart", Method: http.MethodPost, Path: "/api/v1/charts/{kind}", Summary: "Render a chart from a posted payload", Tags: []string{"Charts"}},
		func(ctx context.Context, input *renderInput) (*chartOutput, error) {
			kind, err := core.ParseChartKind(input.Kind)
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			p, err := core.DecodePayload(input.RawBody)
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			c, err := dashboard.Render(p, kind, s.dash.Theme())
			if err != nil {
				return nil, mapErr(ctx, err)
			}
			return &chartOutput{Body: c}, nil
		})
}

type cacheCounters struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func registerStatsHandlers(api huma.API, s *Server) {
	type statsOutput struct {
		Body struct {
			Uptime    string                    `json:"uptime"`
			Cache     *cacheCounters            `json:"cache,omitempty"`
			Requests  trace.Metrics             `json:"requests"`
			RateLimit ratelimit.Metrics         `json:"rate_limit"`
			Security  security.DetectionMetrics `json:"security"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-stats", Method: http.MethodGet, Path: "/api/v1/stats", Summary: "Server counters", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*statsOutput, error) {
			out := &statsOutput{}
			out.Body.Uptime = time.Since(s.started).Round(time.Second).String()
			if s.charts != nil {
				hits, misses := s.charts.Stats()
				out.Body.Cache = &cacheCounters{Entries: s.charts.Size(), Hits: hits, Misses: misses}
			}
			out.Body.Requests = s.tracer.GetMetrics()
			out.Body.RateLimit = s.limiter.GetMetrics()
			out.Body.Security = s.detector.GetMetrics()
			return out, nil
		})
}

// mapErr turns domain errors into API errors. Unexpected errors are logged
// and reported without detail.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, forecast.ErrInvalidPlanID):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, forecast.ErrPlanNotFound), errors.Is(err, core.ErrUnknownChartKind):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, core.ErrMalformedPayload),
		errors.Is(err, core.ErrLengthMismatch),
		errors.Is(err, forecast.ErrEmptyForecast):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, fetch.ErrTransportFailure):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("backend timed out")
	}
	applog.FromContext(ctx).ErrorContext(ctx, "Request failed", slog.Any(applog.FieldError, err))
	return huma.Error500InternalServerError("internal error")
}
