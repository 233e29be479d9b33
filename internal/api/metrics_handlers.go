package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/metrics"
)

func (s *Server) registerMetricsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMetrics",
		Method:      http.MethodGet,
		Path:        "/metrics",
		Summary:     "Metrics summary",
		Description: "Returns uptime and request, rate limit and rating write totals",
		Tags:        []string{"Health"},
	}, s.handleGetMetrics)

	// Plain handler: the exposition format is not JSON.
	s.router.Handle("/metrics/prometheus", s.metrics.Handler())
}

// MetricsOutput wraps the metrics snapshot for Huma.
type MetricsOutput struct {
	Body metrics.Snapshot
}

func (s *Server) handleGetMetrics(_ context.Context, _ *struct{}) (*MetricsOutput, error) {
	snap, err := s.metrics.Snapshot()
	if err != nil {
		return nil, s.fail(err)
	}
	return &MetricsOutput{Body: snap}, nil
}
