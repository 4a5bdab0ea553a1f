// Package api exposes the traffic service over HTTP as JSON.
package api

import (
	"net/http"
	"time"

	"traffic-predictor/internal/metrics"
	"traffic-predictor/internal/traffic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	AllowedOrigins []string
	StaticDir      string
	Gatherer       prometheus.Gatherer
	Now            func() time.Time
}

// NewRouter mounts every route on a chi router.
func NewRouter(svc *traffic.Service, m *metrics.Metrics, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	h := &Handler{svc: svc, now: opts.Now}

	r := chi.NewRouter()
	r.Use(requestLogger(m))
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/models/info", h.ModelsInfo)
		r.Get("/predict/24hours", h.Predict24Hours)
		r.Get("/predict/map", h.PredictMap)
		r.Get("/prophet/predictions", h.Forecasts)
		r.Get("/clustering/spectral", h.ClusteringSummary)
		r.Get("/clustering/models", h.ClusteringModels)
		r.Get("/detectors/list", h.Detectors)
	})

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}
