package partfinder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partfinder_searches_total",
		Help: "Number of aggregation runs.",
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "partfinder_search_duration_seconds",
		Help:    "End-to-end duration of aggregation runs.",
		Buckets: prometheus.DefBuckets,
	})

	sourceOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partfinder_source_outcomes_total",
		Help: "Per-source fetch-and-extract outcomes.",
	}, []string{"source", "outcome"})

	imageResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partfinder_image_resolutions_total",
		Help: "Listings by final image confidence state.",
	}, []string{"state"})

	imageProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partfinder_image_probes_total",
		Help: "Existence probes against constructed image URLs.",
	}, []string{"result"})
)
