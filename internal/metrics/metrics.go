package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Live connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modchat_connections_active",
			Help: "Currently connected websocket clients",
		},
	)

	RoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modchat_room_joins_total",
			Help: "Total join_room events handled",
		},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_messages_posted_total",
			Help: "Total messages persisted to room history",
		},
		[]string{"kind"}, // "text", "image" or "seed"
	)

	ImageSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_image_submissions_total",
			Help: "Image submission outcomes by terminal pipeline stage",
		},
		[]string{"outcome"}, // "ok" or the failing stage
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modchat_image_pipeline_duration_seconds",
			Help:    "End-to-end image pipeline duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modchat_store_latency_seconds",
			Help:    "History store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25},
		},
	)
)
