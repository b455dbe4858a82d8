package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexavatar_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexavatar_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	ChatRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexavatar_chat_requests_total",
		Help: "Total chat requests",
	}, []string{"brand", "model"})

	TTSRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexavatar_tts_request_duration_seconds",
		Help:    "TTS synthesis duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5},
	})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexavatar_logins_total",
		Help: "Total login attempts",
	}, []string{"status"})

	UsersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexavatar_users_online",
		Help: "Number of connected widget users",
	})
)
