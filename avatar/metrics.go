package avatar

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_frames_rendered_total",
		Help: "Total animation frames composited",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_sessions_started_total",
		Help: "Total speak sessions opened",
	})

	sessionsInterrupted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_sessions_interrupted_total",
		Help: "Sessions torn down by a newer speak request",
	})

	sessionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_sessions_failed_total",
		Help: "Sessions that ended with a connection or playback error",
	})

	overlayImagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_overlay_images_received_total",
		Help: "Overlay images decoded from the rendering service",
	})

	gateWaitTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexavatar_gate_wait_ticks_total",
		Help: "Render ticks spent holding ready audio for the idle splice point",
	})
)
