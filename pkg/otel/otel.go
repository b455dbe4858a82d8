// Package otel provides OpenTelemetry SDK initialization for nexavatar services.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	ServiceName string
	Environment string
	// ExportTraces writes spans to stderr; off by default so the render
	// loop's chatter stays out of production logs.
	ExportTraces bool
}

// InitResult holds the logger and shutdown function from Init.
type InitResult struct {
	Logger   *slog.Logger
	Shutdown func(context.Context) error
}

// Init configures the tracer provider, propagators and structured logger.
func Init(cfg Config) (*InitResult, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.ExportTraces {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger := slog.New(&prettyHandler{level: slog.LevelInfo, w: os.Stderr})

	shutdown := func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}

	return &InitResult{Logger: logger, Shutdown: shutdown}, nil
}

// NewPrettyHandler returns a slog.Handler that formats as [LEVEL hh:mm:ss] msg key=value ...
func NewPrettyHandler() slog.Handler {
	return &prettyHandler{level: slog.LevelInfo, w: os.Stderr}
}

// prettyHandler formats log records as [LEVEL hh:mm:ss] msg key=value ...
type prettyHandler struct {
	level slog.Level
	w     *os.File
	attrs []slog.Attr
	group string
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()
	ts := r.Time.Format("15:04:05")

	var buf []byte
	buf = append(buf, '[')
	buf = append(buf, level...)
	buf = append(buf, ' ')
	buf = append(buf, ts...)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	// Append pre-set attrs
	for _, a := range h.attrs {
		buf = append(buf, ' ')
		if h.group != "" {
			buf = append(buf, h.group...)
			buf = append(buf, '.')
		}
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
	}

	// Append record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf = append(buf, ' ')
		if h.group != "" {
			buf = append(buf, h.group...)
			buf = append(buf, '.')
		}
		buf = append(buf, a.Key...)
		buf = append(buf, '=')
		buf = append(buf, a.Value.String()...)
		return true
	})

	buf = append(buf, '\n')
	_, err := h.w.Write(buf)
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &prettyHandler{level: h.level, w: h.w, attrs: newAttrs, group: h.group}
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	g := name
	if h.group != "" {
		g = h.group + "." + name
	}
	return &prettyHandler{level: h.level, w: h.w, attrs: h.attrs, group: g}
}

// Tracer returns a tracer for the given instrumentation name.
func Tracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// Context keys for session/user propagation.
type ctxKey int

const (
	ctxKeySessionID ctxKey = iota
	ctxKeyUserID
)

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// WithUserID adds a user ID to the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

// SessionIDFromContext retrieves the session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// UserIDFromContext retrieves the user ID from context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}
