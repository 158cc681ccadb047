package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

type Middleware func(next http.RoundTripper) http.RoundTripper

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain wraps base so that mws[0] sees the request first. Nil middlewares are skipped.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		rt = mws[i](rt)
	}
	return rt
}

func RequestIDMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-Request-ID") == "" {
				req.Header.Set("X-Request-ID", uuid.New().String())
			}
			return next.RoundTrip(req)
		})
	}
}

// RateLimitMiddleware blocks until the limiter admits the request or the
// request context is done. A nil limiter disables it.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if limiter != nil {
				if err := limiter.Wait(req.Context()); err != nil {
					return nil, fmt.Errorf("rate limit: %w", err)
				}
			}
			return next.RoundTrip(req)
		})
	}
}

var errServerFailure = errors.New("server error")

// CircuitBreakerMiddleware counts transport errors and 5xx answers as
// failures. While the breaker is open requests fail without being sent.
func CircuitBreakerMiddleware(breaker *gobreaker.CircuitBreaker) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if breaker == nil {
			return next
		}
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var resp *http.Response
			_, err := breaker.Execute(func() (interface{}, error) {
				var err error
				resp, err = next.RoundTrip(req)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= 500 {
					return resp, errServerFailure
				}
				return resp, nil
			})
			if errors.Is(err, errServerFailure) {
				return resp, nil
			}
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}

// NewBreaker returns a breaker that opens after five consecutive failures.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

type TracingConfig struct {
	TracerProvider    trace.TracerProvider
	Propagators       propagation.TextMapPropagator
	SpanNameFormatter func(r *http.Request) string
}

func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		TracerProvider: otel.GetTracerProvider(),
		Propagators:    otel.GetTextMapPropagator(),
		SpanNameFormatter: func(r *http.Request) string {
			return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
		},
	}
}

func TracingMiddleware(config *TracingConfig) Middleware {
	if config == nil {
		config = DefaultTracingConfig()
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.Propagators == nil {
		config.Propagators = otel.GetTextMapPropagator()
	}
	if config.SpanNameFormatter == nil {
		config.SpanNameFormatter = DefaultTracingConfig().SpanNameFormatter
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return &tracingTransport{
			next:   next,
			config: config,
			tracer: config.TracerProvider.Tracer("github.com/fsandov/klipper-gotify/pkg/transport"),
		}
	}
}

type tracingTransport struct {
	next   http.RoundTripper
	config *TracingConfig
	tracer trace.Tracer
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), t.config.SpanNameFormatter(req), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req = req.Clone(ctx)
	t.config.Propagators.Inject(ctx, propagation.HeaderCarrier(req.Header))
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.target", req.URL.Path),
		attribute.String("http.scheme", req.URL.Scheme),
		attribute.String("http.host", req.URL.Host),
	)
	if req.ContentLength > 0 {
		span.SetAttributes(attribute.Int("http.request_content_length", int(req.ContentLength)))
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}

type MetricsConfig struct {
	Namespace  string
	Subsystem  string
	Registerer prometheus.Registerer
}

// MetricsMiddleware records request duration and counts. Registering the same
// collectors twice reuses the ones already registered.
func MetricsMiddleware(config *MetricsConfig) Middleware {
	if config == nil {
		config = &MetricsConfig{}
	}
	if config.Namespace == "" {
		config.Namespace = "gotify_client"
	}
	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requestDuration := registerOrReuse(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "Time spent on requests to the notification server",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "host", "status"},
	))
	requestsTotal := registerOrReuse(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "requests_total",
			Help:      "Requests sent to the notification server",
		},
		[]string{"method", "host", "status"},
	))
	requestErrors := registerOrReuse(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_errors_total",
			Help:      "Requests that failed before a response was received",
		},
		[]string{"method", "host"},
	))

	return func(next http.RoundTripper) http.RoundTripper {
		return &metricsTransport{
			next:            next,
			requestDuration: requestDuration,
			requestsTotal:   requestsTotal,
			requestErrors:   requestErrors,
		}
	}
}

func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

type metricsTransport struct {
	next            http.RoundTripper
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		t.requestErrors.WithLabelValues(req.Method, req.URL.Host).Inc()
		return nil, err
	}
	status := strconv.Itoa(resp.StatusCode)
	t.requestDuration.WithLabelValues(req.Method, req.URL.Host, status).Observe(duration)
	t.requestsTotal.WithLabelValues(req.Method, req.URL.Host, status).Inc()
	return resp, nil
}

// DefaultMaxResponseSize bounds how much of a server answer is read.
const DefaultMaxResponseSize = 64 << 10

// MaxResponseSizeMiddleware truncates response bodies to limit bytes.
func MaxResponseSizeMiddleware(limit int64) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || limit <= 0 || resp.Body == nil {
				return resp, err
			}
			resp.Body = &limitedBody{Reader: io.LimitReader(resp.Body, limit), closer: resp.Body}
			return resp, nil
		})
	}
}

type limitedBody struct {
	io.Reader
	closer io.Closer
}

func (b *limitedBody) Close() error {
	return b.closer.Close()
}
