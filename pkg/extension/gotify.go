// Package extension implements the GOTIFY_NOTIFY printer command: one HTTPS
// POST to a Gotify server per invocation, with the outcome reported back on
// the host console.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/gotify"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/fsandov/klipper-gotify/pkg/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	CommandName = "GOTIFY_NOTIFY"
	CommandHelp = "Sending message to GOTIFY server"

	Usage = "Gotify based push notification for Klipper.\n" +
		"USAGE: GOTIFY_NOTIFY MSG=\"message\" [TITLE=\"title\"]\n" +
		"MSG parameter is required, TITLE optional"

	errorPrefix = "GOTIFY ERROR:\n"
)

// Result is the server's answer to one notification.
type Result struct {
	StatusCode int
	StatusText string
	Body       string
}

func (r Result) String() string {
	return fmt.Sprintf("%d %s: %s", r.StatusCode, r.StatusText, r.Body)
}

type options struct {
	logger      *logs.Logger
	middlewares []transport.Middleware
	timeout     time.Duration
	httpClient  *http.Client
}

type Option func(*options)

func WithLogger(l *logs.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMiddleware wraps the connection used for sending.
func WithMiddleware(mws ...transport.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithTimeout overrides the 10 second send timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Gotify is the notifier behind GOTIFY_NOTIFY.
type Gotify struct {
	cfg     Config
	client  *gotify.Client
	sink    gcode.ReportingSink
	logger  *logs.Logger
	counter metric.Int64Counter
}

// New validates cfg and, when registry is not nil, registers GOTIFY_NOTIFY on it.
func New(cfg Config, registry gcode.CommandRegistry, sink gcode.ReportingSink, opts ...Option) (*Gotify, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.New("gotify: reporting sink is required")
	}
	o := &options{timeout: gotify.DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logs.GetLogger()
	}

	clientOpts := []gotify.Option{
		gotify.WithHost(cfg.Server),
		gotify.WithPort(cfg.Port),
		gotify.WithToken(cfg.Token),
		gotify.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		gotify.WithTimeout(o.timeout),
		gotify.WithMiddleware(o.middlewares...),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, gotify.WithHTTPClient(o.httpClient))
	}
	client, err := gotify.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gotify: %w", err)
	}

	counter, err := otel.Meter("github.com/fsandov/klipper-gotify/pkg/extension").Int64Counter(
		"gotify.notifications",
		metric.WithDescription("GOTIFY_NOTIFY invocations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("gotify: create counter: %w", err)
	}

	g := &Gotify{
		cfg:     cfg,
		client:  client,
		sink:    sink,
		logger:  o.logger,
		counter: counter,
	}
	if registry != nil {
		if err := registry.RegisterCommand(CommandName, g.cmdGotifyNotify, CommandHelp); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gotify) Config() Config {
	return g.cfg
}

// Endpoint returns the URL notifications are posted to.
func (g *Gotify) Endpoint() string {
	return g.client.Endpoint()
}

func (g *Gotify) cmdGotifyNotify(ctx context.Context, params gcode.Params) error {
	_, err := g.Notify(ctx, params.Get("TITLE", ""), params.Get("MSG", ""))
	return err
}

// Notify sends one notification. An empty message only prints usage. A
// non-200 answer or a transport failure is returned as a *gcode.Error.
func (g *Gotify) Notify(ctx context.Context, title, message string) (Result, error) {
	if message == "" {
		g.sink.RespondInfo(Usage)
		g.record(ctx, "usage")
		return Result{}, nil
	}

	g.sink.RespondInfo(fmt.Sprintf("Sending GOTIFY message: %s - %s", title, message))
	resp, err := g.client.Send(ctx, gotify.Message{
		Title:    title,
		Message:  message,
		Priority: g.cfg.Priority,
	})

	var (
		statusErr    *gotify.StatusError
		transportErr *gotify.TransportError
	)
	switch {
	case err == nil:
		res := resultFrom(resp)
		g.logger.Debug(ctx, "gotify notification sent", zap.String("endpoint", g.client.Endpoint()), zap.Int("status", res.StatusCode))
		g.record(ctx, "sent")
		g.sink.RespondInfo(res.String())
		return res, nil
	case errors.As(err, &statusErr):
		res := resultFrom(statusErr.Response)
		g.logger.Warn(ctx, "gotify server rejected notification", zap.String("endpoint", g.client.Endpoint()), zap.Int("status", res.StatusCode))
		g.record(ctx, "rejected")
		return res, gcode.Errorf(gcode.KindServer, err, res.String())
	case errors.As(err, &transportErr):
		g.logger.Warn(ctx, "gotify notification failed", zap.String("endpoint", g.client.Endpoint()), zap.Bool("timeout", transportErr.Timeout()), zap.Error(err))
		g.record(ctx, "failed")
		return Result{}, gcode.Errorf(gcode.KindTransport, err, errorPrefix+err.Error())
	default:
		g.record(ctx, "failed")
		return Result{}, gcode.Errorf(gcode.KindTransport, err, errorPrefix+err.Error())
	}
}

func (g *Gotify) record(ctx context.Context, outcome string) {
	g.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func resultFrom(r *gotify.Response) Result {
	if r == nil {
		return Result{}
	}
	return Result{StatusCode: r.StatusCode, StatusText: r.StatusText, Body: r.Body}
}
