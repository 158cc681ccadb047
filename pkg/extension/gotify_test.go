package extension

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/gotify"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"go.uber.org/zap"
)

type recordingSink struct {
	info   []string
	errors []string
}

func (r *recordingSink) RespondInfo(msg string)  { r.info = append(r.info, msg) }
func (r *recordingSink) RespondError(msg string) { r.errors = append(r.errors, msg) }

func (r *recordingSink) last() string {
	if len(r.info) == 0 {
		return ""
	}
	return r.info[len(r.info)-1]
}

type gotifyServer struct {
	*httptest.Server
	calls int32
	auth  atomic.Value
	body  atomic.Value
}

func newGotifyServer(t *testing.T, status int, body string) *gotifyServer {
	t.Helper()
	gs := &gotifyServer{}
	gs.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&gs.calls, 1)
		gs.auth.Store(r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		gs.body.Store(string(b))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(gs.Close)
	return gs
}

func configFor(t *testing.T, srv *httptest.Server, insecure bool) Config {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return Config{
		Server:             host,
		Port:               port,
		Token:              "secret-token",
		Priority:           5,
		InsecureSkipVerify: insecure,
	}
}

func newNotifier(t *testing.T, cfg Config, registry gcode.CommandRegistry, opts ...Option) (*Gotify, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	g, err := New(cfg, registry, sink, append([]Option{WithLogger(logs.New(zap.NewNop()))}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, sink
}

func TestNewValidatesConfig(t *testing.T) {
	sink := &recordingSink{}
	logger := WithLogger(logs.New(zap.NewNop()))

	if _, err := New(Config{Server: "gotify.local", Token: "t", Port: 443}, nil, sink, logger); err != nil {
		t.Errorf("expected well-formed config to succeed, got %v", err)
	}
	if _, err := New(Config{Server: "gotify.local"}, nil, sink, logger); err == nil || !strings.Contains(err.Error(), "'token'") {
		t.Errorf("expected missing token error, got %v", err)
	}
	if _, err := New(Config{Token: "t"}, nil, sink, logger); err == nil || !strings.Contains(err.Error(), "'server'") {
		t.Errorf("expected missing server error, got %v", err)
	}
	if _, err := New(Config{Server: "gotify.local", Token: "t"}, nil, nil, logger); err == nil {
		t.Error("expected error without sink")
	}
}

func TestNotifyUsage(t *testing.T) {
	srv := newGotifyServer(t, http.StatusOK, "OK")
	g, sink := newNotifier(t, configFor(t, srv.Server, true), nil)

	for _, title := range []string{"", "anything"} {
		res, err := g.Notify(context.Background(), title, "")
		if err != nil {
			t.Fatalf("usage must not fail: %v", err)
		}
		if res != (Result{}) {
			t.Errorf("expected empty result, got %+v", res)
		}
		if sink.last() != Usage {
			t.Errorf("expected usage text, got %q", sink.last())
		}
	}
	if !strings.Contains(Usage, "MSG parameter is required, TITLE optional") {
		t.Error("usage text lost its parameter hint")
	}
	if calls := atomic.LoadInt32(&srv.calls); calls != 0 {
		t.Errorf("expected zero requests, got %d", calls)
	}
}

func TestNotifySuccess(t *testing.T) {
	srv := newGotifyServer(t, http.StatusOK, "OK")
	g, sink := newNotifier(t, configFor(t, srv.Server, true), nil)

	res, err := g.Notify(context.Background(), "Title", "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode != 200 || res.String() != "200 OK: OK" {
		t.Errorf("unexpected result %+v", res)
	}
	if sink.last() != "200 OK: OK" {
		t.Errorf("unexpected success report %q", sink.last())
	}
	if sink.info[0] != "Sending GOTIFY message: Title - Hello" {
		t.Errorf("unexpected announcement %q", sink.info[0])
	}
	if calls := atomic.LoadInt32(&srv.calls); calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
	if got := srv.auth.Load(); got != "Bearer secret-token" {
		t.Errorf("unexpected Authorization %v", got)
	}
	if got := srv.body.Load(); got != `{"title":"Title","message":"Hello","priority":5}` {
		t.Errorf("unexpected body %v", got)
	}
}

func TestNotifyServerError(t *testing.T) {
	srv := newGotifyServer(t, http.StatusInternalServerError, "fail")
	g, sink := newNotifier(t, configFor(t, srv.Server, true), nil)

	res, err := g.Notify(context.Background(), "", "Hello")
	var gerr *gcode.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected command error, got %v", err)
	}
	if gerr.Kind != gcode.KindServer {
		t.Errorf("expected server kind, got %v", gerr.Kind)
	}
	if !strings.Contains(err.Error(), "500 Internal Server Error: fail") {
		t.Errorf("unexpected error text %q", err.Error())
	}
	if res.StatusCode != 500 || res.Body != "fail" {
		t.Errorf("unexpected result %+v", res)
	}
	if strings.Contains(sink.last(), "500") {
		t.Error("server errors must not be reported as success")
	}
}

func TestNotifyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g, _ := newNotifier(t, configFor(t, srv, true), nil, WithTimeout(100*time.Millisecond))
	_, err := g.Notify(context.Background(), "Title", "Hello")

	var gerr *gcode.Error
	if !errors.As(err, &gerr) || gerr.Kind != gcode.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "GOTIFY ERROR:\n") {
		t.Errorf("unexpected error text %q", err.Error())
	}
	var transportErr *gotify.TransportError
	if !errors.As(err, &transportErr) || !transportErr.Timeout() {
		t.Errorf("expected wrapped timeout, got %v", err)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "timeout") {
		t.Errorf("expected timeout description, got %q", err.Error())
	}
}

func TestNotifyCertificateValidation(t *testing.T) {
	srv := newGotifyServer(t, http.StatusOK, "OK")

	insecure, _ := newNotifier(t, configFor(t, srv.Server, true), nil)
	if _, err := insecure.Notify(context.Background(), "", "Hello"); err != nil {
		t.Fatalf("expected insecure send to succeed, got %v", err)
	}

	strict, _ := newNotifier(t, configFor(t, srv.Server, false), nil)
	_, err := strict.Notify(context.Background(), "", "Hello")
	var gerr *gcode.Error
	if !errors.As(err, &gerr) || gerr.Kind != gcode.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "GOTIFY ERROR:\n") || !strings.Contains(err.Error(), "certificate") {
		t.Errorf("expected TLS error text, got %q", err.Error())
	}
}

func TestCommandRegistration(t *testing.T) {
	srv := newGotifyServer(t, http.StatusOK, "OK")
	sink := &recordingSink{}
	d := gcode.NewDispatcher(sink, logs.New(zap.NewNop()))

	if _, err := New(configFor(t, srv.Server, true), d, sink, WithLogger(logs.New(zap.NewNop()))); err != nil {
		t.Fatal(err)
	}
	if d.Commands()[CommandName] != CommandHelp {
		t.Fatalf("expected %s to be registered", CommandName)
	}

	if err := d.Run(context.Background(), `GOTIFY_NOTIFY MSG="Print done" TITLE="Voron 2.4"`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := srv.body.Load(); got != `{"title":"Voron 2.4","message":"Print done","priority":5}` {
		t.Errorf("unexpected body %v", got)
	}
	if sink.last() != "200 OK: OK" {
		t.Errorf("unexpected report %q", sink.last())
	}

	if err := d.Run(context.Background(), "GOTIFY_NOTIFY"); err != nil {
		t.Fatalf("usage must not fail: %v", err)
	}
	if sink.last() != Usage {
		t.Errorf("expected usage, got %q", sink.last())
	}
}

func TestCommandFailureReachesErrorChannel(t *testing.T) {
	srv := newGotifyServer(t, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
	sink := &recordingSink{}
	d := gcode.NewDispatcher(sink, logs.New(zap.NewNop()))
	if _, err := New(configFor(t, srv.Server, true), d, sink, WithLogger(logs.New(zap.NewNop()))); err != nil {
		t.Fatal(err)
	}

	err := d.Run(context.Background(), `GOTIFY_NOTIFY MSG=hi`)
	if err == nil {
		t.Fatal("expected failure")
	}
	want := `401 Unauthorized: {"error":"Unauthorized"}`
	if len(sink.errors) != 1 || sink.errors[0] != want {
		t.Errorf("unexpected error channel %v", sink.errors)
	}
}

func TestConfigFromSection(t *testing.T) {
	cfg, err := ConfigFromSection(config.NewSection("gotify", map[string]string{
		"token":  "abc",
		"server": "gotify.lan",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{Section: "gotify", Server: "gotify.lan", Port: 443, Token: "abc", Priority: 5}
	if cfg != want {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	cfg, err = ConfigFromSection(config.NewSection("gotify", map[string]string{
		"token":                          "abc",
		"server":                         "gotify.lan",
		"priority":                       "9",
		"serverport":                     "8443",
		"disable_certificate_validation": "yes",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Priority != 9 || cfg.Port != 8443 || !cfg.InsecureSkipVerify {
		t.Errorf("unexpected config %+v", cfg)
	}

	bad := []map[string]string{
		{"server": "gotify.lan"},
		{"token": "abc"},
		{"token": "abc", "server": "gotify.lan", "priority": "high"},
		{"token": "abc", "server": "gotify.lan", "serverport": "https"},
		{"token": "abc", "server": "gotify.lan", "serverport": "0"},
		{"token": "abc", "server": "gotify.lan", "disable_certificate_validation": "perhaps"},
	}
	for _, values := range bad {
		if _, err := ConfigFromSection(config.NewSection("gotify", values)); err == nil {
			t.Errorf("expected error for %v", values)
		}
	}
}

func TestUnknownOptions(t *testing.T) {
	sec := config.NewSection("gotify", map[string]string{
		"token":    "abc",
		"server":   "gotify.lan",
		"Priorty":  "7",
		"retries":  "3",
		"priority": "4",
	})

	if got := strings.Join(UnknownOptions(sec), ","); got != "priorty,retries" {
		t.Errorf("unexpected unknown options %q", got)
	}
	cfg, err := ConfigFromSection(sec)
	if err != nil {
		t.Fatalf("unknown options must not fail the section: %v", err)
	}
	if cfg.Priority != 4 || cfg.Port != 443 {
		t.Errorf("unexpected config %+v", cfg)
	}
}
