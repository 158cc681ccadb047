package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/fsandov/klipper-gotify/pkg/transport"
	"go.uber.org/zap"
)

func writePrinterCfg(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	cfg := fmt.Sprintf(`[printer]
kinematics: cartesian

[gotify]
token: cli-token
server: %s
serverport: %s
priority: 4
disable_certificate_validation: true
`, u.Hostname(), u.Port())
	path := filepath.Join(t.TempDir(), "printer.cfg")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newGotify(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendCommand(t *testing.T) {
	srv := newGotify(t, http.StatusOK, "OK")
	path := writePrinterCfg(t, srv)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"send", "--config", path, "--msg", "Hello", "--title", "Title"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "// Sending GOTIFY message: Title - Hello\n// 200 OK: OK\n"
	if out.String() != want {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestSendCommandServerError(t *testing.T) {
	srv := newGotify(t, http.StatusInternalServerError, "fail")
	path := writePrinterCfg(t, srv)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"send", "--config", path, "--msg", "Hello"})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || err.Error() != "500 Internal Server Error: fail" {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(out.String(), "!! 500 Internal Server Error: fail") {
		t.Errorf("expected error on console, got:\n%s", out.String())
	}
}

func TestRunConsole(t *testing.T) {
	var out bytes.Buffer
	d := gcode.NewDispatcher(gcode.NewConsole(&out), logs.New(zap.NewNop()))
	_ = d.RegisterCommand("PING", func(_ context.Context, p gcode.Params) error {
		gcode.NewConsole(&out).RespondInfo("pong " + p.Get("N", ""))
		return nil
	}, "ping")

	in := strings.NewReader("PING N=1\nBOGUS\n; comment\nPING N=2\n")
	if err := runConsole(context.Background(), d, in); err != nil {
		t.Fatal(err)
	}

	want := "// pong 1\n!! Unknown command:\"BOGUS\"\n// pong 2\n"
	if out.String() != want {
		t.Errorf("unexpected console output:\n%s", out.String())
	}
}

func TestSendCommandTruncatesLongAnswer(t *testing.T) {
	srv := newGotify(t, http.StatusOK, strings.Repeat("x", 100))
	path := writePrinterCfg(t, srv)
	t.Cleanup(func() {
		_ = rootCmd.PersistentFlags().Set("max-response-size", strconv.Itoa(transport.DefaultMaxResponseSize))
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"send", "--config", path, "--msg", "Hello", "--title", "Title", "--max-response-size", "10"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "// Sending GOTIFY message: Title - Hello\n// 200 OK: xxxxxxxxxx\n"
	if out.String() != want {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
