package notifiers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/fsandov/klipper-gotify/pkg/gotify"
)

func TestGotifyNotifier(t *testing.T) {
	var got gotify.Message
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	client, err := gotify.NewClient(gotify.WithHost(host), gotify.WithPort(port), gotify.WithToken("t"), gotify.WithInsecureSkipVerify(true))
	if err != nil {
		t.Fatal(err)
	}

	n := NewGotifyNotifier(client, "klipper-gotify")
	err = n.Notify(context.Background(), "error", "serve failed", map[string]any{"port": 7125, "addr": "0.0.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Title != "[ERROR] klipper-gotify" {
		t.Errorf("unexpected title %q", got.Title)
	}
	if got.Message != "serve failed\n\naddr: 0.0.0.0\nport: 7125" {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.Priority != 8 {
		t.Errorf("unexpected priority %d", got.Priority)
	}
}
