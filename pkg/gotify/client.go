package gotify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/transport"
)

const (
	DefaultPort     = 443
	DefaultTimeout  = 10 * time.Second
	DefaultPriority = 5

	messagePath = "/message"
)

// Client posts messages to a single Gotify server. Every Send dials a fresh
// connection; nothing is pooled between calls.
type Client struct {
	host        string
	port        int
	token       string
	insecure    bool
	timeout     time.Duration
	middlewares []transport.Middleware
	httpClient  *http.Client
	endpoint    string
}

type Option func(*Client)

// WithHost sets the server hostname. A scheme or trailing path is tolerated and stripped.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = normalizeHost(host)
	}
}

func WithPort(port int) Option {
	return func(c *Client) {
		if port > 0 {
			c.port = port
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithInsecureSkipVerify disables certificate verification for this client's
// transport only.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		c.insecure = skip
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMiddleware(mws ...transport.Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, mws...)
	}
}

// WithHTTPClient replaces the client built by NewClient. Timeout and TLS
// options are then the caller's responsibility; middlewares still apply.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		port:    DefaultPort,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.host == "" {
		return nil, errors.New("gotify client: host is required")
	}
	if c.token == "" {
		return nil, errors.New("gotify client: token is required")
	}
	if c.port > 65535 {
		return nil, fmt.Errorf("gotify client: invalid port %d", c.port)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: c.newTransport(),
			Timeout:   c.timeout,
		}
	} else if len(c.middlewares) > 0 {
		base := c.httpClient.Transport
		if base == nil {
			base = c.newTransport()
		}
		hc := *c.httpClient
		hc.Transport = transport.Chain(base, c.middlewares...)
		c.httpClient = &hc
	}

	c.endpoint = (&url.URL{
		Scheme: "https",
		Host:   net.JoinHostPort(c.host, strconv.Itoa(c.port)),
		Path:   messagePath,
	}).String()
	return c, nil
}

func (c *Client) newTransport() http.RoundTripper {
	dialer := &net.Dialer{Timeout: c.timeout}
	base := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.insecure, //nolint:gosec // opt-in through disable_certificate_validation
		},
		TLSHandshakeTimeout:   c.timeout,
		ResponseHeaderTimeout: c.timeout,
		DisableKeepAlives:     true,
	}
	return transport.Chain(base, c.middlewares...)
}

// Endpoint returns the full URL messages are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts msg once. A non-nil Response is returned whenever the server
// answered; a non-200 answer also yields a *StatusError. Failures before
// a response are reported as *TransportError.
func (c *Client) Send(ctx context.Context, msg Message) (*Response, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("error marshalling message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: c.endpoint, Err: err}
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		StatusText: reasonPhrase(resp),
		Body:       string(body),
	}
	if resp.StatusCode != http.StatusOK {
		return out, &StatusError{Response: out}
	}
	return out, nil
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return strings.TrimRight(host, "/")
}
