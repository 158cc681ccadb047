package gotify

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Message is the body of POST /message. All fields are always serialized,
// an empty title included.
type Message struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Response is what came back from the server, whatever the status.
type Response struct {
	StatusCode int
	StatusText string
	Body       string
}

// String formats the response as "<code> <reason>: <body>".
func (r *Response) String() string {
	return fmt.Sprintf("%d %s: %s", r.StatusCode, r.StatusText, r.Body)
}

// reasonPhrase extracts the server's reason phrase from resp.Status.
// HTTP/2 has no reason phrase, so the canonical text is used there.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
