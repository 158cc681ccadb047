package notifiers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fsandov/klipper-gotify/pkg/gotify"
)

var levelPriority = map[string]int{
	"error": 8,
	"warn":  5,
	"info":  2,
	"debug": 0,
}

// GotifyNotifier pushes log alerts to a Gotify application.
type GotifyNotifier struct {
	Client  *gotify.Client
	AppName string
}

func NewGotifyNotifier(client *gotify.Client, appName string) *GotifyNotifier {
	return &GotifyNotifier{
		Client:  client,
		AppName: appName,
	}
}

func (n *GotifyNotifier) Notify(ctx context.Context, level string, message string, fields map[string]any) error {
	title := fmt.Sprintf("[%s]", strings.ToUpper(level))
	if n.AppName != "" {
		title += " " + n.AppName
	}

	body := message
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString(message)
		sb.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n%s: %v", k, fields[k])
		}
		body = sb.String()
	}

	_, err := n.Client.Send(ctx, gotify.Message{
		Title:    title,
		Message:  body,
		Priority: levelPriority[level],
	})
	return err
}
