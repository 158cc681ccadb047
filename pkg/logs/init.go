package logs

import (
	"os"
	"strconv"

	"github.com/fsandov/klipper-gotify/pkg/gotify"
	"github.com/fsandov/klipper-gotify/pkg/notifiers"
	"go.uber.org/zap"
)

// AutoInitNotifiers registers Gotify alert notifiers for the error and warn levels
// when GOTIFY_LOG_SERVER and GOTIFY_LOG_TOKEN are set. GOTIFY_LOG_PORT defaults to 443.
func AutoInitNotifiers() {
	logger := GetLogger()
	server := os.Getenv("GOTIFY_LOG_SERVER")
	token := os.Getenv("GOTIFY_LOG_TOKEN")
	if server == "" || token == "" {
		return
	}

	opts := []gotify.Option{gotify.WithHost(server), gotify.WithToken(token)}
	if p := os.Getenv("GOTIFY_LOG_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			logger.zap.Error("invalid GOTIFY_LOG_PORT", zap.String("port", p), zap.Error(err))
			return
		}
		opts = append(opts, gotify.WithPort(port))
	}
	client, err := gotify.NewClient(opts...)
	if err != nil {
		logger.zap.Error("failed to init gotify log notifier", zap.Error(err))
		return
	}

	for _, lvl := range []string{"error", "warn"} {
		logger.AddNotifier(lvl, notifiers.NewGotifyNotifier(client, logger.appName))
		logger.zap.Info("gotify log notifier configured", zap.String("level", lvl), zap.String("server", server))
	}
}
