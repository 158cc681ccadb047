package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/extension"
	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/fsandov/klipper-gotify/pkg/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gotify-notify",
	Short: "Gotify push notifications for Klipper printers",
	Long: `gotify-notify provides the GOTIFY_NOTIFY command outside of the printer host.
It reads the [gotify] section of printer.cfg and sends one HTTPS request to
the configured Gotify server per command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logs.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "printer.cfg", "printer configuration file (.cfg/.ini, .yaml, .json or .toml)")
	flags.String("section", extension.DefaultSection, "configuration section holding the gotify options")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Float64("rate-limit", 0, "maximum notifications per second, 0 disables the limit")
	flags.Bool("breaker", false, "stop sending after repeated failures until the server recovers")
	flags.Int64("max-response-size", transport.DefaultMaxResponseSize, "bytes of the server answer to read and echo, 0 reads everything")

	for _, name := range []string{"config", "section", "verbose", "rate-limit", "breaker", "max-response-size"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig loads .env, binds GOTIFY_NOTIFY_* variables to flags and sets up logging.
func initConfig() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("GOTIFY_NOTIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
	config.Init(&config.AppConfig{Version: version})
	logs.NewLogger()
	logs.AutoInitNotifiers()
}

// newRuntime builds a dispatcher with GOTIFY_NOTIFY registered, reporting on sink.
func newRuntime(sink gcode.ReportingSink, extra ...transport.Middleware) (*gcode.Dispatcher, *extension.Gotify, error) {
	cfg, err := extension.LoadConfig(viper.GetString("config"), viper.GetString("section"))
	if err != nil {
		return nil, nil, err
	}

	mws := []transport.Middleware{transport.RequestIDMiddleware()}
	if n := viper.GetInt64("max-response-size"); n > 0 {
		mws = append(mws, transport.MaxResponseSizeMiddleware(n))
	}
	if r := viper.GetFloat64("rate-limit"); r > 0 {
		mws = append(mws, transport.RateLimitMiddleware(rate.NewLimiter(rate.Limit(r), 1)))
	}
	if viper.GetBool("breaker") {
		mws = append(mws, transport.CircuitBreakerMiddleware(transport.NewBreaker("gotify-"+cfg.Server)))
	}
	mws = append(mws, extra...)

	logger := logs.GetLogger()
	d := gcode.NewDispatcher(sink, logger)
	g, err := extension.New(cfg, d, sink,
		extension.WithLogger(logger),
		extension.WithMiddleware(mws...),
	)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug(context.Background(), "gotify extension loaded", "endpoint", g.Endpoint(), "priority", cfg.Priority)
	return d, g, nil
}
