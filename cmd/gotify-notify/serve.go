package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/fsandov/klipper-gotify/pkg/telemetry"
	"github.com/fsandov/klipper-gotify/pkg/transport"
	"github.com/fsandov/klipper-gotify/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the printer G-code endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app := config.Get()
		otlp := viper.GetString("otlp-endpoint")

		shutdown, err := telemetry.Setup(ctx, telemetry.Config{
			ServiceName:    app.AppName,
			ServiceVersion: app.Version,
			Environment:    app.Environment,
			OTLPEndpoint:   otlp,
			Insecure:       viper.GetBool("otlp-insecure"),
			EnableMetrics:  true,
		})
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logs.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
			}
		}()

		store := gcode.NewStore(viper.GetInt("store-size"))
		sink := gcode.Tee(store, gcode.NewLogSink(logs.GetLogger()))

		extra := []transport.Middleware{transport.MetricsMiddleware(nil)}
		if otlp != "" {
			extra = append(extra, transport.TracingMiddleware(nil))
		}
		d, _, err := newRuntime(sink, extra...)
		if err != nil {
			return err
		}

		cfg := web.DefaultGinConfig()
		cfg.Addr = viper.GetString("addr")
		cfg.APIKey = viper.GetString("api-key")
		cfg.EnablePprof = viper.GetBool("pprof")
		cfg.EnableTracing = otlp != ""
		return web.New(cfg, d, store).Run(ctx)
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", ":7126", "listen address")
	flags.String("api-key", "", "require this value in the X-Api-Key header")
	flags.String("otlp-endpoint", "", "OTLP/gRPC collector for traces, e.g. localhost:4317")
	flags.Bool("otlp-insecure", true, "connect to the collector without TLS")
	flags.Bool("pprof", false, "expose /debug/pprof")
	flags.Int("store-size", gcode.DefaultStoreSize, "console lines kept for /server/gcode_store")
	for _, name := range []string{"addr", "api-key", "otlp-endpoint", "otlp-insecure", "pprof", "store-size"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	rootCmd.AddCommand(serveCmd)
}
