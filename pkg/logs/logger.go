package logs

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsandov/klipper-gotify/pkg/env"
	"github.com/fsandov/klipper-gotify/pkg/notifiers"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *Logger
	initOnce     sync.Once
)

type Logger struct {
	zap       *zap.Logger
	notifiers map[string][]notifiers.Notifier
	appName   string
	mu        sync.RWMutex
	wg        sync.WaitGroup
}

// NewLogger builds the process-wide logger once. Later calls return the same instance.
func NewLogger(opts ...zap.Option) *Logger {
	initOnce.Do(func() {
		opts = append(opts, zap.AddCallerSkip(2))

		var (
			zapLogger *zap.Logger
			err       error
		)
		if env.IsRemote() {
			cfg := zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			zapLogger, err = cfg.Build(append(opts, zap.AddCaller())...)
		} else {
			cfg := zap.NewDevelopmentConfig()
			if os.Getenv("LOG_LEVEL") == "" {
				cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
			}
			zapLogger, err = cfg.Build(append(opts, zap.AddCaller())...)
		}
		if err != nil {
			zapLogger = zap.NewNop()
		}
		if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
			if parsed, perr := zapcore.ParseLevel(lvl); perr == nil {
				zapLogger = zapLogger.WithOptions(zap.IncreaseLevel(parsed))
			}
		}

		globalLogger = New(zapLogger)
		globalLogger.appName = os.Getenv("APP_NAME")
		zap.ReplaceGlobals(zapLogger)
	})
	return globalLogger
}

// New wraps an existing zap logger without touching the process-wide instance.
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{
		zap:       z,
		notifiers: make(map[string][]notifiers.Notifier),
	}
}

func GetLogger() *Logger {
	if globalLogger == nil {
		return NewLogger()
	}
	return globalLogger
}

// Zap exposes the underlying logger for libraries that want a *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) AddNotifier(level string, notifier notifiers.Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.notifiers == nil {
		l.notifiers = make(map[string][]notifiers.Notifier)
	}
	l.notifiers[level] = append(l.notifiers[level], notifier)
}

func Info(ctx context.Context, msg string, fieldsAndOpts ...any) {
	GetLogger().Info(ctx, msg, fieldsAndOpts...)
}
func Warn(ctx context.Context, msg string, fieldsAndOpts ...any) {
	GetLogger().Warn(ctx, msg, fieldsAndOpts...)
}
func Error(ctx context.Context, msg string, fieldsAndOpts ...any) {
	GetLogger().Error(ctx, msg, fieldsAndOpts...)
}
func Debug(ctx context.Context, msg string, fieldsAndOpts ...any) {
	GetLogger().Debug(ctx, msg, fieldsAndOpts...)
}

func (l *Logger) Info(ctx context.Context, msg string, fieldsAndOpts ...any) {
	l.logWithOpts(ctx, "info", msg, fieldsAndOpts...)
}
func (l *Logger) Warn(ctx context.Context, msg string, fieldsAndOpts ...any) {
	l.logWithOpts(ctx, "warn", msg, fieldsAndOpts...)
}
func (l *Logger) Error(ctx context.Context, msg string, fieldsAndOpts ...any) {
	l.logWithOpts(ctx, "error", msg, fieldsAndOpts...)
}
func (l *Logger) Debug(ctx context.Context, msg string, fieldsAndOpts ...any) {
	l.logWithOpts(ctx, "debug", msg, fieldsAndOpts...)
}

func (l *Logger) logWithOpts(ctx context.Context, level, msg string, fieldsAndOpts ...any) {
	var zapFields []zap.Field
	opts := &logOptions{}
	for i := 0; i < len(fieldsAndOpts); i++ {
		switch v := fieldsAndOpts[i].(type) {
		case []zap.Field:
			zapFields = append(zapFields, v...)
		case zap.Field:
			zapFields = append(zapFields, v)
		case LogOption:
			v.apply(opts)
		case string:
			// key/value pair; a trailing key without value is kept as orphanKey
			if i+1 >= len(fieldsAndOpts) {
				zapFields = append(zapFields, zap.String("orphanKey", v))
				continue
			}
			zapFields = append(zapFields, zap.Any(v, fieldsAndOpts[i+1]))
			i++
		case error:
			zapFields = append(zapFields, zap.Error(v))
		default:
			zapFields = append(zapFields, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
	}

	if l.appName != "" {
		msg = "[" + l.appName + "] " + msg
	}

	switch level {
	case "info":
		l.zap.Info(msg, zapFields...)
	case "warn":
		l.zap.Warn(msg, zapFields...)
	case "error":
		l.zap.Error(msg, zapFields...)
	case "debug":
		l.zap.Debug(msg, zapFields...)
	}
	if opts.withNotifier {
		targets := opts.targets
		if len(targets) == 0 {
			targets = []string{level}
		}
		for _, target := range targets {
			l.sendNotifications(ctx, target, msg, zapFields)
		}
	}
}

func (l *Logger) sendNotifications(ctx context.Context, level, msg string, fields []zap.Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	notifiersForLevel := l.notifiers[level]
	if len(notifiersForLevel) == 0 {
		l.zap.Debug("no notifiers configured for level", zap.String("level", level))
		return
	}
	fieldMap := fieldsToMap(fields)
	// detached from the caller so a finished request does not cancel the alert
	ctx = context.WithoutCancel(ctx)
	for _, notifier := range notifiersForLevel {
		l.wg.Add(1)
		go func(n notifiers.Notifier) {
			defer l.wg.Done()
			if err := n.Notify(ctx, level, msg, fieldMap); err != nil {
				l.zap.Error("failed to send notification", zap.String("level", level), zap.Error(err))
			}
		}(notifier)
	}
}

func fieldsToMap(fields []zap.Field) map[string]any {
	out := map[string]any{}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		out[k] = v
	}
	return out
}

// Flush waits for pending notifications and syncs the zap core.
func (l *Logger) Flush() {
	l.wg.Wait()
	_ = l.zap.Sync()
}

func Flush() {
	if globalLogger != nil {
		globalLogger.Flush()
	}
}
