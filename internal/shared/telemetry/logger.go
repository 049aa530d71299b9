package telemetry

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// Init installs the process-wide logger: console output in dev, JSON
// elsewhere. Safe to call more than once; later calls replace the logger.
func Init(env string) {
	cfg := zap.NewProductionConfig()
	if env == "dev" || env == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	base, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		base = zap.NewNop()
	}
	mu.Lock()
	logger = base.Sugar()
	mu.Unlock()
}

// Replace swaps the underlying logger and returns a restore func. Intended
// for tests that observe log output.
func Replace(base *zap.Logger) func() {
	mu.Lock()
	prev := logger
	logger = base.Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	get().Infow(msg, flatten(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	get().Warnw(msg, flatten(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	get().Errorw(msg, flatten(fields)...)
}

// Sync flushes buffered entries; call from main before exit.
func Sync() {
	_ = get().Sync()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		base, err := zap.NewProduction(zap.AddCallerSkip(2))
		if err != nil {
			base = zap.NewNop()
		}
		logger = base.Sugar()
	}
	return logger
}

// flatten turns a field map into zap's alternating key/value form with
// stable ordering.
func flatten(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}
