// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// The CMS writes lifecycle and error events to one JSON log per day under
// `<root>/logs/cms-YYYY-MM-DD.log`.  When running in an interactive TTY we
// tee the same events, colorized, to stdout.  Rotation, compression, and
// retention are handled by Lumberjack; no external log-rotate job is
// required.
//
// The minimum level comes from ZAP_LEVEL ("debug", "info", "warn", …).
// Request-enrichment spans and the editor's autosave traces log at DEBUG,
// so production stays quiet at the default INFO.
//
// Usage
// -----
//
//	log, err := logger.New(cfg.Paths.Root, runningInTTY())
//	if err != nil { … }
//	log.Infow("tenant online", "tenant", slug)
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • Oxford commas, two spaces after periods.
package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// level reads ZAP_LEVEL, defaulting to INFO on empty or unparsable values.
func level() zapcore.Level {
	raw := os.Getenv("ZAP_LEVEL")
	if raw == "" {
		return zap.InfoLevel
	}
	l, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zap.InfoLevel
	}
	return l
}

// New returns a *zap.SugaredLogger writing JSON to /logs/cms-YYYY-MM-DD.log.
// When tee == true, a colored console core is also attached.  The logger
// is installed as the process-wide default via zap.ReplaceGlobals.
func New(rootDir string, tee bool) (*zap.SugaredLogger, error) {
	logDir := filepath.Join(rootDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	fileName := "cms-" + time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	lvl := level()

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	jsonCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(fileSink),
		lvl,
	)

	var cores []zapcore.Core
	cores = append(cores, jsonCore)

	if tee {
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			lvl,
		)
		cores = append(cores, consoleCore)
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	// Make this the global logger so zap.L() works everywhere after startup.
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "tee", tee, "level", lvl.String())
	return z, nil
}
