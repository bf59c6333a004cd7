package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func openLog(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
}

func withSession(core zapcore.Core, sessionName string) *zap.Logger {
	return zap.New(core,
		zap.Fields(
			zap.String("session", sessionName),
			zap.Int("pid", os.Getpid()),
		),
	)
}

// New creates a zap logger that writes JSON to the given log file path
// and also writes to stderr. Session name and PID are included as initial fields.
func New(logPath, sessionName string) (*zap.Logger, error) {
	return NewWithConsole(logPath, sessionName, os.Stderr)
}

// NewWithConsole is New with the console copy sent to w.
func NewWithConsole(logPath, sessionName string, w io.Writer) (*zap.Logger, error) {
	file, err := openLog(logPath)
	if err != nil {
		return nil, err
	}

	encoderCfg := encoderConfig()
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), zapcore.InfoLevel)

	return withSession(zapcore.NewTee(fileCore, consoleCore), sessionName), nil
}

// NewFileOnly logs JSON to logPath only. The terminal client uses it because
// it owns the tty.
func NewFileOnly(logPath, sessionName string) (*zap.Logger, error) {
	file, err := openLog(logPath)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), zapcore.DebugLevel)
	return withSession(core, sessionName), nil
}
