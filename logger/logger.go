package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log = logrus.New()

type LoggerConfig struct {
	LogLevel     string
	LogFile      string
	LogFileSize  int
	LogFileCount int
	LogCompress  bool
	// LogToFileOnly drops stdout from the outputs.
	LogToFileOnly bool
}

func InitLogger(config LoggerConfig) {
	if config.LogFileSize == 0 {
		config.LogFileSize = 10
	}
	if config.LogFileCount == 0 {
		config.LogFileCount = 5
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/rampart.log"
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(ParseLevel(config.LogLevel))

	os.MkdirAll(filepath.Dir(config.LogFile), 0o755)
	rotate := &lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    config.LogFileSize, // megabytes
		MaxBackups: config.LogFileCount,
		MaxAge:     28, //days
		Compress:   config.LogCompress,
	}
	if config.LogToFileOnly {
		Log.SetOutput(rotate)
		return
	}
	Log.SetOutput(io.MultiWriter(os.Stdout, rotate))
}

// ParseLevel maps the configured level names onto logrus levels. Unknown
// names fall back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return Log.IsLevelEnabled(logrus.DebugLevel)
}
