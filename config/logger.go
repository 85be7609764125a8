package config

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a component logger writing to stdout and, when a log file
// is configured, to a size-rotated file as well.
func (l LoggingConfig) NewLogger(prefix string) *log.Logger {
	var w io.Writer = os.Stdout
	if l.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   l.File,
			MaxSize:    l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAge:     l.MaxAgeDays,
			Compress:   l.Compress,
		})
	}
	return log.New(w, prefix+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
