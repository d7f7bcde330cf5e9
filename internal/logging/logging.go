// Package logging builds the component loggers used across symtrack.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger with the "[component] " prefix convention.
// A nil writer defaults to stderr.
func New(component string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

// FileWriter returns a size-rotated log file writer. Rotation keeps
// three 10 MB files for two weeks.
func FileWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
}

// TeeWriter duplicates log output to stderr and a rotated file.
// An empty path logs to stderr only.
func TeeWriter(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, FileWriter(path))
}
