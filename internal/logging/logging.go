// Package logging routes logrus output to the console and a rotating file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string // console level
	File       string // empty disables the file log
	FileLevel  string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// levelHook writes entries at or above a level with its own formatter.
type levelHook struct {
	out       io.Writer
	level     logrus.Level
	formatter logrus.Formatter
}

func (h *levelHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.level+1]
}

func (h *levelHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(b)
	return err
}

// Setup configures logger. The returned closer flushes the file log.
func Setup(logger *logrus.Logger, opts Options, console io.Writer) (io.Closer, error) {
	consoleLevel, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if console == nil {
		console = os.Stderr
	}

	hooks := logrus.LevelHooks{}
	logger.ReplaceHooks(hooks)
	logger.SetOutput(io.Discard)
	logger.AddHook(&levelHook{
		out:   console,
		level: consoleLevel,
		formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		},
	})
	maxLevel := consoleLevel

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		fileLevel, err := logrus.ParseLevel(opts.FileLevel)
		if err != nil {
			return nil, fmt.Errorf("log file level: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   opts.Compress,
		}
		logger.AddHook(&levelHook{
			out:   rotator,
			level: fileLevel,
			formatter: &logrus.TextFormatter{
				DisableColors:   true,
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05.000",
			},
		})
		closer = rotator
		maxLevel = max(maxLevel, fileLevel)
	}

	logger.SetLevel(maxLevel)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
