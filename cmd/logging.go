package cmd

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/postpipe/core"
	glog "github.com/goliatone/go-logger/glog"
)

// loggers hands out named child loggers of one go-logger root.
type loggers struct {
	root *glog.BaseLogger
}

func newLoggers(cfg LogConfig) (*loggers, error) {
	options := []glog.Option{}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	options = append(options, glog.WithLevel(level))

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	return &loggers{root: glog.NewLogger(options...)}, nil
}

// get returns the logger for one component.
func (l *loggers) get(name string) core.Logger {
	if l == nil || l.root == nil {
		return core.NopLogger()
	}
	return l.root.GetLogger(name)
}

func parseLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace, nil
	case "debug":
		return glog.Debug, nil
	case "", "info":
		return glog.Info, nil
	case "warn", "warning":
		return glog.Warn, nil
	case "error":
		return glog.Error, nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}
