// Package logger sets up the internal and access logging of the server
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/cmd/sigvault/config"
)

const (
	internalLogFileName = "sigvault.log"
	accessLogFileName   = "access.log"
	smartLogFileName    = "sigvault-errors.log"
)

// Init initializes the internal logger from the loaded config
func Init() {
	conf := config.Get().Logging
	if err := setup(log.StandardLogger(), conf.Internal.Level, conf.Internal.Format); err != nil {
		log.WithError(err).Fatal("could not configure logger")
	}
	out, err := writer(conf.Internal.LoggerConf, internalLogFileName, os.Stderr)
	if err != nil {
		log.WithError(err).Fatal("could not open log file")
	}
	log.SetOutput(out)
	if conf.Internal.Smart.Enabled {
		hook, err := newSmartHook(filepath.Join(conf.Internal.Smart.Dir, smartLogFileName), log.StandardLogger().Formatter)
		if err != nil {
			log.WithError(err).Fatal("could not open smart log file")
		}
		log.AddHook(hook)
	}
}

// AccessLogWriter returns the writer for the http access log
func AccessLogWriter() io.Writer {
	w, err := writer(config.Get().Logging.Access, accessLogFileName, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("could not open access log file")
	}
	return w
}

func setup(l *log.Logger, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.WithStack(err)
	}
	l.SetLevel(lvl)
	switch format {
	case config.LogFormatJSON:
		l.SetFormatter(&log.JSONFormatter{})
	default:
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// writer returns the destination for a logger. Without a directory the
// fallback is used.
func writer(conf config.LoggerConf, fileName string, fallback io.Writer) (io.Writer, error) {
	if conf.Dir == "" {
		return fallback, nil
	}
	f, err := openLogFile(filepath.Join(conf.Dir, fileName))
	if err != nil {
		return nil, err
	}
	if conf.StdErr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}

func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	return f, errors.WithStack(err)
}

// smartHook duplicates error entries to a separate file
type smartHook struct {
	out       io.Writer
	formatter log.Formatter
}

func newSmartHook(path string, formatter log.Formatter) (*smartHook, error) {
	f, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	return &smartHook{
		out:       f,
		formatter: formatter,
	}, nil
}

// Levels implements the log.Hook interface
func (*smartHook) Levels() []log.Level {
	return []log.Level{
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
	}
}

// Fire implements the log.Hook interface
func (h *smartHook) Fire(entry *log.Entry) error {
	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(data)
	return err
}
