package editor

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/akiyosi/gonvim-hover/util"
)

// Logger is a nil-safe wrapper over a logrus entry. Stdout belongs to the
// msgpack stream, so output goes to a file or nowhere.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// NewLogger opens path for appending. An empty path discards everything.
func NewLogger(path, level string) (*Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	l.SetOutput(io.Discard)

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)

	logger := &Logger{entry: logrus.NewEntry(l)}
	if path == "" {
		return logger, err
	}

	path, perr := util.ExpandTildeToHomeDirectory(path)
	if perr != nil {
		return logger, perr
	}
	f, ferr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if ferr != nil {
		return logger, ferr
	}
	l.SetOutput(f)
	logger.file = f

	return logger, err
}

// Entry returns the underlying entry, or a discarding one for a nil Logger.
func (l *Logger) Entry() *logrus.Entry {
	if l == nil || l.entry == nil {
		d := logrus.New()
		d.SetOutput(io.Discard)
		return logrus.NewEntry(d)
	}
	return l.entry
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
