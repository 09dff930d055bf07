package log

import (
	stdlog "log"

	"github.com/hamba/pkg/log"
)

// Level is the log level that will be used.
type Level int

// The log level constants.
const (
	Debug Level = iota
	Info
)

// Bridge is a log bridge to a standard logger.
type Bridge struct {
	log    log.Logger
	lvl    Level
	prefix string
}

// NewWriter returns a bridge usable as an io.Writer, for libraries
// that log to a plain writer.
func NewWriter(l log.Logger, lvl Level, prefix string) *Bridge {
	return &Bridge{
		log:    l,
		lvl:    lvl,
		prefix: prefix,
	}
}

// NewBridge returns a log bridge to a standard logger.
func NewBridge(l log.Logger, lvl Level, prefix string) *stdlog.Logger {
	return stdlog.New(NewWriter(l, lvl, prefix), "", 0)
}

// Write writes a log line.
func (b *Bridge) Write(p []byte) (n int, err error) {
	line := b.prefix + string(p)

	switch b.lvl {
	case Debug:
		b.log.Debug(line)

	default:
		b.log.Info(line)
	}

	return len(p), nil
}
