package normalizer

import (
	"github.com/erraggy/oastools/parser"

	"github.com/erraggy/toolsetgen/logging"
)

// parserLogger lets the OpenAPI parser log through the generator's logger.
type parserLogger struct {
	l logging.Logger
}

func (p parserLogger) Debug(msg string, attrs ...any) { p.l.Debug(msg, attrs...) }
func (p parserLogger) Info(msg string, attrs ...any)  { p.l.Info(msg, attrs...) }
func (p parserLogger) Warn(msg string, attrs ...any)  { p.l.Warn(msg, attrs...) }
func (p parserLogger) Error(msg string, attrs ...any) { p.l.Error(msg, attrs...) }

func (p parserLogger) With(attrs ...any) parser.Logger {
	return parserLogger{l: p.l.With(attrs...)}
}

var _ parser.Logger = parserLogger{}
