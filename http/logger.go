package http

import "log"

// Logger is satisfied by *log.Logger, including the one zap.NewStdLog returns.
type Logger interface {
	Printf(format string, v ...any)
}

var defaultLogger Logger = log.Default()
