package logger

import (
	"media-redirect/pkg/utils"

	zl "github.com/rs/zerolog"
)

// at stamps ev with the location of the code that called the exported logging function.
// Disabled levels skip the stack walk.
func at(ev *zl.Event) *zl.Event {
	if ev == nil {
		return nil
	}
	return ev.Str(lineOfCode, utils.GetFileAndLoC(2))
}

// Debug logs a debug message
func Debug(message string) {
	at(log.engine.Debug()).Msg(message)
}

// Debugf logs a debug message given a template and arguments
func Debugf(template string, args ...interface{}) {
	at(log.engine.Debug()).Msgf(template, args...)
}

// Info logs an info message
func Info(message string) {
	at(log.engine.Info()).Msg(message)
}

// Infof logs an info message given a template and arguments
func Infof(template string, args ...interface{}) {
	at(log.engine.Info()).Msgf(template, args...)
}

// Warn logs a warning message
func Warn(message string) {
	at(log.engine.Warn()).Msg(message)
}

// Warnf logs a warning message given a template and arguments
func Warnf(template string, args ...interface{}) {
	at(log.engine.Warn()).Msgf(template, args...)
}

// Error logs an error message; err may be nil
func Error(err error, message string) {
	at(log.engine.Error().Err(err)).Msg(message)
}

func Errorf(err error, template string, args ...interface{}) {
	at(log.engine.Error().Err(err)).Msgf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	at(log.engine.Fatal()).Msgf(template, args...)
}

// Decision logs a terminal routing decision so that it can be traced back to the request
func Decision(requestID, path, action, reason string) {
	at(log.engine.Info()).
		Str(requestIDField, requestID).
		Str(pathField, path).
		Str(actionField, action).
		Str(reasonField, reason).
		Msg("route decision")
}
