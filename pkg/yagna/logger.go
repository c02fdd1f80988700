package yagna

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// leveledLogger routes retryablehttp logs into zerolog. Per request chatter
// goes to trace so debug stays readable.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	event(zerolog.WarnLevel, keysAndValues).Msg(msg)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	event(zerolog.WarnLevel, keysAndValues).Msg(msg)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	event(zerolog.DebugLevel, keysAndValues).Msg(msg)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	event(zerolog.TraceLevel, keysAndValues).Msg(msg)
}

func event(level zerolog.Level, keysAndValues []interface{}) *zerolog.Event {
	return log.WithLevel(level).Str("component", "yagna-http").Fields(keysAndValues)
}
