package util

import (
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// EventHook returns a suture.EventHook that reports supervisor events
// to log.  A nil logger reports to slog.Default().
func EventHook(log *slog.Logger) suture.EventHook {
	if log == nil {
		log = slog.Default()
	}

	return func(e suture.Event) {
		var args []any
		for k, v := range e.Map() {
			args = append(args, k, v)
		}

		switch e.Type() {
		case suture.EventTypeBackoff, suture.EventTypeResume:
			log.Info(e.String(), args...)

		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
			log.Warn(e.String(), args...)

		case suture.EventTypeStopTimeout:
			log.Error(e.String(), args...)

		default:
			log.Debug(e.String(), args...)
		}
	}
}
