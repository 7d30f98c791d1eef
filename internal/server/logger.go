package server

import (
	"launcher/internal/logger"
)

// log is the package-level logger for the HTTP server.
var log = logger.Default()

// SetLogger sets the logger for the HTTP server.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l.With("component", "server")
	}
}

func getLogger(subcomponent string) *logger.Logger {
	return log.With("subcomponent", subcomponent)
}
