package registry

import (
	"launcher/internal/logger"
)

// log is the package-level logger for registry access.
var log = logger.Default()

// SetLogger sets the logger for all registry operations.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l.With("component", "registry")
	}
}

func getLogger(subcomponent string) *logger.Logger {
	return log.With("subcomponent", subcomponent)
}
