// Package catalog builds, validates, publishes and serves platform catalog
// snapshots.
//
// This file provides logger integration for catalog operations.
package catalog

import (
	"launcher/internal/logger"
)

// log is the package-level logger for catalog operations.
// It defaults to the default logger but can be set via SetLogger.
var log = logger.Default()

// SetLogger sets the logger for all catalog operations.
// This should be called before creating the refresher and scheduler.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l.With("component", "catalog")
	}
}

// getLogger returns a logger with the given subcomponent.
func getLogger(subcomponent string) *logger.Logger {
	return log.With("subcomponent", subcomponent)
}
