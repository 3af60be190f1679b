// Package logging builds the slog loggers used across riff and provides
// typed attribute helpers plus the shared field name constants.
package logging
