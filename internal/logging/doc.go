// Package logging builds the slog loggers used across shortcast and defines
// the shared attribute helpers and standardized field keys. Console output is
// compact and human-oriented; JSON output is line-delimited for ingestion.
package logging
