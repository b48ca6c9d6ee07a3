// Package logging provides structured logging for CueGrid Core.
//
// It wraps log/slog with configuration-driven format and level selection and
// stamps every record with the service name and version. Domain packages do
// not import this package directly; they declare their own minimal Logger
// interface and accept anything that satisfies it, which *logging.Logger does.
package logging
