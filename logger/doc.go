// Package logger provides structured logging for execkit using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Usage
//
//	log := logger.NewDefault("execkit").WithComponent("process")
//	log.Debug("process started", logger.Fields(logger.FieldPID, pid))
package logger
