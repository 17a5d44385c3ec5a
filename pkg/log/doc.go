// Package log provides the logging abstraction used across logship.
//
// The [Logger] interface can be implemented by any logging library. A zerolog
// adapter is provided for real output and a no-op logger for embedding and
// tests:
//
//	logger := log.NewZerologAdapter()
//	quiet := log.NewNoopLogger()
//
// To integrate an existing logging setup, implement the four level methods:
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field)  { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field)  { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
