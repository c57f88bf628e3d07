package core

// Logger is any leveled logger the services and API layer can report through.
// Implementations may inspect args for known types (e.g. an Actor) to enrich
// the report.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
