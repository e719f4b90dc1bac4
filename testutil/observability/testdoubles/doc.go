// Package testdoubles provides spies for the observability interfaces of loanstore and shell.
//
// The spies record what instrumented code reports, so tests can assert on log messages,
// metric names with their labels, and spans without running an OpenTelemetry pipeline.
package testdoubles
