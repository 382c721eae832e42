// Package repl provides the interactive shell of the securestore CLI.
//
// One shell process is one storage session: values set in the shell can be
// read back until it exits, after which the session keys are gone.
//
//   - repl.go: read loop, argument splitting and dispatch
//   - completer.go: prefix completion for commands and stored keys
//   - history.go: command history persistence
//
// Commands are registered by the caller, which keeps this package free of
// storage dependencies.
package repl
