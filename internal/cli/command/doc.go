// Package command defines the securestore command-line interface.
//
// Commands are built on urfave/cli/v2:
//
//   - root.go: App, global flags, configuration and runtime setup
//   - runtime.go: wiring of providers, stores and the secure storage facade
//   - store.go: set, get, roundtrip and inspect
//   - system.go: fingerprint, device-id and version
//   - config.go: config show
//   - shell.go: interactive shell (one process is one session)
//
// Every command writes to the App writer through the formatter selected
// by --output.
package command
