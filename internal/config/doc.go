// Package config defines the securestore configuration structure.
//
//   - spec.go: Config and its sections (crypto, storage, fingerprint, log)
//   - default.go: defaults, also exported as a flat map for the loader
//   - verify.go: validation
//   - sanitize.go: masked copy for display and logging
//   - load.go: layered loading through confloader
package config
