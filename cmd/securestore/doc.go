// Package main provides the entry point for securestore.
//
// securestore exercises the session-scoped encrypted storage from the
// command line:
//
//   - set, get and roundtrip values through the secure storage facade
//   - inspect stored envelopes without decrypting them
//   - show the device id, fingerprint and effective configuration
//   - run an interactive shell in which the whole process is one session
//
// Usage:
//
//	securestore roundtrip prefs '{"theme":"dark"}'
//	securestore -o json inspect '{"encrypted":"...","iv":"...","version":3}'
//	securestore shell
package main
